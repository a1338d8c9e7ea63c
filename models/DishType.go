package models

import (
	"gorm.io/gorm"
)

// DishType groups dishes on the menu (starters, soups, mains, ...).
type DishType struct {
	gorm.Model
	Name   string `gorm:"uniqueIndex;not null" json:"name"`
	Dishes []Dish `gorm:"foreignKey:TypeID" json:"dishes,omitempty"`
}
