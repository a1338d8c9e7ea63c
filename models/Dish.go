package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Dish struct {
	gorm.Model
	Name               string          `gorm:"not null" json:"name"`
	Price              decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	TypeID             *uint           `gorm:"index" json:"type_id"`
	Type               *DishType       `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	CookingTimeMinutes int             `gorm:"not null;default:0" json:"cooking_time_minutes"`
	Active             bool            `gorm:"not null;default:false" json:"active"`

	// TotalCalories caches the calorie sum of the current composition.
	// Only the menu engine's calorie aggregator writes this column.
	TotalCalories decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_calories"`

	Composition []DishComposition `gorm:"foreignKey:DishID" json:"composition,omitempty"`
}
