package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DishComposition links a dish to one of its ingredients. Rows are hard
// deleted so the (dish, ingredient) pair can be re-added later.
type DishComposition struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	DishID       uint            `gorm:"not null;uniqueIndex:idx_dish_ingredient" json:"dish_id"`
	IngredientID uint            `gorm:"not null;uniqueIndex:idx_dish_ingredient;index" json:"ingredient_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"quantity"`
	Unit         string          `gorm:"not null;default:g" json:"unit"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Dish       *Dish       `gorm:"foreignKey:DishID" json:"dish,omitempty"`
	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
