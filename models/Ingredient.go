package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ingredient is a stock item. Calories is the calorie density per 100 units of weight.
type Ingredient struct {
	gorm.Model
	Name           string                    `gorm:"uniqueIndex;not null" json:"name"`
	Calories       decimal.Decimal           `gorm:"type:decimal(10,3);not null;default:0" json:"calories"`
	Price          decimal.Decimal           `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Weight         decimal.Decimal           `gorm:"type:decimal(10,3);not null;default:0" json:"weight"`
	Available      bool                      `gorm:"not null;default:true" json:"available"`
	Micronutrients []IngredientMicronutrient `gorm:"foreignKey:IngredientID" json:"micronutrients,omitempty"`
}
