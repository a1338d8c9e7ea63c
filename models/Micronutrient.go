package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Micronutrient struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Unit      string    `gorm:"not null;default:mg" json:"unit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IngredientMicronutrient records the amount of a micronutrient per 100
// units of ingredient weight.
type IngredientMicronutrient struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	IngredientID    uint            `gorm:"not null;uniqueIndex:idx_ingredient_micronutrient" json:"ingredient_id"`
	MicronutrientID uint            `gorm:"not null;uniqueIndex:idx_ingredient_micronutrient" json:"micronutrient_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"amount"`

	Micronutrient *Micronutrient `gorm:"foreignKey:MicronutrientID" json:"micronutrient,omitempty"`
}
