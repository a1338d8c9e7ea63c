package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	GenderAny    = "any"
	GenderFemale = "female"
	GenderMale   = "male"
)

// NowFunc is the clock used to stamp DailyNorm modifications.
var NowFunc = time.Now

// DailyNorm is the recommended daily intake of a micronutrient for an age
// group and gender. ModifiedAt is maintained by the hooks below.
type DailyNorm struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	MicronutrientID uint            `gorm:"not null;uniqueIndex:idx_norm_key" json:"micronutrient_id"`
	AgeGroup        string          `gorm:"not null;uniqueIndex:idx_norm_key" json:"age_group"`
	Gender          string          `gorm:"not null;uniqueIndex:idx_norm_key" json:"gender"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"amount"`
	ModifiedAt      time.Time       `gorm:"not null" json:"modified_at"`

	Micronutrient *Micronutrient `gorm:"foreignKey:MicronutrientID" json:"micronutrient,omitempty"`
}

// BeforeCreate normalizes the key columns and stamps the modification time.
func (n *DailyNorm) BeforeCreate(tx *gorm.DB) error {
	n.AgeGroup = NormalizeAgeGroup(n.AgeGroup)
	n.Gender = NormalizeGender(n.Gender)
	n.ModifiedAt = modificationTime()
	return nil
}

// BeforeUpdate stamps the modification time on every update, including map updates.
func (n *DailyNorm) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("ModifiedAt", modificationTime())
	return nil
}

func modificationTime() time.Time {
	return NowFunc().UTC().Truncate(time.Microsecond)
}

// NormalizeAgeGroup trims and lower-cases an age group label such as "19-30".
func NormalizeAgeGroup(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeGender maps free-form input onto one of the Gender constants.
func NormalizeGender(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "f", "female", "w", "woman":
		return GenderFemale
	case "m", "male", "man":
		return GenderMale
	default:
		return GenderAny
	}
}
