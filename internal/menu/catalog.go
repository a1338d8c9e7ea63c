package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	applog "tavola/internal/log"
	"tavola/models"
)

// CreateDishType stores a menu section.
func (e *Engine) CreateDishType(ctx context.Context, name string) (*models.DishType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("dish type name is required")
	}
	dishType := models.DishType{Name: name}
	if err := e.transact(ctx, func(tx *gorm.DB) error {
		return tx.Create(&dishType).Error
	}); err != nil {
		return nil, fmt.Errorf("create dish type: %w", err)
	}
	return &dishType, nil
}

// CreateMicronutrient stores a micronutrient with its measuring unit.
func (e *Engine) CreateMicronutrient(ctx context.Context, name, unit string) (*models.Micronutrient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("micronutrient name is required")
	}
	unit = strings.TrimSpace(unit)
	if unit == "" {
		unit = "mg"
	}
	micronutrient := models.Micronutrient{Name: name, Unit: unit}
	if err := e.transact(ctx, func(tx *gorm.DB) error {
		return tx.Create(&micronutrient).Error
	}); err != nil {
		return nil, fmt.Errorf("create micronutrient: %w", err)
	}
	return &micronutrient, nil
}

// NormInput identifies a daily norm by micronutrient, age group and gender.
type NormInput struct {
	MicronutrientID uint
	AgeGroup        string
	Gender          string
	Amount          decimal.Decimal
}

// UpsertDailyNorm creates the norm for the key or changes the amount of the
// existing one. The modification time is stamped by the model hooks.
func (e *Engine) UpsertDailyNorm(ctx context.Context, in NormInput) (*models.DailyNorm, error) {
	if in.MicronutrientID == 0 {
		return nil, invalidInput("micronutrient_id is required")
	}
	ageGroup := models.NormalizeAgeGroup(in.AgeGroup)
	if ageGroup == "" {
		return nil, invalidInput("age_group is required")
	}
	if !in.Amount.IsPositive() {
		return nil, invalidInput("norm amount must be greater than zero")
	}
	gender := models.NormalizeGender(in.Gender)

	var norm models.DailyNorm
	err := e.transact(ctx, func(tx *gorm.DB) error {
		if err := ensureMicronutrients(tx, map[uint]struct{}{in.MicronutrientID: {}}); err != nil {
			return err
		}

		err := tx.Clauses(forUpdate()).
			Where("micronutrient_id = ? AND age_group = ? AND gender = ?", in.MicronutrientID, ageGroup, gender).
			First(&norm).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			norm = models.DailyNorm{
				MicronutrientID: in.MicronutrientID,
				AgeGroup:        ageGroup,
				Gender:          gender,
				Amount:          in.Amount,
			}
			if err := tx.Create(&norm).Error; err != nil {
				return fmt.Errorf("create daily norm: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load daily norm: %w", err)
		default:
			if err := tx.Model(&norm).Updates(map[string]any{"amount": in.Amount}).Error; err != nil {
				return fmt.Errorf("update daily norm %d: %w", norm.ID, err)
			}
			if err := tx.First(&norm, norm.ID).Error; err != nil {
				return fmt.Errorf("reload daily norm %d: %w", norm.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	applog.Info(ctx, "daily norm stored", "normID", norm.ID, "micronutrientID", norm.MicronutrientID, "ageGroup", norm.AgeGroup, "gender", norm.Gender)
	return &norm, nil
}
