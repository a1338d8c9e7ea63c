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

// IngredientInput carries the editable attributes of an ingredient.
type IngredientInput struct {
	Name      string
	Calories  decimal.Decimal
	Price     decimal.Decimal
	Weight    decimal.Decimal
	Available bool
}

func (in IngredientInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidInput("ingredient name is required")
	}
	if in.Calories.IsNegative() {
		return invalidInput("calories must not be negative")
	}
	if in.Price.IsNegative() {
		return invalidInput("price must not be negative")
	}
	if in.Weight.IsNegative() {
		return invalidInput("weight must not be negative")
	}
	return nil
}

// DensityInput is the amount of a micronutrient per 100 units of an ingredient.
type DensityInput struct {
	MicronutrientID uint
	Amount          decimal.Decimal
}

// CreateIngredient stores a new ingredient. New ingredients belong to no dish,
// so no total changes.
func (e *Engine) CreateIngredient(ctx context.Context, in IngredientInput) (*models.Ingredient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ingredient := models.Ingredient{
		Name:      strings.TrimSpace(in.Name),
		Calories:  in.Calories,
		Price:     in.Price,
		Weight:    in.Weight,
		Available: in.Available,
	}
	err := e.transact(ctx, func(tx *gorm.DB) error {
		// Select keeps an explicit false for Available instead of the column default.
		if err := tx.Select("Name", "Calories", "Price", "Weight", "Available", "CreatedAt", "UpdatedAt").Create(&ingredient).Error; err != nil {
			return fmt.Errorf("create ingredient: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	applog.Info(ctx, "ingredient created", "ingredientID", ingredient.ID, "name", ingredient.Name)
	return &ingredient, nil
}

// UpdateIngredient changes an ingredient. A new calorie density cascades to
// every dish that uses the ingredient within the same transaction. Changing
// availability never deactivates dishes.
func (e *Engine) UpdateIngredient(ctx context.Context, ingredientID uint, in IngredientInput) (*models.Ingredient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated models.Ingredient
	err := e.transact(ctx, func(tx *gorm.DB) error {
		existing, err := lockIngredient(tx, ingredientID, forUpdate())
		if err != nil {
			return err
		}

		updates := map[string]any{
			"name":      strings.TrimSpace(in.Name),
			"calories":  in.Calories,
			"price":     in.Price,
			"weight":    in.Weight,
			"available": in.Available,
		}
		if err := tx.Model(existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("update ingredient %d: %w", ingredientID, err)
		}

		if !existing.Calories.Equal(in.Calories) {
			dishIDs, err := dishesUsing(tx, ingredientID)
			if err != nil {
				return err
			}
			if err := e.recomputeDishes(ctx, tx, dishIDs...); err != nil {
				return err
			}
			applog.Info(ctx, "ingredient calories cascaded", "ingredientID", ingredientID, "dishes", len(dishIDs))
		}

		return tx.First(&updated, ingredientID).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetIngredientAvailability flips the availability flag consulted by the
// activation guard.
func (e *Engine) SetIngredientAvailability(ctx context.Context, ingredientID uint, available bool) (*models.Ingredient, error) {
	var ingredient *models.Ingredient
	err := e.transact(ctx, func(tx *gorm.DB) error {
		var err error
		ingredient, err = lockIngredient(tx, ingredientID, forUpdate())
		if err != nil {
			return err
		}
		if ingredient.Available == available {
			return nil
		}
		if err := tx.Model(ingredient).Update("available", available).Error; err != nil {
			return fmt.Errorf("update availability of ingredient %d: %w", ingredientID, err)
		}
		ingredient.Available = available
		return nil
	})
	if err != nil {
		return nil, err
	}
	applog.Info(ctx, "ingredient availability set", "ingredientID", ingredientID, "available", available)
	return ingredient, nil
}

// DeleteIngredient removes an ingredient that no dish uses.
func (e *Engine) DeleteIngredient(ctx context.Context, ingredientID uint) error {
	return e.transact(ctx, func(tx *gorm.DB) error {
		ingredient, err := lockIngredient(tx, ingredientID, forUpdate())
		if err != nil {
			return err
		}
		dishIDs, err := dishesUsing(tx, ingredientID)
		if err != nil {
			return err
		}
		if len(dishIDs) > 0 {
			return fmt.Errorf("%w: ingredient %d is used by %d dish(es)", ErrIngredientInUse, ingredientID, len(dishIDs))
		}
		if err := tx.Where("ingredient_id = ?", ingredientID).Delete(&models.IngredientMicronutrient{}).Error; err != nil {
			return fmt.Errorf("delete micronutrients of ingredient %d: %w", ingredientID, err)
		}
		if err := tx.Delete(ingredient).Error; err != nil {
			return fmt.Errorf("delete ingredient %d: %w", ingredientID, err)
		}
		return nil
	})
}

// SetIngredientMicronutrients replaces the micronutrient densities of an
// ingredient. Profiles are derived on read, so nothing is recomputed.
func (e *Engine) SetIngredientMicronutrients(ctx context.Context, ingredientID uint, densities []DensityInput) ([]models.IngredientMicronutrient, error) {
	seen := make(map[uint]struct{}, len(densities))
	for _, density := range densities {
		if density.MicronutrientID == 0 {
			return nil, invalidInput("micronutrient_id is required")
		}
		if density.Amount.IsNegative() {
			return nil, invalidInput("micronutrient amount must not be negative")
		}
		if _, dup := seen[density.MicronutrientID]; dup {
			return nil, invalidInput("micronutrient %d listed twice", density.MicronutrientID)
		}
		seen[density.MicronutrientID] = struct{}{}
	}

	var rows []models.IngredientMicronutrient
	err := e.transact(ctx, func(tx *gorm.DB) error {
		if _, err := lockIngredient(tx, ingredientID, forUpdate()); err != nil {
			return err
		}
		if err := ensureMicronutrients(tx, seen); err != nil {
			return err
		}
		if err := tx.Where("ingredient_id = ?", ingredientID).Delete(&models.IngredientMicronutrient{}).Error; err != nil {
			return fmt.Errorf("clear micronutrients of ingredient %d: %w", ingredientID, err)
		}
		rows = make([]models.IngredientMicronutrient, 0, len(densities))
		for _, density := range densities {
			rows = append(rows, models.IngredientMicronutrient{
				IngredientID:    ingredientID,
				MicronutrientID: density.MicronutrientID,
				Amount:          density.Amount,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("store micronutrients of ingredient %d: %w", ingredientID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Ingredient loads an ingredient with its micronutrient densities.
func (e *Engine) Ingredient(ctx context.Context, ingredientID uint) (*models.Ingredient, error) {
	if e == nil || e.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var ingredient models.Ingredient
	err := e.db.WithContext(ctx).
		Preload("Micronutrients.Micronutrient").
		First(&ingredient, ingredientID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrIngredientNotFound, ingredientID)
		}
		return nil, fmt.Errorf("load ingredient %d: %w", ingredientID, err)
	}
	return &ingredient, nil
}

func dishesUsing(tx *gorm.DB, ingredientID uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.DishComposition{}).
		Where("ingredient_id = ?", ingredientID).
		Distinct().
		Order("dish_id").
		Pluck("dish_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("find dishes using ingredient %d: %w", ingredientID, err)
	}
	return ids, nil
}

func ensureMicronutrients(tx *gorm.DB, ids map[uint]struct{}) error {
	if len(ids) == 0 {
		return nil
	}
	wanted := make([]uint, 0, len(ids))
	for id := range ids {
		wanted = append(wanted, id)
	}
	var count int64
	if err := tx.Model(&models.Micronutrient{}).Where("id IN ?", wanted).Count(&count).Error; err != nil {
		return fmt.Errorf("check micronutrients: %w", err)
	}
	if count != int64(len(wanted)) {
		return ErrMicronutrientNotFound
	}
	return nil
}
