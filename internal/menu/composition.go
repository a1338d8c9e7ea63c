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

const defaultUnit = "g"

// CompositionInput describes one (dish, ingredient, quantity) row.
type CompositionInput struct {
	DishID       uint
	IngredientID uint
	Quantity     decimal.Decimal
	Unit         string
}

func (in CompositionInput) validate() error {
	if in.DishID == 0 {
		return invalidInput("dish_id is required")
	}
	if in.IngredientID == 0 {
		return invalidInput("ingredient_id is required")
	}
	if !in.Quantity.IsPositive() {
		return invalidInput("quantity must be greater than zero")
	}
	return nil
}

func normalizedUnit(unit string) string {
	trimmed := strings.TrimSpace(unit)
	if trimmed == "" {
		return defaultUnit
	}
	return trimmed
}

// AddComposition inserts a composition row and recomputes the dish total in
// the same transaction.
func (e *Engine) AddComposition(ctx context.Context, in CompositionInput) (*models.DishComposition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	row := models.DishComposition{
		DishID:       in.DishID,
		IngredientID: in.IngredientID,
		Quantity:     in.Quantity,
		Unit:         normalizedUnit(in.Unit),
	}

	err := e.transact(ctx, func(tx *gorm.DB) error {
		if _, err := lockDish(tx, in.DishID); err != nil {
			return err
		}
		if _, err := lockIngredient(tx, in.IngredientID, forShare()); err != nil {
			return err
		}
		if err := ensureNotComposed(tx, in.DishID, in.IngredientID, 0); err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create composition row: %w", err)
		}
		_, err := e.OnCompositionChanged(ctx, tx, in.DishID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.observeCompositionWrite("insert")
	applog.Info(ctx, "composition row added", "id", row.ID, "dishID", row.DishID, "ingredientID", row.IngredientID)
	return e.Composition(ctx, row.ID)
}

// UpdateComposition changes a composition row. When the row moves to another
// dish both dishes are recomputed.
func (e *Engine) UpdateComposition(ctx context.Context, id uint, in CompositionInput) (*models.DishComposition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := e.transact(ctx, func(tx *gorm.DB) error {
		existing, err := lockComposition(tx, id)
		if err != nil {
			return err
		}
		if err := lockDishes(tx, existing.DishID, in.DishID); err != nil {
			return err
		}
		if _, err := lockIngredient(tx, in.IngredientID, forShare()); err != nil {
			return err
		}
		if err := ensureNotComposed(tx, in.DishID, in.IngredientID, id); err != nil {
			return err
		}

		updates := map[string]any{
			"dish_id":       in.DishID,
			"ingredient_id": in.IngredientID,
			"quantity":      in.Quantity,
			"unit":          normalizedUnit(in.Unit),
		}
		if err := tx.Model(existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("update composition row %d: %w", id, err)
		}

		return e.recomputeDishes(ctx, tx, existing.DishID, in.DishID)
	})
	if err != nil {
		return nil, err
	}

	e.observeCompositionWrite("update")
	return e.Composition(ctx, id)
}

// RemoveComposition deletes a composition row and recomputes its dish.
// Removing the last row resets the dish total to zero.
func (e *Engine) RemoveComposition(ctx context.Context, id uint) error {
	err := e.transact(ctx, func(tx *gorm.DB) error {
		existing, err := lockComposition(tx, id)
		if err != nil {
			return err
		}
		if _, err := lockDish(tx, existing.DishID); err != nil {
			return err
		}
		if err := tx.Delete(existing).Error; err != nil {
			return fmt.Errorf("delete composition row %d: %w", id, err)
		}
		_, err = e.OnCompositionChanged(ctx, tx, existing.DishID)
		return err
	})
	if err != nil {
		return err
	}

	e.observeCompositionWrite("delete")
	applog.Info(ctx, "composition row removed", "id", id)
	return nil
}

// Composition loads a composition row with its ingredient.
func (e *Engine) Composition(ctx context.Context, id uint) (*models.DishComposition, error) {
	if e == nil || e.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var row models.DishComposition
	if err := e.db.WithContext(ctx).Preload("Ingredient").First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrCompositionNotFound, id)
		}
		return nil, fmt.Errorf("load composition row %d: %w", id, err)
	}
	return &row, nil
}

// recomputeDishes runs the aggregator for each distinct dish in ascending id order.
func (e *Engine) recomputeDishes(ctx context.Context, tx *gorm.DB, dishIDs ...uint) error {
	for _, id := range uniqueSorted(dishIDs) {
		if _, err := e.OnCompositionChanged(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

func lockComposition(tx *gorm.DB, id uint) (*models.DishComposition, error) {
	var row models.DishComposition
	if err := tx.Clauses(forUpdate()).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrCompositionNotFound, id)
		}
		return nil, fmt.Errorf("lock composition row %d: %w", id, err)
	}
	return &row, nil
}

func ensureNotComposed(tx *gorm.DB, dishID, ingredientID, exceptID uint) error {
	query := tx.Model(&models.DishComposition{}).
		Where("dish_id = ? AND ingredient_id = ?", dishID, ingredientID)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check composition uniqueness: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: dish %d, ingredient %d", ErrDuplicateComposition, dishID, ingredientID)
	}
	return nil
}

func (e *Engine) observeCompositionWrite(op string) {
	if e.metrics == nil {
		return
	}
	e.metrics.CompositionWrites.WithLabelValues(op).Inc()
}
