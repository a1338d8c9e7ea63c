package menu

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	applog "tavola/internal/log"
)

type ingredientAvailability struct {
	Name      string
	Available bool
}

// OnActivationRequested is consulted immediately before a dish's active flag
// is persisted. Requests to deactivate always pass. A request to activate
// fails with an *ActivationError (errors.Is ErrConstraintViolation) when any
// ingredient of the dish is flagged unavailable.
//
// The guard only reads. It never changes the flag itself and never touches
// ingredient or composition rows. Dishes that are already active are not
// re-checked when an ingredient later becomes unavailable.
func (e *Engine) OnActivationRequested(ctx context.Context, tx *gorm.DB, dishID uint, active bool) error {
	if !active {
		return nil
	}

	ctx, span := e.tracer.Start(ctx, "menu.OnActivationRequested")
	defer span.End()
	span.SetAttributes(attribute.Int64("dish.id", int64(dishID)))

	if tx == nil {
		if e == nil || e.db == nil {
			return gorm.ErrInvalidDB
		}
		tx = e.db
	}
	if e.metrics != nil {
		e.metrics.ActivationChecks.Inc()
	}

	var rows []ingredientAvailability
	if err := tx.WithContext(ctx).
		Table("dish_compositions").
		Select("ingredients.name AS name, ingredients.available AS available").
		Joins("JOIN ingredients ON ingredients.id = dish_compositions.ingredient_id").
		Where("dish_compositions.dish_id = ?", dishID).
		Order("ingredients.name").
		Scan(&rows).Error; err != nil {
		return fmt.Errorf("check availability of dish %d: %w", dishID, err)
	}

	var unavailable []string
	for _, row := range rows {
		if !row.Available {
			unavailable = append(unavailable, row.Name)
		}
	}
	if len(unavailable) == 0 {
		return nil
	}

	if e.metrics != nil {
		e.metrics.ActivationRejections.Inc()
	}
	span.SetAttributes(attribute.StringSlice("dish.unavailable_ingredients", unavailable))
	applog.Info(ctx, "dish activation rejected", "dishID", dishID, "unavailable", unavailable)
	return &ActivationError{DishID: dishID, Ingredients: unavailable}
}
