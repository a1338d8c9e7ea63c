package menu

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	applog "tavola/internal/log"
	"tavola/models"
)

// CaloriePlaces is the number of decimal places kept in Dish.TotalCalories.
const CaloriePlaces = 2

var hundred = decimal.NewFromInt(100)

type compositionCalories struct {
	Quantity decimal.Decimal
	Calories decimal.Decimal
}

// OnCompositionChanged recomputes and stores the cached calorie total of a
// dish. It must run inside the transaction that changed the composition; when
// tx is nil a dedicated transaction is opened.
//
// The dish row is locked before reading so concurrent composition changes on
// the same dish are applied one at a time. Any failure is reported as
// ErrRecomputation and must abort the caller's transaction.
func (e *Engine) OnCompositionChanged(ctx context.Context, tx *gorm.DB, dishID uint) (decimal.Decimal, error) {
	ctx, span := e.tracer.Start(ctx, "menu.OnCompositionChanged")
	defer span.End()
	span.SetAttributes(attribute.Int64("dish.id", int64(dishID)))

	started := time.Now()
	var total decimal.Decimal
	err := e.inTx(ctx, tx, func(tx *gorm.DB) error {
		var err error
		total, err = recomputeDishCalories(tx, dishID)
		return err
	})
	if err != nil {
		e.observeRecomputeFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "recomputation failed")
		applog.Error(ctx, "calorie recomputation failed", "dishID", dishID, "error", err)
		return decimal.Zero, err
	}

	e.observeRecompute(time.Since(started))
	span.SetAttributes(attribute.String("dish.total_calories", total.String()))
	applog.Debug(ctx, "dish calories recomputed", "dishID", dishID, "totalCalories", total.String())
	return total, nil
}

func recomputeDishCalories(tx *gorm.DB, dishID uint) (decimal.Decimal, error) {
	if _, err := lockDish(tx, dishID); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrRecomputation, err)
	}

	var rows []compositionCalories
	if err := tx.Table("dish_compositions").
		Select("dish_compositions.quantity AS quantity, ingredients.calories AS calories").
		Joins("JOIN ingredients ON ingredients.id = dish_compositions.ingredient_id").
		Where("dish_compositions.dish_id = ?", dishID).
		Scan(&rows).Error; err != nil {
		return decimal.Zero, fmt.Errorf("%w: read composition of dish %d: %w", ErrRecomputation, dishID, err)
	}

	total := sumCalories(rows)

	result := tx.Model(&models.Dish{}).
		Where("id = ?", dishID).
		UpdateColumn("total_calories", total)
	if result.Error != nil {
		return decimal.Zero, fmt.Errorf("%w: store total of dish %d: %w", ErrRecomputation, dishID, result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, fmt.Errorf("%w: %w: id %d", ErrRecomputation, ErrDishNotFound, dishID)
	}

	return total, nil
}

// sumCalories returns Σ calories*quantity/100, zero for an empty composition.
func sumCalories(rows []compositionCalories) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Calories.Mul(row.Quantity).Div(hundred))
	}
	return total.Round(CaloriePlaces)
}

func (e *Engine) observeRecompute(elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Recomputations.Inc()
	e.metrics.RecomputeLatencySec.Observe(elapsed.Seconds())
}

func (e *Engine) observeRecomputeFailure() {
	if e.metrics == nil {
		return
	}
	e.metrics.RecomputationFailures.Inc()
}
