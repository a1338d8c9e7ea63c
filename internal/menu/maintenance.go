package menu

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	applog "tavola/internal/log"
	"tavola/models"
)

// Drift describes a dish whose cached calorie total differs from the total
// derived from its composition.
type Drift struct {
	DishID  uint            `json:"dish_id"`
	Name    string          `json:"name"`
	Cached  decimal.Decimal `json:"cached"`
	Derived decimal.Decimal `json:"derived"`
}

type dishCalorieRow struct {
	DishID   uint
	Quantity decimal.NullDecimal
	Calories decimal.NullDecimal
}

// RecomputeAll recomputes the cached total of every dish, one transaction per
// dish, and returns how many dishes were processed.
func (e *Engine) RecomputeAll(ctx context.Context) (int, error) {
	if e == nil || e.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var ids []uint
	if err := e.db.WithContext(ctx).Model(&models.Dish{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list dishes: %w", err)
	}
	for i, id := range ids {
		if _, err := e.OnCompositionChanged(ctx, nil, id); err != nil {
			return i, err
		}
	}
	applog.Info(ctx, "all dish totals recomputed", "dishes", len(ids))
	return len(ids), nil
}

// Audit compares every cached total with the derived one and reports the
// dishes that differ. It only reads.
func (e *Engine) Audit(ctx context.Context) ([]Drift, error) {
	if e == nil || e.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	db := e.db.WithContext(ctx)

	var dishes []models.Dish
	if err := db.Select("id", "name", "total_calories").Order("id").Find(&dishes).Error; err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}

	var rows []dishCalorieRow
	if err := db.Table("dish_compositions").
		Select("dish_compositions.dish_id AS dish_id, dish_compositions.quantity AS quantity, ingredients.calories AS calories").
		Joins("JOIN ingredients ON ingredients.id = dish_compositions.ingredient_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("read compositions: %w", err)
	}

	perDish := make(map[uint][]compositionCalories, len(dishes))
	for _, row := range rows {
		if !row.Quantity.Valid || !row.Calories.Valid {
			continue
		}
		perDish[row.DishID] = append(perDish[row.DishID], compositionCalories{
			Quantity: row.Quantity.Decimal,
			Calories: row.Calories.Decimal,
		})
	}

	var drifts []Drift
	for _, dish := range dishes {
		derived := sumCalories(perDish[dish.ID])
		if derived.Equal(dish.TotalCalories) {
			continue
		}
		drifts = append(drifts, Drift{
			DishID:  dish.ID,
			Name:    dish.Name,
			Cached:  dish.TotalCalories,
			Derived: derived,
		})
	}
	if len(drifts) > 0 {
		applog.Warn(ctx, "calorie totals drifted", "dishes", len(drifts))
	}
	return drifts, nil
}
