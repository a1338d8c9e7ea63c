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

// DishInput carries the attributes a caller may set on a dish. The calorie
// total is never part of it.
type DishInput struct {
	Name               string
	Price              decimal.Decimal
	TypeID             *uint
	CookingTimeMinutes int
	Active             *bool
}

func (in DishInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidInput("dish name is required")
	}
	if in.Price.IsNegative() {
		return invalidInput("dish price must not be negative")
	}
	if in.CookingTimeMinutes < 0 {
		return invalidInput("cooking time must not be negative")
	}
	return nil
}

// CreateDish stores a new dish with a zero calorie total.
func (e *Engine) CreateDish(ctx context.Context, in DishInput) (*models.Dish, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	dish := models.Dish{
		Name:               strings.TrimSpace(in.Name),
		Price:              in.Price,
		TypeID:             in.TypeID,
		CookingTimeMinutes: in.CookingTimeMinutes,
		TotalCalories:      decimal.Zero,
	}

	err := e.transact(ctx, func(tx *gorm.DB) error {
		if err := ensureDishType(tx, in.TypeID); err != nil {
			return err
		}
		if err := tx.Create(&dish).Error; err != nil {
			return fmt.Errorf("create dish: %w", err)
		}
		if in.Active != nil && *in.Active {
			return e.applyActivation(ctx, tx, &dish, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	applog.Info(ctx, "dish created", "dishID", dish.ID, "name", dish.Name)
	return &dish, nil
}

// UpdateDish changes the descriptive attributes of a dish. A non-nil Active
// goes through the availability guard in the same transaction.
func (e *Engine) UpdateDish(ctx context.Context, dishID uint, in DishInput) (*models.Dish, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated *models.Dish
	err := e.transact(ctx, func(tx *gorm.DB) error {
		dish, err := lockDish(tx, dishID)
		if err != nil {
			return err
		}
		if err := ensureDishType(tx, in.TypeID); err != nil {
			return err
		}

		updates := map[string]any{
			"name":                 strings.TrimSpace(in.Name),
			"price":                in.Price,
			"type_id":              in.TypeID,
			"cooking_time_minutes": in.CookingTimeMinutes,
		}
		if err := tx.Model(dish).Updates(updates).Error; err != nil {
			return fmt.Errorf("update dish %d: %w", dishID, err)
		}

		if in.Active != nil {
			if err := e.applyActivation(ctx, tx, dish, *in.Active); err != nil {
				return err
			}
		}

		updated, err = e.loadDish(tx, dishID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetDishActive persists the requested active flag when the availability
// guard allows it. Unchanged values and deactivations are not checked. A
// rejected activation returns an *ActivationError and leaves the flag as it
// was.
func (e *Engine) SetDishActive(ctx context.Context, dishID uint, active bool) (*models.Dish, error) {
	var updated *models.Dish
	err := e.transact(ctx, func(tx *gorm.DB) error {
		dish, err := lockDish(tx, dishID)
		if err != nil {
			return err
		}
		if err := e.applyActivation(ctx, tx, dish, active); err != nil {
			return err
		}
		updated = dish
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyActivation expects dish to be locked by tx.
func (e *Engine) applyActivation(ctx context.Context, tx *gorm.DB, dish *models.Dish, active bool) error {
	if dish.Active == active {
		return nil
	}
	if active {
		if err := e.OnActivationRequested(ctx, tx, dish.ID, true); err != nil {
			return err
		}
	}
	if err := tx.Model(dish).Update("active", active).Error; err != nil {
		return fmt.Errorf("persist active flag of dish %d: %w", dish.ID, err)
	}
	dish.Active = active
	applog.Info(ctx, "dish activation changed", "dishID", dish.ID, "active", active)
	return nil
}

// DeleteDish removes a dish together with its composition rows.
func (e *Engine) DeleteDish(ctx context.Context, dishID uint) error {
	return e.transact(ctx, func(tx *gorm.DB) error {
		dish, err := lockDish(tx, dishID)
		if err != nil {
			return err
		}
		if err := tx.Where("dish_id = ?", dishID).Delete(&models.DishComposition{}).Error; err != nil {
			return fmt.Errorf("delete composition of dish %d: %w", dishID, err)
		}
		if err := tx.Delete(dish).Error; err != nil {
			return fmt.Errorf("delete dish %d: %w", dishID, err)
		}
		applog.Info(ctx, "dish deleted", "dishID", dishID)
		return nil
	})
}

// Dish loads a dish with its type and composition.
func (e *Engine) Dish(ctx context.Context, dishID uint) (*models.Dish, error) {
	if e == nil || e.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	return e.loadDish(e.db.WithContext(ctx), dishID)
}

func (e *Engine) loadDish(tx *gorm.DB, dishID uint) (*models.Dish, error) {
	var dish models.Dish
	err := tx.Preload("Type").
		Preload("Composition", func(db *gorm.DB) *gorm.DB { return db.Order("dish_compositions.id asc") }).
		Preload("Composition.Ingredient").
		First(&dish, dishID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrDishNotFound, dishID)
		}
		return nil, fmt.Errorf("load dish %d: %w", dishID, err)
	}
	return &dish, nil
}

func ensureDishType(tx *gorm.DB, typeID *uint) error {
	if typeID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.DishType{}).Where("id = ?", *typeID).Count(&count).Error; err != nil {
		return fmt.Errorf("check dish type %d: %w", *typeID, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: id %d", ErrDishTypeNotFound, *typeID)
	}
	return nil
}
