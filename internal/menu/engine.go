// Package menu keeps the derived nutrition figures of the menu consistent
// with dish compositions.
//
// Three components run synchronously inside the store transaction that
// provokes them: the calorie aggregator recomputes Dish.TotalCalories on
// every composition write, the nutrition projector derives micronutrient
// profiles on read, and the availability guard vetoes activating a dish
// that uses an unavailable ingredient.
package menu

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tavola/internal/metrics"
	"tavola/models"
)

const tracerName = "tavola/internal/menu"

// Engine is the calling layer that wires the aggregator, projector and guard
// around gorm transactions.
type Engine struct {
	db      *gorm.DB
	metrics *metrics.Registry
	tracer  trace.Tracer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics records engine activity on reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(e *Engine) {
		e.metrics = reg
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// New builds an Engine on top of db.
func New(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DB returns the underlying store handle.
func (e *Engine) DB() *gorm.DB {
	return e.db
}

func (e *Engine) transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if e == nil || e.db == nil {
		return gorm.ErrInvalidDB
	}
	return e.db.WithContext(ctx).Transaction(fn)
}

// inTx runs fn on tx when the caller already owns a transaction and opens one otherwise.
func (e *Engine) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx.WithContext(ctx))
	}
	return e.transact(ctx, fn)
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func forShare() clause.Locking {
	return clause.Locking{Strength: "SHARE"}
}

// lockDish loads the dish and holds its row lock until the transaction ends.
func lockDish(tx *gorm.DB, dishID uint) (*models.Dish, error) {
	var dish models.Dish
	if err := tx.Clauses(forUpdate()).First(&dish, dishID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrDishNotFound, dishID)
		}
		return nil, fmt.Errorf("lock dish %d: %w", dishID, err)
	}
	return &dish, nil
}

// lockDishes locks several dishes in ascending id order.
func lockDishes(tx *gorm.DB, ids ...uint) error {
	for _, id := range uniqueSorted(ids) {
		if _, err := lockDish(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func uniqueSorted(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	ordered := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return ordered
}

func lockIngredient(tx *gorm.DB, ingredientID uint, locking clause.Locking) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := tx.Clauses(locking).First(&ingredient, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrIngredientNotFound, ingredientID)
		}
		return nil, fmt.Errorf("load ingredient %d: %w", ingredientID, err)
	}
	return &ingredient, nil
}
