package menu

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	applog "tavola/internal/log"
	"tavola/models"
)

// Profile maps a micronutrient name to the amount a dish provides.
type Profile map[string]decimal.Decimal

// Names returns the micronutrient names in lexical order.
func (p Profile) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type profileRow struct {
	DishID   uint
	Name     sql.NullString
	Quantity decimal.NullDecimal
	Amount   decimal.NullDecimal
}

// ProjectNutrition derives the micronutrient profile of a dish from its
// current composition. It never writes and reads everything in a single
// statement, so the result matches one snapshot of the store. When tx is nil
// the engine's handle is used.
//
// A dish without composition, or whose ingredients carry no micronutrient
// data, yields an empty profile. A missing dish yields ErrDishNotFound.
func (e *Engine) ProjectNutrition(ctx context.Context, tx *gorm.DB, dishID uint) (Profile, error) {
	ctx, span := e.tracer.Start(ctx, "menu.ProjectNutrition")
	defer span.End()
	span.SetAttributes(attribute.Int64("dish.id", int64(dishID)))

	if tx == nil {
		if e == nil || e.db == nil {
			return nil, gorm.ErrInvalidDB
		}
		tx = e.db
	}

	var rows []profileRow
	err := tx.WithContext(ctx).
		Table("dishes").
		Select("dishes.id AS dish_id, micronutrients.name AS name, dish_compositions.quantity AS quantity, ingredient_micronutrients.amount AS amount").
		Joins("LEFT JOIN dish_compositions ON dish_compositions.dish_id = dishes.id").
		Joins("LEFT JOIN ingredient_micronutrients ON ingredient_micronutrients.ingredient_id = dish_compositions.ingredient_id").
		Joins("LEFT JOIN micronutrients ON micronutrients.id = ingredient_micronutrients.micronutrient_id").
		Where("dishes.id = ? AND dishes.deleted_at IS NULL", dishID).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "projection failed")
		return nil, fmt.Errorf("project nutrition of dish %d: %w", dishID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrDishNotFound, dishID)
	}

	profile := aggregateProfile(rows)
	if e.metrics != nil {
		e.metrics.Projections.Inc()
	}
	applog.Debug(ctx, "nutrition projected", "dishID", dishID, "micronutrients", len(profile))
	return profile, nil
}

func aggregateProfile(rows []profileRow) Profile {
	profile := make(Profile)
	for _, row := range rows {
		if !row.Name.Valid || !row.Quantity.Valid || !row.Amount.Valid {
			continue
		}
		contribution := row.Amount.Decimal.Mul(row.Quantity.Decimal).Div(hundred)
		profile[row.Name.String] = profile[row.Name.String].Add(contribution)
	}
	return profile
}

// NormComparison relates one micronutrient of a dish profile to the daily norm.
type NormComparison struct {
	Micronutrient string           `json:"micronutrient"`
	Unit          string           `json:"unit"`
	Amount        decimal.Decimal  `json:"amount"`
	DailyNorm     *decimal.Decimal `json:"daily_norm,omitempty"`
	PercentOfNorm *decimal.Decimal `json:"percent_of_norm,omitempty"`
}

type normRow struct {
	Name   string
	Unit   string
	Gender string
	Amount decimal.Decimal
}

// CompareWithNorms projects the dish profile and relates every entry to the
// daily norm for the age group and gender. Norms recorded for a specific
// gender win over the "any" norm. Micronutrients without a norm are returned
// with a nil DailyNorm.
func (e *Engine) CompareWithNorms(ctx context.Context, dishID uint, ageGroup, gender string) ([]NormComparison, error) {
	profile, err := e.ProjectNutrition(ctx, nil, dishID)
	if err != nil {
		return nil, err
	}

	ageGroup = models.NormalizeAgeGroup(ageGroup)
	gender = models.NormalizeGender(gender)

	var norms []normRow
	if err := e.db.WithContext(ctx).
		Table("daily_norms").
		Select("micronutrients.name AS name, micronutrients.unit AS unit, daily_norms.gender AS gender, daily_norms.amount AS amount").
		Joins("JOIN micronutrients ON micronutrients.id = daily_norms.micronutrient_id").
		Where("daily_norms.age_group = ? AND daily_norms.gender IN ?", ageGroup, []string{gender, models.GenderAny}).
		Scan(&norms).Error; err != nil {
		return nil, fmt.Errorf("load daily norms: %w", err)
	}

	units := make(map[string]string, len(norms))
	selected := make(map[string]normRow, len(norms))
	for _, norm := range norms {
		units[norm.Name] = norm.Unit
		current, ok := selected[norm.Name]
		if !ok || (current.Gender == models.GenderAny && norm.Gender != models.GenderAny) {
			selected[norm.Name] = norm
		}
	}

	if missing := missingUnits(profile, units); len(missing) > 0 {
		var rows []models.Micronutrient
		if err := e.db.WithContext(ctx).Where("name IN ?", missing).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("load micronutrient units: %w", err)
		}
		for _, row := range rows {
			units[row.Name] = row.Unit
		}
	}

	comparisons := make([]NormComparison, 0, len(profile))
	for _, name := range profile.Names() {
		amount := profile[name]
		comparison := NormComparison{
			Micronutrient: name,
			Unit:          units[name],
			Amount:        amount,
		}
		if norm, ok := selected[name]; ok {
			normAmount := norm.Amount
			comparison.DailyNorm = &normAmount
			if normAmount.IsPositive() {
				percent := amount.Div(normAmount).Mul(hundred).Round(1)
				comparison.PercentOfNorm = &percent
			}
		}
		comparisons = append(comparisons, comparison)
	}
	return comparisons, nil
}

func missingUnits(profile Profile, units map[string]string) []string {
	var missing []string
	for _, name := range profile.Names() {
		if _, ok := units[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
