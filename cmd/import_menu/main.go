package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
	"gorm.io/gorm"

	"tavola/internal/config"
	"tavola/internal/db"
	applog "tavola/internal/log"
	"tavola/internal/menu"
	"tavola/models"
)

type menuFile struct {
	DishTypes      []string            `yaml:"dish_types"`
	Micronutrients []micronutrientSpec `yaml:"micronutrients"`
	Norms          []normSpec          `yaml:"norms"`
	Ingredients    []ingredientSpec    `yaml:"ingredients"`
	Dishes         []dishSpec          `yaml:"dishes"`
}

type micronutrientSpec struct {
	Name string `yaml:"name"`
	Unit string `yaml:"unit"`
}

type normSpec struct {
	Micronutrient string `yaml:"micronutrient"`
	AgeGroup      string `yaml:"age_group"`
	Gender        string `yaml:"gender"`
	Amount        string `yaml:"amount"`
}

type ingredientSpec struct {
	Name           string            `yaml:"name"`
	Calories       string            `yaml:"calories"`
	Price          string            `yaml:"price"`
	Weight         string            `yaml:"weight"`
	Available      *bool             `yaml:"available"`
	Micronutrients map[string]string `yaml:"micronutrients"`
}

type dishSpec struct {
	Name        string          `yaml:"name"`
	Type        string          `yaml:"type"`
	Price       string          `yaml:"price"`
	CookingTime int             `yaml:"cooking_time"`
	Active      bool            `yaml:"active"`
	Composition []componentSpec `yaml:"composition"`
}

type componentSpec struct {
	Ingredient string `yaml:"ingredient"`
	Quantity   string `yaml:"quantity"`
	Unit       string `yaml:"unit"`
}

type summary struct {
	DishTypes          int
	Micronutrients     int
	Norms              int
	Ingredients        int
	Dishes             int
	Compositions       int
	Recomputed         int
	RejectedActivation []string
}

func main() {
	path := "menu.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	if err := run(context.Background(), path); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	file, err := loadMenuFile(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}

	database, err := db.Configure(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	result, err := importMenu(ctx, menu.New(database), file)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d dish types, %d micronutrients, %d norms, %d ingredients, %d dishes (%d composition rows); recomputed %d dishes\n",
		result.DishTypes, result.Micronutrients, result.Norms, result.Ingredients, result.Dishes, result.Compositions, result.Recomputed)
	for _, name := range result.RejectedActivation {
		fmt.Printf("left inactive: %s\n", name)
	}
	return nil
}

func loadMenuFile(path string) (menuFile, error) {
	if strings.TrimSpace(path) == "" {
		return menuFile{}, fmt.Errorf("menu file path must not be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return menuFile{}, fmt.Errorf("read menu file: %w", err)
	}
	var file menuFile
	if err := yaml.UnmarshalStrict(raw, &file); err != nil {
		return menuFile{}, fmt.Errorf("parse menu file: %w", err)
	}
	return file, nil
}

// importMenu loads file through the engine. Existing rows are matched by
// name and updated, so importing the same file twice is harmless.
func importMenu(ctx context.Context, eng *menu.Engine, file menuFile) (summary, error) {
	var result summary
	store := eng.DB().WithContext(ctx)

	typeIDs := make(map[string]uint, len(file.DishTypes))
	for _, name := range file.DishTypes {
		var existing models.DishType
		err := store.Where("name = ?", strings.TrimSpace(name)).First(&existing).Error
		switch {
		case err == nil:
			typeIDs[existing.Name] = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			created, err := eng.CreateDishType(ctx, name)
			if err != nil {
				return result, fmt.Errorf("dish type %q: %w", name, err)
			}
			typeIDs[created.Name] = created.ID
			result.DishTypes++
		default:
			return result, fmt.Errorf("find dish type %q: %w", name, err)
		}
	}

	microIDs := make(map[string]uint, len(file.Micronutrients))
	for _, spec := range file.Micronutrients {
		var existing models.Micronutrient
		err := store.Where("name = ?", strings.TrimSpace(spec.Name)).First(&existing).Error
		switch {
		case err == nil:
			microIDs[existing.Name] = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			created, err := eng.CreateMicronutrient(ctx, spec.Name, spec.Unit)
			if err != nil {
				return result, fmt.Errorf("micronutrient %q: %w", spec.Name, err)
			}
			microIDs[created.Name] = created.ID
			result.Micronutrients++
		default:
			return result, fmt.Errorf("find micronutrient %q: %w", spec.Name, err)
		}
	}

	for _, spec := range file.Norms {
		id, ok := microIDs[strings.TrimSpace(spec.Micronutrient)]
		if !ok {
			return result, fmt.Errorf("norm references unknown micronutrient %q", spec.Micronutrient)
		}
		amount, err := parseAmount("norm amount", spec.Amount)
		if err != nil {
			return result, err
		}
		if _, err := eng.UpsertDailyNorm(ctx, menu.NormInput{
			MicronutrientID: id,
			AgeGroup:        spec.AgeGroup,
			Gender:          spec.Gender,
			Amount:          amount,
		}); err != nil {
			return result, fmt.Errorf("norm %s/%s: %w", spec.Micronutrient, spec.AgeGroup, err)
		}
		result.Norms++
	}

	ingredientIDs := make(map[string]uint, len(file.Ingredients))
	for _, spec := range file.Ingredients {
		id, err := importIngredient(ctx, eng, spec, microIDs)
		if err != nil {
			return result, fmt.Errorf("ingredient %q: %w", spec.Name, err)
		}
		ingredientIDs[strings.TrimSpace(spec.Name)] = id
		result.Ingredients++
	}

	for _, spec := range file.Dishes {
		rows, active, err := importDish(ctx, eng, spec, typeIDs, ingredientIDs)
		if err != nil {
			return result, fmt.Errorf("dish %q: %w", spec.Name, err)
		}
		result.Dishes++
		result.Compositions += rows
		if spec.Active && !active {
			result.RejectedActivation = append(result.RejectedActivation, spec.Name)
		}
	}

	recomputed, err := eng.RecomputeAll(ctx)
	if err != nil {
		return result, fmt.Errorf("recompute calories: %w", err)
	}
	result.Recomputed = recomputed
	return result, nil
}

func importIngredient(ctx context.Context, eng *menu.Engine, spec ingredientSpec, microIDs map[string]uint) (uint, error) {
	calories, err := parseAmount("calories", spec.Calories)
	if err != nil {
		return 0, err
	}
	price, err := parseAmount("price", spec.Price)
	if err != nil {
		return 0, err
	}
	weight, err := parseAmount("weight", spec.Weight)
	if err != nil {
		return 0, err
	}
	input := menu.IngredientInput{
		Name:      spec.Name,
		Calories:  calories,
		Price:     price,
		Weight:    weight,
		Available: spec.Available == nil || *spec.Available,
	}

	var existing models.Ingredient
	err = eng.DB().WithContext(ctx).Where("name = ?", strings.TrimSpace(spec.Name)).First(&existing).Error
	var id uint
	switch {
	case err == nil:
		updated, err := eng.UpdateIngredient(ctx, existing.ID, input)
		if err != nil {
			return 0, err
		}
		id = updated.ID
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := eng.CreateIngredient(ctx, input)
		if err != nil {
			return 0, err
		}
		id = created.ID
	default:
		return 0, err
	}

	if len(spec.Micronutrients) == 0 {
		return id, nil
	}
	densities := make([]menu.DensityInput, 0, len(spec.Micronutrients))
	for name, raw := range spec.Micronutrients {
		microID, ok := microIDs[strings.TrimSpace(name)]
		if !ok {
			return 0, fmt.Errorf("unknown micronutrient %q", name)
		}
		amount, err := parseAmount(name, raw)
		if err != nil {
			return 0, err
		}
		densities = append(densities, menu.DensityInput{MicronutrientID: microID, Amount: amount})
	}
	if _, err := eng.SetIngredientMicronutrients(ctx, id, densities); err != nil {
		return 0, err
	}
	return id, nil
}

// importDish upserts the dish, its composition rows and finally its active
// flag. It reports whether the dish ended up active.
func importDish(ctx context.Context, eng *menu.Engine, spec dishSpec, typeIDs, ingredientIDs map[string]uint) (int, bool, error) {
	price, err := parseAmount("price", spec.Price)
	if err != nil {
		return 0, false, err
	}
	input := menu.DishInput{
		Name:               spec.Name,
		Price:              price,
		CookingTimeMinutes: spec.CookingTime,
	}
	if name := strings.TrimSpace(spec.Type); name != "" {
		id, ok := typeIDs[name]
		if !ok {
			return 0, false, fmt.Errorf("unknown dish type %q", spec.Type)
		}
		input.TypeID = &id
	}

	store := eng.DB().WithContext(ctx)
	var dish models.Dish
	err = store.Where("name = ?", strings.TrimSpace(spec.Name)).First(&dish).Error
	switch {
	case err == nil:
		updated, err := eng.UpdateDish(ctx, dish.ID, input)
		if err != nil {
			return 0, false, err
		}
		dish = *updated
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := eng.CreateDish(ctx, input)
		if err != nil {
			return 0, false, err
		}
		dish = *created
	default:
		return 0, false, err
	}

	rows := 0
	for _, component := range spec.Composition {
		ingredientID, ok := ingredientIDs[strings.TrimSpace(component.Ingredient)]
		if !ok {
			return rows, false, fmt.Errorf("unknown ingredient %q", component.Ingredient)
		}
		quantity, err := parseAmount("quantity", component.Quantity)
		if err != nil {
			return rows, false, err
		}
		in := menu.CompositionInput{DishID: dish.ID, IngredientID: ingredientID, Quantity: quantity, Unit: component.Unit}

		var existing models.DishComposition
		err = store.Where("dish_id = ? AND ingredient_id = ?", dish.ID, ingredientID).First(&existing).Error
		switch {
		case err == nil:
			_, err = eng.UpdateComposition(ctx, existing.ID, in)
		case errors.Is(err, gorm.ErrRecordNotFound):
			_, err = eng.AddComposition(ctx, in)
		}
		if err != nil {
			return rows, false, err
		}
		rows++
	}

	if dish.Active == spec.Active {
		return rows, dish.Active, nil
	}
	updated, err := eng.SetDishActive(ctx, dish.ID, spec.Active)
	if err != nil {
		var rejected *menu.ActivationError
		if errors.As(err, &rejected) {
			applog.Warn(ctx, "dish left inactive", "dish", spec.Name, "ingredients", strings.Join(rejected.Ingredients, ", "))
			return rows, false, nil
		}
		return rows, false, err
	}
	return rows, updated.Active, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q", field, raw)
	}
	return value, nil
}
