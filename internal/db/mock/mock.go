package mock

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appdb "tavola/internal/db"
	applog "tavola/internal/log"
	"tavola/internal/menu"
	"tavola/models"
)

const (
	// DemoEmail and DemoPassword sign in to the seeded back office.
	DemoEmail    = "rosa@tavola.app"
	DemoPassword = "trattoria"
)

type ingredientSeed struct {
	name      string
	calories  string
	price     string
	weight    string
	available bool
	densities map[string]string
}

type dishSeed struct {
	name        string
	dishType    string
	price       string
	minutes     int
	active      bool
	composition map[string]string
}

var micronutrientSeeds = []struct{ name, unit string }{
	{"Vitamin C", "mg"},
	{"Iron", "mg"},
	{"Calcium", "mg"},
	{"Vitamin A", "µg"},
}

var normSeeds = []struct{ micronutrient, ageGroup, gender, amount string }{
	{"Vitamin C", "19-30", models.GenderAny, "80"},
	{"Vitamin C", "19-30", models.GenderFemale, "75"},
	{"Iron", "19-30", models.GenderMale, "8"},
	{"Iron", "19-30", models.GenderFemale, "18"},
	{"Calcium", "19-30", models.GenderAny, "1000"},
	{"Vitamin A", "19-30", models.GenderAny, "800"},
}

var ingredientSeeds = []ingredientSeed{
	{name: "Tomato", calories: "18", price: "2.40", weight: "1000", available: true, densities: map[string]string{"Vitamin C": "14", "Vitamin A": "42"}},
	{name: "Onion", calories: "40", price: "1.10", weight: "1000", available: true, densities: map[string]string{"Vitamin C": "7.4", "Calcium": "23"}},
	{name: "Olive oil", calories: "884", price: "9.80", weight: "1000", available: true},
	{name: "Basil", calories: "23", price: "3.50", weight: "100", available: true, densities: map[string]string{"Vitamin A": "264", "Iron": "3.2"}},
	{name: "Spaghetti", calories: "371", price: "2.10", weight: "1000", available: true, densities: map[string]string{"Iron": "3.3"}},
	{name: "Parmesan", calories: "431", price: "21.00", weight: "1000", available: true, densities: map[string]string{"Calcium": "1184"}},
	{name: "Mascarpone", calories: "429", price: "8.60", weight: "500", available: false, densities: map[string]string{"Calcium": "143"}},
	{name: "Ladyfingers", calories: "391", price: "4.20", weight: "400", available: true},
}

var dishSeeds = []dishSeed{
	{name: "Tomato soup", dishType: "Soups", price: "6.50", minutes: 35, active: true, composition: map[string]string{"Tomato": "250", "Onion": "40", "Olive oil": "10", "Basil": "5"}},
	{name: "Spaghetti al pomodoro", dishType: "Mains", price: "11.00", minutes: 20, active: true, composition: map[string]string{"Spaghetti": "120", "Tomato": "150", "Olive oil": "15", "Parmesan": "20"}},
	{name: "Tiramisu", dishType: "Desserts", price: "7.50", minutes: 30, active: false, composition: map[string]string{"Mascarpone": "100", "Ladyfingers": "60"}},
}

// New returns an in-memory sqlite database seeded with a small trattoria menu.
// Every derived figure is produced by the menu engine.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:tavola-mock?mode=memory&cache=shared"), appdb.GormConfig(logger.Silent))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := appdb.AutoMigrate(db); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:         "Rosa Trattoria",
		Email:        DemoEmail,
		PasswordHash: string(password),
		Role:         models.RoleManager,
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}

	engine := menu.New(db)

	micronutrients := make(map[string]uint, len(micronutrientSeeds))
	for _, s := range micronutrientSeeds {
		m, err := engine.CreateMicronutrient(ctx, s.name, s.unit)
		if err != nil {
			return err
		}
		micronutrients[s.name] = m.ID
	}

	for _, s := range normSeeds {
		if _, err := engine.UpsertDailyNorm(ctx, menu.NormInput{
			MicronutrientID: micronutrients[s.micronutrient],
			AgeGroup:        s.ageGroup,
			Gender:          s.gender,
			Amount:          decimal.RequireFromString(s.amount),
		}); err != nil {
			return fmt.Errorf("seed norm for %s: %w", s.micronutrient, err)
		}
	}

	ingredients := make(map[string]uint, len(ingredientSeeds))
	for _, s := range ingredientSeeds {
		ingredient, err := engine.CreateIngredient(ctx, menu.IngredientInput{
			Name:      s.name,
			Calories:  decimal.RequireFromString(s.calories),
			Price:     decimal.RequireFromString(s.price),
			Weight:    decimal.RequireFromString(s.weight),
			Available: s.available,
		})
		if err != nil {
			return fmt.Errorf("seed ingredient %s: %w", s.name, err)
		}
		ingredients[s.name] = ingredient.ID

		densities := make([]menu.DensityInput, 0, len(s.densities))
		for name, amount := range s.densities {
			densities = append(densities, menu.DensityInput{
				MicronutrientID: micronutrients[name],
				Amount:          decimal.RequireFromString(amount),
			})
		}
		if _, err := engine.SetIngredientMicronutrients(ctx, ingredient.ID, densities); err != nil {
			return fmt.Errorf("seed densities of %s: %w", s.name, err)
		}
	}

	dishTypes := make(map[string]uint)
	for _, s := range dishSeeds {
		typeID, ok := dishTypes[s.dishType]
		if !ok {
			dishType, err := engine.CreateDishType(ctx, s.dishType)
			if err != nil {
				return err
			}
			typeID = dishType.ID
			dishTypes[s.dishType] = typeID
		}

		dish, err := engine.CreateDish(ctx, menu.DishInput{
			Name:               s.name,
			Price:              decimal.RequireFromString(s.price),
			TypeID:             &typeID,
			CookingTimeMinutes: s.minutes,
		})
		if err != nil {
			return fmt.Errorf("seed dish %s: %w", s.name, err)
		}
		for name, quantity := range s.composition {
			if _, err := engine.AddComposition(ctx, menu.CompositionInput{
				DishID:       dish.ID,
				IngredientID: ingredients[name],
				Quantity:     decimal.RequireFromString(quantity),
			}); err != nil {
				return fmt.Errorf("seed composition of %s: %w", s.name, err)
			}
		}
		if s.active {
			if _, err := engine.SetDishActive(ctx, dish.ID, true); err != nil {
				return fmt.Errorf("activate %s: %w", s.name, err)
			}
		}
	}

	applog.Info(ctx, "mock database seeded", "dishes", len(dishSeeds), "ingredients", len(ingredientSeeds))
	return nil
}
