package db

import (
	"testing"

	"tavola/internal/config"
	"tavola/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestInitializeRequiresURL(t *testing.T) {
	t.Parallel()

	db, err := Initialize(config.DatabaseConfig{URL: ""})
	if err == nil {
		t.Fatal("expected error when database URL is empty")
	}
	if db != nil {
		t.Fatal("expected returned db handle to be nil on error")
	}
}

func TestDialectorForSelectsDriver(t *testing.T) {
	t.Parallel()

	if _, ok := dialectorFor("sqlite://file:menu?mode=memory").(*sqlite.Dialector); !ok {
		t.Fatal("expected sqlite dialector for sqlite:// URLs")
	}
	if _, ok := dialectorFor("postgres://localhost/menu").(*postgres.Dialector); !ok {
		t.Fatal("expected postgres dialector for other URLs")
	}
}

func TestAutoMigrateRejectsNilDatabase(t *testing.T) {
	t.Parallel()

	if err := AutoMigrate(nil); err == nil {
		t.Fatal("expected error when database handle is nil")
	}
}

func TestAutoMigrateWithSQLite(t *testing.T) {
	t.Parallel()

	sqliteDB, err := gorm.Open(sqlite.Open("file:db-automigrate?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}

	if err := AutoMigrate(sqliteDB); err != nil {
		t.Fatalf("automigrate sqlite database: %v", err)
	}

	for _, table := range []any{&models.Dish{}, &models.DishComposition{}, &models.DailyNorm{}} {
		if !sqliteDB.Migrator().HasTable(table) {
			t.Fatalf("expected table for %T", table)
		}
	}
	if !sqliteDB.Migrator().HasIndex(&models.DishComposition{}, "idx_dish_ingredient") {
		t.Fatal("expected unique dish/ingredient index")
	}
}

func TestConfigureWithSQLiteURL(t *testing.T) {
	t.Parallel()

	database, err := Configure(config.DatabaseConfig{URL: "sqlite://file:db-configure?mode=memory&cache=shared", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Configure returned error: %v", err)
	}
	if !database.Migrator().HasTable(&models.Ingredient{}) {
		t.Fatal("expected ingredients table after Configure")
	}
}

func TestConfigurePropagatesInitializationError(t *testing.T) {
	t.Parallel()

	if _, err := Configure(config.DatabaseConfig{}); err == nil {
		t.Fatal("expected configuration error when initialize fails")
	}
}

func TestMustConfigurePanicsOnError(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when configuration fails")
		}
	}()

	MustConfigure(config.DatabaseConfig{})
}
