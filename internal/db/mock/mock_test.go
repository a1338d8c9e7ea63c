package mock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tavola/internal/menu"
	"tavola/models"
)

func TestNewSeedsConsistentMenu(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx)
	if err != nil {
		t.Fatalf("mock database initialization failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	var soup models.Dish
	if err := db.WithContext(ctx).Where("name = ?", "Tomato soup").First(&soup).Error; err != nil {
		t.Fatalf("query tomato soup: %v", err)
	}
	// 18*250/100 + 40*40/100 + 884*10/100 + 23*5/100
	if want := decimal.RequireFromString("150.55"); !soup.TotalCalories.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, soup.TotalCalories)
	}
	if !soup.Active {
		t.Fatal("expected tomato soup to be active")
	}

	var tiramisu models.Dish
	if err := db.WithContext(ctx).Where("name = ?", "Tiramisu").First(&tiramisu).Error; err != nil {
		t.Fatalf("query tiramisu: %v", err)
	}
	if tiramisu.Active {
		t.Fatal("expected tiramisu to stay inactive while mascarpone is unavailable")
	}

	drifts, err := menu.New(db).Audit(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(drifts) != 0 {
		t.Fatalf("expected seeded totals to be consistent, got %+v", drifts)
	}

	var norms int64
	if err := db.WithContext(ctx).Model(&models.DailyNorm{}).Count(&norms).Error; err != nil {
		t.Fatalf("count norms: %v", err)
	}
	if norms != int64(len(normSeeds)) {
		t.Fatalf("expected %d norms, got %d", len(normSeeds), norms)
	}

	var user models.User
	if err := db.WithContext(ctx).First(&user).Error; err != nil {
		t.Fatalf("query user: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(DemoPassword)); err != nil {
		t.Fatalf("unexpected password hash: %v", err)
	}
}
