package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNormalizeGender(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value string
		want  string
	}{
		{"F", GenderFemale},
		{" male ", GenderMale},
		{"", GenderAny},
		{"other", GenderAny},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeGender(tt.value); got != tt.want {
				t.Fatalf("NormalizeGender(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestDailyNormHooksStampModification(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:daily-norm-hooks?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(&Micronutrient{}, &DailyNorm{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	original := NowFunc
	t.Cleanup(func() { NowFunc = original })

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	NowFunc = func() time.Time { return created }

	vitaminC := Micronutrient{Name: "Vitamin C", Unit: "mg"}
	if err := db.Create(&vitaminC).Error; err != nil {
		t.Fatalf("create micronutrient: %v", err)
	}
	norm := DailyNorm{MicronutrientID: vitaminC.ID, AgeGroup: " Adult ", Gender: "F", Amount: decimal.NewFromInt(75)}
	if err := db.Create(&norm).Error; err != nil {
		t.Fatalf("create norm: %v", err)
	}
	if norm.AgeGroup != "adult" || norm.Gender != GenderFemale {
		t.Fatalf("expected normalized key, got %q/%q", norm.AgeGroup, norm.Gender)
	}
	if !norm.ModifiedAt.Equal(created) || norm.ModifiedAt.Location() != time.UTC {
		t.Fatalf("expected UTC creation stamp, got %s", norm.ModifiedAt)
	}

	updated := created.Add(48 * time.Hour)
	NowFunc = func() time.Time { return updated }
	if err := db.Model(&norm).Updates(map[string]any{"amount": decimal.NewFromInt(90)}).Error; err != nil {
		t.Fatalf("update norm: %v", err)
	}

	var reloaded DailyNorm
	if err := db.First(&reloaded, norm.ID).Error; err != nil {
		t.Fatalf("reload norm: %v", err)
	}
	if !reloaded.ModifiedAt.Equal(updated) {
		t.Fatalf("expected modification stamp %s, got %s", updated, reloaded.ModifiedAt)
	}
	if !reloaded.Amount.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected amount 90, got %s", reloaded.Amount)
	}
}
