package database

import (
	"fmt"
	"testing"

	"margin/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), Config())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSeedStatesIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 2; i++ {
		if err := SeedStates(db); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	var count int64
	if err := db.Model(&model.State{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 27 {
		t.Fatalf("expected 27 states got %d", count)
	}

	var pr model.State
	if err := db.First(&pr, "code = ?", "PR").Error; err != nil {
		t.Fatalf("load PR: %v", err)
	}
	if pr.Name != "Paraná" {
		t.Fatalf("unexpected name %q", pr.Name)
	}
}
