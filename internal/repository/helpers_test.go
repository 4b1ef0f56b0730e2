package repository

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trailquest/trailquest/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db.Exec("PRAGMA foreign_keys = ON")

	wrapped := &DB{db}
	if err := wrapped.AutoMigrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })

	return wrapped
}

// createTestUser creates a user row.
func createTestUser(t *testing.T, db *DB, id uint) *models.User {
	t.Helper()

	user := &models.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id)}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// createTestHunt creates a hunt with the given clue point values, orders 1..n.
func createTestHunt(t *testing.T, db *DB, title string, points ...int) *models.Hunt {
	t.Helper()

	hunt := &models.Hunt{
		Title:      title,
		Slug:       fmt.Sprintf("%s-%d", title, len(points)),
		Category:   "History",
		Difficulty: "Easy",
		Price:      decimal.Zero,
	}
	for i, p := range points {
		hunt.Clues = append(hunt.Clues, models.Clue{
			Order:  i + 1,
			Title:  fmt.Sprintf("Clue %d", i+1),
			Answer: fmt.Sprintf("answer %d", i+1),
			Points: p,
		})
	}
	if err := NewHuntRepository(db).Create(hunt); err != nil {
		t.Fatalf("Failed to create test hunt: %v", err)
	}
	return hunt
}
