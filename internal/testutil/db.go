// Package testutil builds in-memory stores and seed data for service and handler tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/repository"
)

// NewStore opens an in-memory SQLite database with the full schema.
// A single connection keeps every query on the same in-memory database, so code
// running inside Store.InTx must only touch the transaction store.
func NewStore(t *testing.T) *repository.Store {
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

	wrapped := &repository.DB{DB: db}
	if err := wrapped.AutoMigrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	return repository.NewStore(wrapped)
}

// HuntOption customizes a seeded hunt.
type HuntOption func(*models.Hunt)

// WithCategory sets category and difficulty.
func WithCategory(category, difficulty string) HuntOption {
	return func(h *models.Hunt) {
		h.Category = category
		h.Difficulty = difficulty
	}
}

// WithPrice makes the hunt priced.
func WithPrice(price string) HuntOption {
	return func(h *models.Hunt) {
		h.Price = decimal.RequireFromString(price)
	}
}

// AdminOnly hides the hunt from regular users.
func AdminOnly() HuntOption {
	return func(h *models.Hunt) {
		h.AdminOnly = true
	}
}

// AutoAccept makes every answer correct.
func AutoAccept() HuntOption {
	return func(h *models.Hunt) {
		h.AutoAcceptAnswers = true
	}
}

// WithHint sets the hint of every clue.
func WithHint(hint string) HuntOption {
	return func(h *models.Hunt) {
		for i := range h.Clues {
			h.Clues[i].Hint = hint
		}
	}
}

var huntSeq int

// SeedHunt creates a free hunt whose clues carry the given points. Clue n
// answers "answer n" and narrates "story n".
func SeedHunt(t *testing.T, st *repository.Store, points []int, opts ...HuntOption) *models.Hunt {
	t.Helper()

	huntSeq++
	hunt := &models.Hunt{
		Title:      fmt.Sprintf("Hunt %d", huntSeq),
		Slug:       fmt.Sprintf("hunt-%d", huntSeq),
		Category:   "History",
		Difficulty: "Easy",
		Price:      decimal.Zero,
	}
	for i, p := range points {
		hunt.Clues = append(hunt.Clues, models.Clue{
			Order:     i + 1,
			Title:     fmt.Sprintf("Clue %d", i+1),
			Answer:    fmt.Sprintf("answer %d", i+1),
			Narrative: fmt.Sprintf("story %d", i+1),
			Points:    p,
		})
	}
	for _, opt := range opts {
		opt(hunt)
	}

	if err := st.Hunts.Create(hunt); err != nil {
		t.Fatalf("Failed to seed hunt: %v", err)
	}
	return hunt
}

// SeedUser creates a user and returns the matching viewer.
func SeedUser(t *testing.T, st *repository.Store, id uint, admin bool) models.Viewer {
	t.Helper()

	viewer := models.Viewer{UserID: id, Email: fmt.Sprintf("user%d@example.com", id), IsAdmin: admin}
	if _, err := st.Users.Ensure(viewer); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return viewer
}

// SeedCreatedHunt attaches a draft creator record to hunt.
func SeedCreatedHunt(t *testing.T, st *repository.Store, hunt *models.Hunt, creatorID uint, fee string) *models.UserCreatedHunt {
	t.Helper()

	hunt.CreatorID = &creatorID
	if err := st.Hunts.Update(hunt); err != nil {
		t.Fatalf("Failed to set hunt creator: %v", err)
	}

	created := &models.UserCreatedHunt{
		HuntID:          hunt.ID,
		CreatorID:       creatorID,
		Status:          models.CreatedHuntStatusDraft,
		IsDraft:         true,
		DeploymentPrice: decimal.RequireFromString(fee),
	}
	if err := st.Billing.CreateCreatedHunt(created); err != nil {
		t.Fatalf("Failed to seed creator hunt: %v", err)
	}
	return created
}
