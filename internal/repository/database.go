// Package repository provides data access layer using GORM for database operations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/config"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/pkg/logger"
)

// DB holds the database connection.
type DB struct {
	*gorm.DB
}

// NewDB creates a new database connection.
func NewDB(cfg *config.PostgresConfig, log *logger.Logger) (*DB, error) {
	gormLogLevel := gormlogger.Warn
	if log.IsDebug() {
		gormLogLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return &DB{db}, nil
}

// AllModels lists every persisted model in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Hunt{},
		&models.Clue{},
		&models.ClueAttempt{},
		&models.UserProgress{},
		&models.HuntCompletion{},
		&models.Purchase{},
		&models.Subscription{},
		&models.UserCreatedHunt{},
		&models.Badge{},
		&models.UserBadge{},
	}
}

// AutoMigrate creates or updates tables for all models. Production uses the
// SQL migrations in Migrate; AutoMigrate serves tests and local development.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(AllModels()...)
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database is healthy.
func (db *DB) Health() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Store groups the repositories that share one connection or one transaction.
type Store struct {
	db *DB

	Users       *UserRepository
	Hunts       *HuntRepository
	Attempts    *AttemptRepository
	Progress    *ProgressRepository
	Completions *CompletionRepository
	Badges      *BadgeRepository
	Billing     *BillingRepository
}

// NewStore builds a store over db.
func NewStore(db *DB) *Store {
	return &Store{
		db:          db,
		Users:       NewUserRepository(db),
		Hunts:       NewHuntRepository(db),
		Attempts:    NewAttemptRepository(db),
		Progress:    NewProgressRepository(db),
		Completions: NewCompletionRepository(db),
		Badges:      NewBadgeRepository(db),
		Billing:     NewBillingRepository(db),
	}
}

// DB returns the underlying connection.
func (s *Store) DB() *DB {
	return s.db
}

// InTx runs fn with a store bound to a single transaction. Returning an error
// from fn rolls the transaction back. Code inside fn must only use tx.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(NewStore(&DB{gtx}))
	})
}

// notFound translates gorm's missing-row error into the application taxonomy.
func notFound(err error, format string, args ...interface{}) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
