package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/trailquest/trailquest/internal/api"
	billingapi "github.com/trailquest/trailquest/internal/api/billing"
	creatorapi "github.com/trailquest/trailquest/internal/api/creator"
	"github.com/trailquest/trailquest/internal/api/dashboard"
	"github.com/trailquest/trailquest/internal/api/middleware"
	playapi "github.com/trailquest/trailquest/internal/api/play"
	"github.com/trailquest/trailquest/internal/cache"
	"github.com/trailquest/trailquest/internal/config"
	"github.com/trailquest/trailquest/internal/gateway"
	"github.com/trailquest/trailquest/internal/notify"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/internal/service/access"
	"github.com/trailquest/trailquest/internal/service/attempts"
	"github.com/trailquest/trailquest/internal/service/badges"
	"github.com/trailquest/trailquest/internal/service/creator"
	"github.com/trailquest/trailquest/internal/service/judge"
	"github.com/trailquest/trailquest/internal/service/leaderboard"
	"github.com/trailquest/trailquest/internal/service/payments"
	"github.com/trailquest/trailquest/internal/service/progress"
	"github.com/trailquest/trailquest/internal/service/scheduler"
	"github.com/trailquest/trailquest/pkg/logger"
)

// lockWait is how long an answer submission waits for a concurrent one on the same hunt.
const lockWait = 2 * time.Second

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.Postgres.MigrateOnStart {
		if err := db.Migrate(log); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		return err
	}
	defer func() { _ = redisCache.Close() }()

	store := repository.NewStore(db)
	ctx := context.Background()

	badgeSvc := badges.NewService(store, log.Component("badges"))
	created, err := badgeSvc.SeedCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed badge catalog: %w", err)
	}
	log.Info().Int("created", created).Msg("Badge catalog seeded")

	gate := access.NewGate(store)
	tracker := attempts.NewTracker(store, log.Component("attempts"))
	engine := progress.NewEngine(store, badgeSvc, log.Component("progress"))
	locker := cache.NewLocker(redisCache, cfg.Play.LockTTLDuration(), lockWait)
	answerJudge := judge.NewJudge(store, gate, tracker, engine, locker, cfg.Play, log.Component("judge"))

	var alerter notify.Alerter
	if cfg.Alerts.Enabled {
		alerter = notify.NewClient(&cfg.Alerts, log.Component("notify"))
	}
	paymentSvc := payments.NewService(store, gateway.NewClient(&cfg.Gateway, log.Component("gateway")),
		alerter, cfg.Billing, log.Component("payments"))

	authoring := creator.NewService(store, cfg.Billing.Fee(), log.Component("creator"))
	rankings := leaderboard.NewService(store, log.Component("leaderboard"))

	sweeper := scheduler.NewService(cfg.Scheduler, store.Billing, paymentSvc, log.Component("scheduler"))
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sweeper.Stop()

	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.RouterOptions{
		Metrics: cfg.Metrics.Prometheus,
		Auth:    middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer, store.Users, log.Component("auth")),
		Checks: map[string]api.HealthCheck{
			"database": func(context.Context) error { return db.Health() },
			"redis":    redisCache.Health,
		},
		Handlers: []api.RouteRegistrar{
			playapi.NewHandler(answerJudge, store.Hunts, gate, engine, log.Component("play")),
			billingapi.NewHandler(paymentSvc, log.Component("billing")),
			creatorapi.NewHandler(authoring, log.Component("creator")),
			dashboard.NewHandler(badgeSvc, rankings, log.Component("dashboard")),
		},
		Log: log.Component("http"),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("environment", cfg.Server.Environment).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}
