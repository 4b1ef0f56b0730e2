// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Play      PlayConfig      `mapstructure:"play"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"` // "development" runs gin in debug mode
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	MigrateOnStart  bool   `mapstructure:"migrate_on_start"`
}

// DSN renders the libpq connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig contains Redis connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig contains the bearer token verification settings.
// Tokens are issued by the external login service.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// GatewayConfig contains payment gateway connection settings.
type GatewayConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	SecretKey   string `mapstructure:"secret_key"`
	Currency    string `mapstructure:"currency"`
	CallbackURL string `mapstructure:"callback_url"`
	Timeout     int    `mapstructure:"timeout"` // seconds
	MaxRetries  int    `mapstructure:"max_retries"`
}

// BillingConfig contains prices charged through the gateway, in major currency units.
type BillingConfig struct {
	DeploymentFee string `mapstructure:"deployment_fee"`
	MonthlyPrice  string `mapstructure:"monthly_price"`
	YearlyPrice   string `mapstructure:"yearly_price"`
}

// Fee parses the deployment fee.
func (c *BillingConfig) Fee() decimal.Decimal {
	return decimal.RequireFromString(c.DeploymentFee)
}

// PlanPrice returns the price of a subscription plan.
func (c *BillingConfig) PlanPrice(plan string) (decimal.Decimal, error) {
	switch plan {
	case "monthly":
		return decimal.NewFromString(c.MonthlyPrice)
	case "yearly":
		return decimal.NewFromString(c.YearlyPrice)
	default:
		return decimal.Zero, fmt.Errorf("unknown plan %q", plan)
	}
}

// PlayConfig contains the attempt escalation ladder and lock settings.
type PlayConfig struct {
	HintThreshold   int    `mapstructure:"hint_threshold"`
	BypassThreshold int    `mapstructure:"bypass_threshold"`
	BypassPrompt    string `mapstructure:"bypass_prompt"`
	LockTTL         int    `mapstructure:"lock_ttl"` // seconds
}

// SchedulerConfig contains the pending payment sweep settings.
type SchedulerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ReconcileCron string `mapstructure:"reconcile_cron"`
	PendingMinAge int    `mapstructure:"pending_min_age"` // minutes
	PendingMaxAge int    `mapstructure:"pending_max_age"` // minutes
	Timezone      string `mapstructure:"timezone"`
	MaxPerSweep   int    `mapstructure:"max_per_sweep"`
}

// AlertsConfig contains the ops webhook used for payments that need manual follow-up.
type AlertsConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Enabled    bool   `mapstructure:"enabled"`
}

// MetricsConfig contains metrics exporter settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "production")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)
	v.SetDefault("gateway.base_url", "https://api.paystack.co")
	v.SetDefault("gateway.currency", "KES")
	v.SetDefault("gateway.timeout", 15)
	v.SetDefault("gateway.max_retries", 3)
	v.SetDefault("billing.deployment_fee", "50")
	v.SetDefault("billing.monthly_price", "500")
	v.SetDefault("billing.yearly_price", "5000")
	v.SetDefault("play.hint_threshold", 3)
	v.SetDefault("play.bypass_threshold", 4)
	v.SetDefault("play.bypass_prompt", "Stuck? You can skip this clue. Skipped clues award no points.")
	v.SetDefault("play.lock_ttl", 10)
	v.SetDefault("scheduler.reconcile_cron", "*/5 * * * *")
	v.SetDefault("scheduler.pending_min_age", 5)
	v.SetDefault("scheduler.pending_max_age", 1440)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.max_per_sweep", 100)
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/trailquest/")
	}

	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.migrate_on_start", "POSTGRES_MIGRATE_ON_START")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")

	// Auth
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("auth.issuer", "JWT_ISSUER")

	// Payment gateway
	_ = v.BindEnv("gateway.base_url", "GATEWAY_BASE_URL")
	_ = v.BindEnv("gateway.secret_key", "GATEWAY_SECRET_KEY", "PAYSTACK_SECRET_KEY")
	_ = v.BindEnv("gateway.currency", "GATEWAY_CURRENCY")
	_ = v.BindEnv("gateway.callback_url", "GATEWAY_CALLBACK_URL")

	// Billing
	_ = v.BindEnv("billing.deployment_fee", "BILLING_DEPLOYMENT_FEE")

	// Alerts
	_ = v.BindEnv("alerts.webhook_url", "ALERTS_WEBHOOK_URL")
	_ = v.BindEnv("alerts.enabled", "ALERTS_ENABLED")

	// Scheduler
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.reconcile_cron", "SCHEDULER_RECONCILE_CRON")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Gateway.SecretKey == "" {
		return fmt.Errorf("gateway.secret_key is required")
	}
	fee, err := decimal.NewFromString(c.Billing.DeploymentFee)
	if err != nil || !fee.IsPositive() {
		return fmt.Errorf("billing.deployment_fee must be a positive amount")
	}
	for _, plan := range []string{"monthly", "yearly"} {
		if _, err := c.Billing.PlanPrice(plan); err != nil {
			return fmt.Errorf("billing.%s_price: %w", plan, err)
		}
	}
	if c.Play.HintThreshold < 1 || c.Play.BypassThreshold < c.Play.HintThreshold {
		return fmt.Errorf("play thresholds must satisfy 1 <= hint_threshold <= bypass_threshold")
	}
	if c.Alerts.Enabled && c.Alerts.WebhookURL == "" {
		return fmt.Errorf("alerts.webhook_url is required when alerts are enabled")
	}
	return nil
}

// LockTTLDuration returns the play lock TTL as a duration.
func (c *PlayConfig) LockTTLDuration() time.Duration {
	return time.Duration(c.LockTTL) * time.Second
}

// GetLocation returns the scheduler timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
