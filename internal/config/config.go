package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Business  BusinessConfig  `mapstructure:"business"`
	Health    HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	Timeout         string `mapstructure:"DATABASE_TIMEOUT"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	OverdueSpec  string `mapstructure:"SCHEDULER_OVERDUE_SPEC"`
	DueSoonSpec  string `mapstructure:"SCHEDULER_DUE_SOON_SPEC"`
	DueSoonDays  int    `mapstructure:"SCHEDULER_DUE_SOON_DAYS"`
	Timezone     string `mapstructure:"SCHEDULER_TIMEZONE"`
	SweepTimeout string `mapstructure:"SCHEDULER_SWEEP_TIMEOUT"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// BusinessConfig carries the monetary policy knobs. Rates are decimal
// strings so no float ever touches money.
type BusinessConfig struct {
	OperatingAccountID     string `mapstructure:"OPERATING_ACCOUNT_ID"`
	PrematurePenaltyRate   string `mapstructure:"PREMATURE_PENALTY_RATE"`
	EarlyClosureRebateRate string `mapstructure:"EARLY_CLOSURE_REBATE_RATE"`
	ReferrerCommissionRate string `mapstructure:"REFERRER_COMMISSION_RATE"`
	AllowPartialLoan       bool   `mapstructure:"ALLOW_PARTIAL_LOAN"`
	AllowPartialDeposit    bool   `mapstructure:"ALLOW_PARTIAL_DEPOSIT"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DATABASE_TIMEOUT", "5s")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SCHEDULER_OVERDUE_SPEC", "0 0 0 * * *")
	viper.SetDefault("SCHEDULER_DUE_SOON_SPEC", "0 0 9 * * *")
	viper.SetDefault("SCHEDULER_DUE_SOON_DAYS", 3)
	viper.SetDefault("SCHEDULER_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("SCHEDULER_SWEEP_TIMEOUT", "2m")
	viper.SetDefault("OPERATING_ACCOUNT_ID", "")
	viper.SetDefault("PREMATURE_PENALTY_RATE", "0.02")
	viper.SetDefault("EARLY_CLOSURE_REBATE_RATE", "0")
	viper.SetDefault("REFERRER_COMMISSION_RATE", "0")
	viper.SetDefault("ALLOW_PARTIAL_LOAN", false)
	viper.SetDefault("ALLOW_PARTIAL_DEPOSIT", false)
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Load .env into the process environment if present, then read from
	// environment variables. A missing .env file is not an error.
	_ = godotenv.Load()
	_ = godotenv.Load("deployments/.env")
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Business.OperatingAccountID == "" {
		return fmt.Errorf("OPERATING_ACCOUNT_ID is required")
	}

	for _, rate := range []struct{ name, value string }{
		{"PREMATURE_PENALTY_RATE", c.Business.PrematurePenaltyRate},
		{"EARLY_CLOSURE_REBATE_RATE", c.Business.EarlyClosureRebateRate},
		{"REFERRER_COMMISSION_RATE", c.Business.ReferrerCommissionRate},
	} {
		if _, err := decimal.NewFromString(rate.value); err != nil {
			return fmt.Errorf("%s must be a valid decimal: %w", rate.name, err)
		}
	}

	for _, d := range []struct{ name, value string }{
		{"DATABASE_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime},
		{"DATABASE_TIMEOUT", c.Database.Timeout},
		{"SCHEDULER_SWEEP_TIMEOUT", c.Scheduler.SweepTimeout},
		{"HEALTH_CHECK_TIMEOUT", c.Health.Timeout},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", d.name, err)
		}
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetPrematurePenaltyRate returns the premature closure penalty as decimal
func (c *Config) GetPrematurePenaltyRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.PrematurePenaltyRate)
	return rate
}

// GetEarlyClosureRebateRate returns the loan early closure rebate as decimal
func (c *Config) GetEarlyClosureRebateRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.EarlyClosureRebateRate)
	return rate
}

// GetReferrerCommissionRate returns the referrer commission rate as decimal
func (c *Config) GetReferrerCommissionRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.ReferrerCommissionRate)
	return rate
}

// GetStorageTimeout returns the per-call persistence timeout
func (c *Config) GetStorageTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Database.Timeout)
	return timeout
}

// GetConnMaxLifetime returns the database connection max lifetime
func (c *Config) GetConnMaxLifetime() time.Duration {
	lifetime, _ := time.ParseDuration(c.Database.ConnMaxLifetime)
	return lifetime
}

// GetSweepTimeout returns the overdue sweep timeout
func (c *Config) GetSweepTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Scheduler.SweepTimeout)
	return timeout
}

// GetHealthTimeout returns the health check timeout
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// AllowPartial reports whether partial collection is allowed for a category.
func (c *Config) AllowPartial(category string) bool {
	if category == "Loan" {
		return c.Business.AllowPartialLoan
	}
	return c.Business.AllowPartialDeposit
}
