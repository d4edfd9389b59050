package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string
	LogLevel       string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Auth AuthConfig

	Booking BookingPolicy

	// Location is used to interpret calendar-date query parameters (from/to) and the default window.
	Location *time.Location

	// DashboardAllowedOrigins is a comma-separated allowlist of origins allowed to call the API
	// from the dashboard front-end. Example:
	//   https://ops.taskwhisker.com,http://localhost:3000
	DashboardAllowedOrigins []string

	// OTLPEndpoint enables trace export when set (host:port of an OTLP gRPC collector).
	OTLPEndpoint string

	Seed SeedConfig
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret  string
	SessionTTL time.Duration
}

// BookingPolicy holds the operator-facing rules of the booking lifecycle.
// It can be overridden by the YAML file named in CONFIG_FILE.
type BookingPolicy struct {
	PlatformFeePercent             decimal.Decimal `yaml:"platform_fee_percent"`
	CancelReasonRequiredForRequest bool            `yaml:"cancel_reason_required_for_requested"`
	CancelReasons                  []string        `yaml:"cancel_reasons"`
}

// SeedConfig is only read by cmd/dev/seed.
type SeedConfig struct {
	OperatorEmail    string
	OperatorName     string
	OperatorPassword string
	SitterEmail      string
	SitterName       string
	SitterPassword   string
}

var defaultCancelReasons = "Client requested,No availability,Weather"

func Load() (Config, error) {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	loc := time.Local
	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("APP_TIMEZONE: %w", err)
		}
		loc = l
	}

	ttl, err := envDuration("SESSION_TTL", 12*time.Hour)
	if err != nil {
		return Config{}, err
	}

	feePercent, err := decimal.NewFromString(env("PLATFORM_FEE_PERCENT", "10"))
	if err != nil {
		return Config{}, fmt.Errorf("PLATFORM_FEE_PERCENT: %w", err)
	}

	cfg := Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		LogLevel:       env("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "taskwhisker"),
			User:     env("DB_USER", "taskwhisker"),
			Password: env("DB_PASSWORD", "taskwhisker"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:  os.Getenv("JWT_SECRET"),
			SessionTTL: ttl,
		},
		Booking: BookingPolicy{
			PlatformFeePercent:             feePercent,
			CancelReasonRequiredForRequest: envBool("CANCEL_REASON_REQUIRED_FOR_REQUESTED", false),
			CancelReasons:                  envList("CANCEL_REASONS", defaultCancelReasons),
		},
		Location:                loc,
		DashboardAllowedOrigins: envList("DASHBOARD_ALLOWED_ORIGINS", "http://localhost:3000"),
		OTLPEndpoint:            os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Seed: SeedConfig{
			OperatorEmail:    os.Getenv("SEED_OPERATOR_EMAIL"),
			OperatorName:     env("SEED_OPERATOR_NAME", "Operator"),
			OperatorPassword: os.Getenv("SEED_OPERATOR_PASSWORD"),
			SitterEmail:      os.Getenv("SEED_SITTER_EMAIL"),
			SitterName:       env("SEED_SITTER_NAME", "Sitter"),
			SitterPassword:   os.Getenv("SEED_SITTER_PASSWORD"),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadPolicyFile(path, &cfg.Booking); err != nil {
			return Config{}, err
		}
	}

	if fee := cfg.Booking.PlatformFeePercent; fee.Sign() <= 0 || fee.GreaterThan(maxFeePercent) {
		return Config{}, fmt.Errorf("PLATFORM_FEE_PERCENT: %s is outside (0, 100]", fee)
	}

	if cfg.Auth.JWTSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("JWT_SECRET is required when APP_ENV=%q", cfg.AppEnv)
		}
		cfg.Auth.JWTSecret = "dev-only-secret"
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

// loadPolicyFile overlays the booking policy with values from a YAML file.
// Keys missing from the file keep their environment values.
func loadPolicyFile(path string, p *BookingPolicy) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var doc struct {
		Booking BookingPolicy `yaml:"booking"`
	}
	doc.Booking = *p
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}
	*p = doc.Booking
	return nil
}

var maxFeePercent = decimal.NewFromInt(100)

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
