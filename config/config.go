// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJWTSecret is only meant for local development.
const DefaultJWTSecret = "default-dev-secret-change-me"

// Config holds every setting the server and the CLI read at startup
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Database
	DBDriver    string // postgres or sqlite
	DatabaseURL string

	// Auth
	JWTSecret       string
	JWTTTL          time.Duration
	LoginRatePerMin int
	AdminUsername   string
	AdminPassword   string

	// Borrowing
	LoanPeriodDays int

	// Files
	UploadDir string

	// Messaging
	NATSPort int
	NATSURL  string // external server; embedded server is used when empty

	// Stats cache
	RedisAddr     string
	StatsCacheTTL time.Duration

	CORSOrigins []string
}

// Load reads the environment into a Config, applying defaults.
// Call godotenv.Load before this if a .env file should be honoured.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "3001"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:     getEnv("JWT_SECRET", DefaultJWTSecret),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		UploadDir: getEnv("UPLOAD_DIR", "./uploads/images"),
		NATSURL:   os.Getenv("NATS_URL"),
		RedisAddr: os.Getenv("REDIS_ADDR"),
	}

	var err error
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.StatsCacheTTL, err = getDuration("STATS_CACHE_TTL", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.LoginRatePerMin, err = getInt("LOGIN_RATE_PER_MIN", 10); err != nil {
		return cfg, err
	}
	if cfg.LoanPeriodDays, err = getInt("LOAN_PERIOD_DAYS", 30); err != nil {
		return cfg, err
	}
	// Using port 4233 to avoid conflict with a local NATS on 4222
	if cfg.NATSPort, err = getInt("NATS_PORT", 4233); err != nil {
		return cfg, err
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg, nil
}

// IsProduction reports whether ENV=production
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects configurations the server cannot run with
func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case "sqlite":
		if c.DatabaseURL == "" && c.IsProduction() {
			return fmt.Errorf("DATABASE_URL must point to a sqlite file in production")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.DBDriver)
	}

	if c.IsProduction() && c.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.LoanPeriodDays <= 0 {
		return fmt.Errorf("LOAN_PERIOD_DAYS must be positive, got %d", c.LoanPeriodDays)
	}
	if c.LoginRatePerMin <= 0 {
		return fmt.Errorf("LOGIN_RATE_PER_MIN must be positive, got %d", c.LoginRatePerMin)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
