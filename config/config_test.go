package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "DB_DRIVER", "JWT_SECRET", "JWT_TTL", "LOAN_PERIOD_DAYS", "NATS_PORT", "CORS_ORIGINS", "STATS_CACHE_TTL", "LOGIN_RATE_PER_MIN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, DefaultJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
	assert.Equal(t, 30, cfg.LoanPeriodDays)
	assert.Equal(t, 4233, cfg.NATSPort)
	assert.Equal(t, 10, cfg.LoginRatePerMin)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("LOAN_PERIOD_DAYS", "14")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 14, cfg.LoanPeriodDays)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("LOAN_PERIOD_DAYS", "thirty")
	_, err := Load()
	assert.ErrorContains(t, err, "LOAN_PERIOD_DAYS")

	t.Setenv("LOAN_PERIOD_DAYS", "")
	t.Setenv("JWT_TTL", "forever")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_TTL")
}

func TestValidate(t *testing.T) {
	base := Config{
		DBDriver:        "postgres",
		DatabaseURL:     "postgres://localhost/library",
		JWTSecret:       "s3cret",
		LoanPeriodDays:  30,
		LoginRatePerMin: 10,
	}
	require.NoError(t, base.Validate())

	noURL := base
	noURL.DatabaseURL = ""
	assert.Error(t, noURL.Validate())

	devSQLite := base
	devSQLite.DBDriver = "sqlite"
	devSQLite.DatabaseURL = ""
	assert.NoError(t, devSQLite.Validate())

	badDriver := base
	badDriver.DBDriver = "mysql"
	assert.ErrorContains(t, badDriver.Validate(), "unsupported DB_DRIVER")

	prodDefaultSecret := base
	prodDefaultSecret.Env = "production"
	prodDefaultSecret.JWTSecret = DefaultJWTSecret
	assert.ErrorContains(t, prodDefaultSecret.Validate(), "JWT_SECRET")

	badLoan := base
	badLoan.LoanPeriodDays = 0
	assert.Error(t, badLoan.Validate())
}
