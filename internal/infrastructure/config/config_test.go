package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "agricoop-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "agricoop", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "256", cfg.Momo.CountryCode)
		assert.Equal(t, time.Hour, cfg.Momo.TokenTTL)
		assert.Equal(t, 5*time.Minute, cfg.Momo.TokenSafetyMargin)
		assert.Equal(t, 3, cfg.Fees.NewMemberMonths)
		assert.Equal(t, 6, cfg.Fees.ActiveMemberMonths)
		assert.Equal(t, 0.01, cfg.Fees.AmountTolerance)
		assert.Equal(t, 1, cfg.Scheduler.SweepHour)
		assert.Equal(t, DevelopmentJWTSecret, cfg.JWT.Secret)
		assert.Equal(t, []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}, cfg.HTTP.CORSAllowMethods)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads values from environment variables with AGRICOOP prefix", func(t *testing.T) {
		t.Setenv("AGRICOOP_APP_NAME", "test-app")
		t.Setenv("AGRICOOP_APP_PORT", "9000")
		t.Setenv("AGRICOOP_DATABASE_HOST", "testdb.local")
		t.Setenv("AGRICOOP_DATABASE_PORT", "5433")
		t.Setenv("AGRICOOP_MOMO_COUNTRY_CODE", "233")
		t.Setenv("AGRICOOP_MOMO_CALLBACK_URL", "https://coop.example/api/v1/payments/callback")
		t.Setenv("AGRICOOP_SCHEDULER_SWEEP_HOUR", "3")
		t.Setenv("AGRICOOP_SCHEDULER_SWEEP_MINUTE", "30")
		t.Setenv("AGRICOOP_MOMO_TOKEN_TTL", "2h")
		t.Setenv("AGRICOOP_HTTP_CORS_ALLOW_ORIGINS", "https://coop.example,https://admin.coop.example")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "233", cfg.Momo.CountryCode)
		assert.Equal(t, "https://coop.example/api/v1/payments/callback", cfg.Momo.CallbackURL)
		assert.Equal(t, 3, cfg.Scheduler.SweepHour)
		assert.Equal(t, 30, cfg.Scheduler.SweepMinute)
		assert.Equal(t, 2*time.Hour, cfg.Momo.TokenTTL)
		assert.Equal(t, []string{"https://coop.example", "https://admin.coop.example"}, cfg.HTTP.CORSAllowOrigins)
	})

	t.Run("rejects non-numeric country code", func(t *testing.T) {
		t.Setenv("AGRICOOP_MOMO_COUNTRY_CODE", "+256")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "country_code")
	})

	t.Run("production requires momo credentials", func(t *testing.T) {
		t.Setenv("AGRICOOP_APP_ENV", "production")
		t.Setenv("AGRICOOP_JWT_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("AGRICOOP_DATABASE_PASSWORD", "secret")
		t.Setenv("AGRICOOP_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "momo credentials")
	})
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg, err := decode(newViper())
		require.NoError(t, err)
		return cfg
	}

	t.Run("idle conns above open conns", func(t *testing.T) {
		cfg := base()
		cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1
		assert.Error(t, cfg.validate())
	})

	t.Run("margin not shorter than ttl", func(t *testing.T) {
		cfg := base()
		cfg.Momo.TokenSafetyMargin = cfg.Momo.TokenTTL
		assert.Error(t, cfg.validate())
	})

	t.Run("unknown timezone", func(t *testing.T) {
		cfg := base()
		cfg.App.Timezone = "Mars/Olympus"
		assert.Error(t, cfg.validate())
	})

	t.Run("sampling ratio out of range", func(t *testing.T) {
		cfg := base()
		cfg.Telemetry.SamplingRatio = 1.5
		assert.Error(t, cfg.validate())
	})

	t.Run("telemetry without collector", func(t *testing.T) {
		cfg := base()
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.CollectorEndpoint = ""
		assert.Error(t, cfg.validate())
	})

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "coop", Password: "p@ss word", DBName: "agricoop", SSLMode: "disable"}
	assert.Equal(t, "postgres://coop:p%40ss%20word@db:5432/agricoop?sslmode=disable", d.DSN())
}
