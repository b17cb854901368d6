package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerEnv = []string{
	"LEDGER_APP_NAME",
	"LEDGER_APP_ENV",
	"LEDGER_APP_PORT",
	"LEDGER_DATABASE_DRIVER",
	"LEDGER_DATABASE_HOST",
	"LEDGER_DATABASE_PORT",
	"LEDGER_DATABASE_PASSWORD",
	"LEDGER_DATABASE_SSLMODE",
	"LEDGER_DATABASE_MAX_OPEN_CONNS",
	"LEDGER_DATABASE_MAX_IDLE_CONNS",
	"LEDGER_DATABASE_AUTO_MIGRATE",
	"LEDGER_AUTH_SECRET",
	"LEDGER_AUTH_ISSUER_KEY_HASH",
	"LEDGER_AUTH_TOKEN_TTL",
	"LEDGER_LEDGER_BUDGET_MODE",
	"LEDGER_LEDGER_APPROVAL_THRESHOLD",
	"LEDGER_LEDGER_CLEARING_ACCOUNT",
	"LEDGER_TELEMETRY_SAMPLING_RATIO",
}

// clearLedgerEnv unsets every variable the tests touch; t.Setenv restores them afterwards
func clearLedgerEnv(t *testing.T) {
	t.Helper()
	for _, k := range ledgerEnv {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearLedgerEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "ledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
		assert.Equal(t, "CNY", cfg.Ledger.BaseCurrency)
		assert.Equal(t, "4103", cfg.Ledger.ClearingAccount)
		assert.Equal(t, "4104", cfg.Ledger.RetainedEarningsAccount)
		assert.Equal(t, "6603", cfg.Ledger.FxGainLossAccount)
		assert.Equal(t, "block", cfg.Ledger.BudgetMode)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads values from environment variables with LEDGER prefix", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_APP_PORT", "9000")
		t.Setenv("LEDGER_DATABASE_DRIVER", "sqlite")
		t.Setenv("LEDGER_DATABASE_HOST", "db.local")
		t.Setenv("LEDGER_DATABASE_PORT", "5433")
		t.Setenv("LEDGER_AUTH_TOKEN_TTL", "15m")
		t.Setenv("LEDGER_LEDGER_BUDGET_MODE", "warn")
		t.Setenv("LEDGER_LEDGER_APPROVAL_THRESHOLD", "50000")
		t.Setenv("LEDGER_LEDGER_CLEARING_ACCOUNT", "3131")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "db.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
		assert.Equal(t, "warn", cfg.Ledger.BudgetMode)
		assert.Equal(t, 50000.0, cfg.Ledger.ApprovalThreshold)
		assert.Equal(t, "3131", cfg.Ledger.ClearingAccount)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("LEDGER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown budget mode", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_LEDGER_BUDGET_MODE", "ignore")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ledger.budget_mode")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoadFile(t *testing.T) {
	clearLedgerEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.toml")
	body := `
[database]
driver = "sqlite"
sqlite_path = ":memory:"

[ledger]
base_currency = "USD"
approval_threshold = 1000.0

[ledger.rate_policy]
equity = "closing"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.SQLitePath)
	assert.Equal(t, "USD", cfg.Ledger.BaseCurrency)
	assert.Equal(t, 1000.0, cfg.Ledger.ApprovalThreshold)
	assert.Equal(t, "closing", cfg.Ledger.RatePolicy["equity"])

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("LEDGER_LEDGER_APPROVAL_THRESHOLD", "5")
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 5.0, cfg.Ledger.ApprovalThreshold)
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "absent.toml"))
		require.Error(t, err)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_AUTH_SECRET", "this-is-a-very-secure-signing-secret-32chars")
		t.Setenv("LEDGER_AUTH_ISSUER_KEY_HASH", "$2a$10$abcdefghijklmnopqrstuv")
		t.Setenv("LEDGER_DATABASE_PASSWORD", "secure-password")
		t.Setenv("LEDGER_DATABASE_SSLMODE", "require")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires auth.secret in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("LEDGER_AUTH_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.secret is required in production")
	})

	t.Run("requires auth.secret at least 32 characters in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_AUTH_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("requires issuer key hash in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("LEDGER_AUTH_ISSUER_KEY_HASH")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.issuer_key_hash")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects sqlite in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be postgres in production")
	})

	t.Run("rejects auto migrate in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_DATABASE_AUTO_MIGRATE", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auto_migrate")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
