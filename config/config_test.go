package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "lessons-hub", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 1000, cfg.Scoring.MaxScore)
	assert.Equal(t, 5*time.Minute, cfg.Scoring.StatsCacheTTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Empty(t, cfg.HTTP.TrustedProxies)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_PostgresFromComponents(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://app:pw@db:5432/lessons?sslmode=disable", cfg.Database.URL)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SCORING_MAX_SCORE=250\nHTTP_ALLOWED_ORIGINS=http://a.test, http://b.test\nHTTP_TRUSTED_PROXIES=10.0.0.0/8\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Scoring.MaxScore)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.HTTP.TrustedProxies)
	assert.Equal(t, "warn", cfg.Observability.LogLevel, "process environment wins over the file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Environment: EnvDevelopment},
			HTTP:     HTTPConfig{Port: 8080},
			Database: DatabaseConfig{Driver: DriverMemory},
			Auth:     AuthConfig{JWTSecret: "x", TokenTTL: time.Hour},
			Scoring:  ScoringConfig{MaxScore: 100},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, false},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres }, false},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, false},
		{"short secret in production", func(c *Config) {
			c.App.Environment = EnvProduction
			c.Database.Driver = DriverSQLite
		}, false},
		{"memory in production", func(c *Config) {
			c.App.Environment = EnvProduction
			c.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, false},
		{"production ok", func(c *Config) {
			c.App.Environment = EnvProduction
			c.Database.Driver = DriverSQLite
			c.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, true},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, false},
		{"bad max score", func(c *Config) { c.Scoring.MaxScore = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
