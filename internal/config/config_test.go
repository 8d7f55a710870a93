package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "licensing", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 12, cfg.JWT.AccessTokenTTL)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/test.db")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("JWT_ACCESS_TTL", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Database.DSN())
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 12, cfg.JWT.AccessTokenTTL, "invalid ints fall back to default")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Database:    DatabaseConfig{Driver: "postgres", Password: "secret"},
		JWT:         JWTConfig{SecretKey: "your-secret-key-change-in-production"},
	}
	assert.Error(t, cfg.Validate())

	cfg.JWT.SecretKey = "rotated"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Password = ""
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", Database: "licensing", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=licensing sslmode=disable", d.DSN())
	assert.Contains(t, d.AdminDSN(), "dbname=postgres")
}

func TestExternalURL(t *testing.T) {
	cfg := &Config{Frontend: FrontendConfig{BaseURL: "https://licensing.example/", ExternalPath: "/external/"}}
	assert.Equal(t, "https://licensing.example/external/", cfg.ExternalURL())
}
