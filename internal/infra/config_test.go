package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, 20, cfg.PGMaxConns)
	assert.Equal(t, 2, cfg.PGMinConns)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
}

func TestLoadConfig_PoolSizingFromEnv(t *testing.T) {
	t.Setenv("PG_MAX_CONNS", "50")
	t.Setenv("PG_MIN_CONNS", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.PGMaxConns)
	assert.Equal(t, 5, cfg.PGMinConns)
}

func TestDSN_PrefersDatabaseURL(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://override:pw@db:5432/app",
		PGHost:      "localhost",
	}
	assert.Equal(t, "postgres://override:pw@db:5432/app", cfg.DSN())

	cfg.DatabaseURL = ""
	cfg.PGPort = 5432
	cfg.PGUser = "u"
	cfg.PGPassword = "p"
	cfg.PGDatabase = "d"
	assert.Equal(t, "postgres://u:p@localhost:5432/d?sslmode=disable", cfg.DSN())
}

func TestValidate_RejectsInsecureSecret(t *testing.T) {
	cfg := &Config{JWTSecret: "change-me-in-production"}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "short"
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "a-sufficiently-long-secret-for-hs256!"
	require.NoError(t, cfg.Validate())

	cfg.JWTSecret = "change-me-in-production"
	cfg.AllowInsecureDefaults = true
	require.NoError(t, cfg.Validate())
}
