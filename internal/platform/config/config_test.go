package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", "")
	t.Setenv("MAX_LABEL_WIDTH", "")
	t.Setenv("PRINCIPALCHECK_ADDR", "")
	t.Setenv("DIRECTORY_BREAKER_THRESHOLD", "")
	t.Setenv("DIRECTORY_BREAKER_COOLDOWN", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendStatic, cfg.Directory.Backend)
	assert.Equal(t, DefaultMaxLabelWidth, cfg.Validation.MaxLabelWidth)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.NotEmpty(t, cfg.Auth.JWTSigningKey)
	assert.Equal(t, 5, cfg.Directory.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Directory.BreakerCooldown)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PRINCIPALCHECK_ADDR", ":9090")
	t.Setenv("DIRECTORY_BACKEND", "GRAPH")
	t.Setenv("GRAPH_TENANT_ID", "contoso")
	t.Setenv("GRAPH_TOKEN_URL", "")
	t.Setenv("GRAPH_SCOPES", "a, b ,,c")
	t.Setenv("MAX_LABEL_WIDTH", "32")
	t.Setenv("REDIS_DIAL_TIMEOUT", "250ms")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, BackendGraph, cfg.Directory.Backend)
	assert.Equal(t, "https://login.microsoftonline.com/contoso/oauth2/v2.0/token", cfg.Graph.TokenURL)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Graph.Scopes)
	assert.Equal(t, 32, cfg.Validation.MaxLabelWidth)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.DialTimeout)
}

func TestValidate(t *testing.T) {
	t.Run("static backend needs a file", func(t *testing.T) {
		cfg := Config{
			Directory:  DirectoryConfig{Backend: BackendStatic},
			Validation: ValidationConfig{MaxLabelWidth: 50},
		}
		require.ErrorContains(t, cfg.Validate(), "DIRECTORY_FILE")

		cfg.Directory.File = "directory.yaml"
		require.NoError(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := Config{
			Directory:  DirectoryConfig{Backend: "ldap"},
			Validation: ValidationConfig{MaxLabelWidth: 50},
		}
		require.ErrorContains(t, cfg.Validate(), `unknown DIRECTORY_BACKEND "ldap"`)
	})

	t.Run("label width too small", func(t *testing.T) {
		cfg := Config{
			Directory:  DirectoryConfig{Backend: BackendPostgres},
			Postgres:   PostgresConfig{URL: "postgres://localhost/dir"},
			Validation: ValidationConfig{MaxLabelWidth: 3},
		}
		require.ErrorContains(t, cfg.Validate(), "MAX_LABEL_WIDTH")
	})
}
