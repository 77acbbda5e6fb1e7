package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaultsLocal(t *testing.T) {
	cfg := &Config{BuildTarget: "local", DBDriver: "auto"}
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestResolveDefaultsCloud(t *testing.T) {
	cfg := &Config{BuildTarget: "cloud", DBDriver: "", PostgresDSN: "postgres://localhost/journal"}
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "postgres", cfg.DBDriver)
}

func TestResolveDefaultsPostgresRequiresDSN(t *testing.T) {
	cfg := &Config{BuildTarget: "cloud-dev", DBDriver: "auto"}
	err := cfg.ResolveDefaults()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
}

func TestResolveDefaultsExplicitDriverKept(t *testing.T) {
	cfg := &Config{BuildTarget: "cloud", DBDriver: "sqlite"}
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestResolveDefaultsRejectsUnknownTarget(t *testing.T) {
	cfg := &Config{BuildTarget: "staging"}
	assert.Error(t, cfg.ResolveDefaults())
}

func TestResolveDefaultsRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{BuildTarget: "local", DBDriver: "spanner"}
	assert.Error(t, cfg.ResolveDefaults())
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("JOURNAL_BACKEND_HTTP_PORT", "9090")
	t.Setenv("JOURNAL_BACKEND_SQLITE_PATH", "/tmp/journal-test.db")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "/tmp/journal-test.db", cfg.SQLitePath)
	assert.Equal(t, ":9090", cfg.GetHTTPAddr())
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestNewForTesting(t *testing.T) {
	cfg := NewForTesting()
	assert.True(t, cfg.IsTesting())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "sqlite", cfg.DBDriver)
}
