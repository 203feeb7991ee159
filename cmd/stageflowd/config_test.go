package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(viper.New(), "")
	jtest.RequireNil(t, err)

	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, backendMemory, cfg.Store.Backend)
	require.Equal(t, logFormatJSON, cfg.Log.Format)
	require.Equal(t, 10, cfg.Engine.MaxCASAttempts)
	require.False(t, cfg.Log.Debug)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stageflow.yaml")
	err := os.WriteFile(path, []byte(`
http:
  addr: ":9090"
store:
  backend: sqlite
  sqlite:
    path: /tmp/stageflow.db
log:
  debug: true
`), 0o600)
	require.NoError(t, err)

	t.Setenv("STAGEFLOW_ENGINE_MAX_CAS_ATTEMPTS", "3")
	t.Setenv("STAGEFLOW_HTTP_ADDR", ":7070")

	cfg, err := loadConfig(viper.New(), path)
	jtest.RequireNil(t, err)

	require.Equal(t, ":7070", cfg.HTTP.Addr)
	require.Equal(t, backendSQLite, cfg.Store.Backend)
	require.Equal(t, "/tmp/stageflow.db", cfg.Store.SQLite.Path)
	require.True(t, cfg.Log.Debug)
	require.Equal(t, 3, cfg.Engine.MaxCASAttempts)
}

func TestLoadConfigInvalid(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"STAGEFLOW_STORE_BACKEND": "cassandra"}},
		{name: "mysql without dsn", env: map[string]string{"STAGEFLOW_STORE_BACKEND": "mysql"}},
		{name: "unknown log format", env: map[string]string{"STAGEFLOW_LOG_FORMAT": "xml"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := loadConfig(viper.New(), "")
			jtest.Require(t, ErrInvalidConfig, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
