package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("../../config/urbansim.yaml")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 50, cfg.Optimizer.Rounds)
	assert.Equal(t, 250*time.Millisecond, cfg.Controller.StageDelay)
	assert.Equal(t, DriverSQLite, cfg.Repository.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Notifier.BaseDelay)
}

func TestLoadDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.GRPCAddr)
	assert.Equal(t, Optimizer{Rounds: 50, InitialStep: 10, MinStep: 1}, cfg.Optimizer)
	assert.Zero(t, cfg.Controller.StageDelay)
	assert.Equal(t, DriverMemory, cfg.Repository.Driver)
	assert.Equal(t, 3, cfg.Notifier.MaxRetries)
	assert.Empty(t, cfg.Notifier.CallbackURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("URBANSIM_OPTIMIZER_ROUNDS", "80")
	t.Setenv("URBANSIM_LOG_LEVEL", "debug")
	t.Setenv("URBANSIM_NOTIFIER_CALLBACK_URL", "http://hooks.local/runs")

	path := writeConfig(t, "log_level: warn\noptimizer:\n  rounds: 30\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 80, cfg.Optimizer.Rounds)
	assert.Equal(t, "http://hooks.local/runs", cfg.Notifier.CallbackURL)
	assert.Equal(t, 10.0, cfg.Optimizer.InitialStep, "unset keys keep defaults")
}

func TestLoadFlagOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("http-addr", ":8080", "")
	require.NoError(t, fs.Parse([]string{"--http-addr", ":7070"}))

	cfg, err := Load("", WithFlag("http_addr", fs.Lookup("http-addr")))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)

	_, err = Load("", WithFlag("grpc_addr", fs.Lookup("missing")))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "log_level: verbose\n"},
		{"bad log format", "log_format: xml\n"},
		{"too few rounds", "optimizer:\n  rounds: 5\n"},
		{"zero initial step", "optimizer:\n  initial_step: 0\n"},
		{"min step above initial", "optimizer:\n  initial_step: 2\n  min_step: 4\n"},
		{"negative stage delay", "controller:\n  stage_delay: -1s\n"},
		{"unknown driver", "repository:\n  driver: mongo\n"},
		{"sqlite without dsn", "repository:\n  driver: sqlite\n"},
		{"negative retries", "notifier:\n  max_retries: -1\n"},
		{"callback scheme", "notifier:\n  callback_url: ftp://example.com\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
