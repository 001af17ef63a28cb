package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/schedule"
	"github.com/rcliao/timeline/internal/storage"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ".timeline", cfg.DataDir)
	assert.Equal(t, storage.BackendFile, cfg.Backend())
	assert.Equal(t, schedule.PolicyStrict, cfg.Policy())
	assert.Equal(t, domain.RemovalReject, cfg.RemovalPolicy())
	assert.Equal(t, 24*time.Hour, cfg.Simulation.Period)
	assert.Equal(t, time.Second, cfg.Simulation.TickInterval)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	v := viper.New()
	v.Set("data_dir", t.TempDir())

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Simulation.Period)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DataDir = dir
	cfg.Storage.Backend = "sqlite"
	cfg.Schedule.MissingDependency = "lenient"
	cfg.Simulation.Period = 90 * time.Second
	require.NoError(t, cfg.SaveTo(cfg.Path()))

	t.Setenv("TIMELINE_SCHEDULE_REMOVAL", "detach")

	v := viper.New()
	v.Set("data_dir", dir)
	loaded, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, storage.BackendSQLite, loaded.Backend())
	assert.Equal(t, schedule.PolicyLenient, loaded.Policy())
	assert.Equal(t, domain.RemovalDetach, loaded.RemovalPolicy())
	assert.Equal(t, 90*time.Second, loaded.Simulation.Period)
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  period: 2m\nlog:\n  level: debug\n"), 0644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Simulation.Period)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	v := viper.New()
	v.Set("data_dir", t.TempDir())
	v.Set("schedule.removal", "cascade")

	_, err := Load(v, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule.removal")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "backend", mutate: func(c *Config) { c.Storage.Backend = "redis" }, field: "storage.backend"},
		{name: "policy", mutate: func(c *Config) { c.Schedule.MissingDependency = "ignore" }, field: "schedule.missing_dependency"},
		{name: "period", mutate: func(c *Config) { c.Simulation.Period = 0 }, field: "simulation.period"},
		{name: "tick", mutate: func(c *Config) { c.Simulation.TickInterval = -time.Second }, field: "simulation.tick_interval"},
		{name: "format", mutate: func(c *Config) { c.Log.Format = "xml" }, field: "log.format"},
		{name: "level", mutate: func(c *Config) { c.Log.Level = "loud" }, field: "log.level"},
		{name: "data dir", mutate: func(c *Config) { c.DataDir = "" }, field: "data_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	cfg, err := Init(dir, false)
	require.NoError(t, err)
	assert.FileExists(t, cfg.Path())

	data, err := os.ReadFile(cfg.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "missing_dependency: strict")
	assert.Contains(t, string(data), "period: 24h0m0s")

	_, err = Init(dir, false)
	assert.Error(t, err)
	_, err = Init(dir, true)
	assert.NoError(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "TIMELINE_TEST_DOTENV_VALUE"
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0644))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv(key))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
