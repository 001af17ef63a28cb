// Package config provides configuration management for timeline.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/schedule"
	"github.com/rcliao/timeline/internal/storage"
)

const (
	// ConfigFileName is the config file looked up inside the data directory
	ConfigFileName = "config.yaml"
	// DataDir is the default data directory
	DataDir = ".timeline"
	// EnvPrefix prefixes every environment override, e.g. TIMELINE_LOG_LEVEL
	EnvPrefix = "TIMELINE"
)

type StorageConfig struct {
	// Backend is one of file, sqlite or memory
	Backend string `yaml:"backend" mapstructure:"backend"`
	// SQLitePath defaults to timeline.db inside the data directory
	SQLitePath string `yaml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
}

type ScheduleConfig struct {
	// MissingDependency is strict (reject the edit) or lenient (leave the task unresolved)
	MissingDependency string `yaml:"missing_dependency" mapstructure:"missing_dependency"`
	// Removal is reject, orphan or detach
	Removal string `yaml:"removal" mapstructure:"removal"`
}

type SimulationConfig struct {
	// Period is the real time it takes to play the whole project
	Period time.Duration `yaml:"period" mapstructure:"period"`
	// TickInterval is how often the viewer and play command redraw
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Config represents the timeline configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir" mapstructure:"data_dir"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Simulation SimulationConfig `yaml:"simulation" mapstructure:"simulation"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

func Default() *Config {
	return &Config{
		DataDir: DataDir,
		Storage: StorageConfig{
			Backend: string(storage.BackendFile),
		},
		Schedule: ScheduleConfig{
			MissingDependency: schedule.PolicyStrict.String(),
			Removal:           string(domain.RemovalReject),
		},
		Simulation: SimulationConfig{
			Period:       24 * time.Hour,
			TickInterval: time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key with viper so environment variables can
// override keys that appear in no config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("schedule.missing_dependency", d.Schedule.MissingDependency)
	v.SetDefault("schedule.removal", d.Schedule.Removal)
	v.SetDefault("simulation.period", d.Simulation.Period)
	v.SetDefault("simulation.tick_interval", d.Simulation.TickInterval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load resolves the configuration. Precedence, highest first: flags bound to
// v, TIMELINE_* environment (a .env file in the working directory counts),
// the config file, defaults. configFile may be empty, in which case
// config.yaml inside the data directory is used if present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the data directory also holds the file backend's config.json, so the
	// config file is never looked up by name alone
	path := configFile
	if path == "" {
		candidate := filepath.Join(v.GetString("data_dir"), ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if _, err := storage.ParseBackend(c.Storage.Backend); err != nil {
		errs = append(errs, fmt.Errorf("storage.backend: %w", err))
	}
	if _, err := schedule.ParsePolicy(c.Schedule.MissingDependency); err != nil {
		errs = append(errs, fmt.Errorf("schedule.missing_dependency: %w", err))
	}
	if _, err := domain.ParseRemovalPolicy(c.Schedule.Removal); err != nil {
		errs = append(errs, fmt.Errorf("schedule.removal: %w", err))
	}
	if c.Simulation.Period <= 0 {
		errs = append(errs, fmt.Errorf("simulation.period must be positive, got %s", c.Simulation.Period))
	}
	if c.Simulation.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_interval must be positive, got %s", c.Simulation.TickInterval))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); c.Log.Level != "" && err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Policy returns the parsed missing-dependency policy.
func (c *Config) Policy() schedule.Policy {
	p, _ := schedule.ParsePolicy(c.Schedule.MissingDependency)
	return p
}

func (c *Config) RemovalPolicy() domain.RemovalPolicy {
	p, _ := domain.ParseRemovalPolicy(c.Schedule.Removal)
	return p
}

func (c *Config) Backend() storage.Backend {
	b, _ := storage.ParseBackend(c.Storage.Backend)
	return b
}

// Path is where the config file lives inside the data directory.
func (c *Config) Path() string {
	return filepath.Join(c.DataDir, ConfigFileName)
}

// SaveTo saves the config to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Init creates the data directory and writes the default config into it.
func Init(dataDir string, force bool) (*Config, error) {
	cfg := Default()
	cfg.DataDir = dataDir

	if !force {
		if _, err := os.Stat(cfg.Path()); err == nil {
			return nil, fmt.Errorf("timeline already initialized in %s (use --force to overwrite)", dataDir)
		}
	}

	if err := cfg.SaveTo(cfg.Path()); err != nil {
		return nil, err
	}
	return cfg, nil
}
