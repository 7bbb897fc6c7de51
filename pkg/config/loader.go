package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. URBANSIM_OPTIMIZER_ROUNDS
const EnvPrefix = "URBANSIM"

const minOptimizerRounds = 20

// Option customizes the viper instance before the configuration is decoded
type Option func(v *viper.Viper) error

// WithFlag binds a command-line flag to a configuration key.
// A flag that was set on the command line overrides file and environment values.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if flag == nil {
			return fmt.Errorf("no flag bound to %s", key)
		}
		return v.BindPFlag(key, flag)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":9090")
	v.SetDefault("presets_file", "")

	v.SetDefault("optimizer.rounds", 50)
	v.SetDefault("optimizer.initial_step", 10.0)
	v.SetDefault("optimizer.min_step", 1.0)

	v.SetDefault("controller.stage_delay", "0s")

	v.SetDefault("repository.driver", DriverMemory)
	v.SetDefault("repository.dsn", "")

	v.SetDefault("notifier.callback_url", "")
	v.SetDefault("notifier.max_retries", 3)
	v.SetDefault("notifier.base_delay", "500ms")
}

// Default returns the configuration used when no file or overrides are given
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// defaults always validate
		panic(err)
	}
	return cfg
}

// Load reads the configuration file at path (optional), applies URBANSIM_*
// environment overrides and any options, then validates the result.
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if err := validateOptimizer(&cfg.Optimizer); err != nil {
		return fmt.Errorf("optimizer validation failed: %w", err)
	}

	if cfg.Controller.StageDelay < 0 {
		return fmt.Errorf("controller.stage_delay cannot be negative")
	}

	if err := validateRepository(&cfg.Repository); err != nil {
		return fmt.Errorf("repository validation failed: %w", err)
	}

	if err := validateNotifier(&cfg.Notifier); err != nil {
		return fmt.Errorf("notifier validation failed: %w", err)
	}

	return nil
}

func validateOptimizer(o *Optimizer) error {
	if o.Rounds < minOptimizerRounds {
		return fmt.Errorf("rounds must be at least %d, got %d", minOptimizerRounds, o.Rounds)
	}
	if o.InitialStep <= 0 {
		return fmt.Errorf("initial_step must be positive")
	}
	if o.MinStep <= 0 {
		return fmt.Errorf("min_step must be positive")
	}
	if o.MinStep > o.InitialStep {
		return fmt.Errorf("min_step %.2f exceeds initial_step %.2f", o.MinStep, o.InitialStep)
	}
	return nil
}

func validateRepository(r *Repository) error {
	switch r.Driver {
	case DriverMemory:
		return nil
	case DriverSQLite, DriverPostgres:
		if r.DSN == "" {
			return fmt.Errorf("driver %s requires a dsn", r.Driver)
		}
		return nil
	default:
		return fmt.Errorf("unknown driver: %s (must be memory, sqlite, or postgres)", r.Driver)
	}
}

func validateNotifier(n *Notifier) error {
	if n.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if n.BaseDelay < 0 {
		return fmt.Errorf("base_delay cannot be negative")
	}
	if n.CallbackURL == "" {
		return nil
	}
	u, err := url.Parse(n.CallbackURL)
	if err != nil {
		return fmt.Errorf("invalid callback_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("callback_url must be http or https, got %q", n.CallbackURL)
	}
	return nil
}
