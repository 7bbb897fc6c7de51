package config

import "time"

// Config is the service configuration
type Config struct {
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`
	HTTPAddr    string `mapstructure:"http_addr" yaml:"http_addr"`
	GRPCAddr    string `mapstructure:"grpc_addr" yaml:"grpc_addr"`
	PresetsFile string `mapstructure:"presets_file" yaml:"presets_file,omitempty"`

	Optimizer  Optimizer  `mapstructure:"optimizer" yaml:"optimizer"`
	Controller Controller `mapstructure:"controller" yaml:"controller"`
	Repository Repository `mapstructure:"repository" yaml:"repository"`
	Notifier   Notifier   `mapstructure:"notifier" yaml:"notifier"`
}

// Optimizer configures the coordinate search
type Optimizer struct {
	Rounds      int     `mapstructure:"rounds" yaml:"rounds"`
	InitialStep float64 `mapstructure:"initial_step" yaml:"initial_step"`
	MinStep     float64 `mapstructure:"min_step" yaml:"min_step"`
}

// Controller configures the simulation session
type Controller struct {
	StageDelay time.Duration `mapstructure:"stage_delay" yaml:"stage_delay"`
}

// Repository selects where simulation runs are persisted
type Repository struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // memory, sqlite, postgres
	DSN    string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// Notifier configures completion callbacks for persisted runs
type Notifier struct {
	CallbackURL string        `mapstructure:"callback_url" yaml:"callback_url,omitempty"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
}

// Repository drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
