// Package config provides configuration management for herbdb.
//
// This package has no I/O dependencies (no file operations, no network
// calls). Validation functions may write user-facing warnings via
// gn.Warn().
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml >
// defaults.
//
// # Design Principles
//
//   - Default config (from New()) is always valid - no validation needed
//   - All mutations go through Option functions - the only way to modify Config
//   - Invalid options are rejected with gn.Warn() - config remains valid
//   - ToOptions() converts persistent fields (those in config.yaml)
//   - Environment variables match ToOptions() fields exactly
//
// # Environment Variables
//
// Use HERBDB_ prefix with underscores for nesting:
//
//	HERBDB_DATABASE_HOST=localhost
//	HERBDB_DATABASE_PORT=5432
//	HERBDB_IMAGES_DIR=/data/herbarium/images
//	HERBDB_LOG_LEVEL=info
package config

import (
	"runtime"
)

// Config represents the complete herbdb configuration.
type Config struct {
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Images contains settings for the content-addressed image store.
	Images ImagesConfig `mapstructure:"images" yaml:"images"`

	// Extract contains settings for extraction runs.
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`

	// API contains settings for the review HTTP server.
	API APIConfig `mapstructure:"api" yaml:"api"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent extraction workers.
	// Default value is set according to the number of available threads.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and logs directories reside.
	// It must be set by CLI during init, there is no default value for it.
	HomeDir string
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname or IP address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port number.
	Port int `mapstructure:"port" yaml:"port"`

	// User is the PostgreSQL database username.
	User string `mapstructure:"user" yaml:"user"`

	// Password is the PostgreSQL database password.
	Password string `mapstructure:"password" yaml:"password"`

	// Database is the PostgreSQL database name to connect to.
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// ImagesConfig contains settings for the content-addressed image store.
type ImagesConfig struct {
	// Dir is the root directory of the image store. Files are laid out
	// by content hash: <dir>/<first two hex chars>/<sha256>.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ExtractConfig contains settings for extraction runs.
type ExtractConfig struct {
	// Engine selects the extractor to run. Runtime-only field set by
	// the extract command's --engine flag.
	Engine string `mapstructure:"engine" yaml:"engine"`

	// TimeoutSec is the per-image extraction timeout in seconds.
	// Extractions exceeding it are recorded as failed and can be
	// retried later.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// Languages passed to OCR engines, e.g. "eng".
	Languages string `mapstructure:"languages" yaml:"languages"`
}

// APIConfig contains settings for the review HTTP server.
type APIConfig struct {
	// Host is the interface the review API listens on.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the review API port number.
	Port int `mapstructure:"port" yaml:"port"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json' or 'text'.
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "herbdb",
			SSLMode:  "disable",
		},
		Images: ImagesConfig{
			Dir: "images",
		},
		Extract: ExtractConfig{
			TimeoutSec: 120,
			Languages:  "eng",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8765,
		},
		Log: LogConfig{
			Format:      "json",
			Level:       "info",
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(),
	}

	return res
}
