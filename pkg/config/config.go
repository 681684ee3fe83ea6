// Package config provides the unified configuration system for datamatrix.
// It defines a single Config structure covering the paging policy, the
// bounded printable form, and logging.
//
// Example usage:
//
//	cfg := config.New()
//	cfg.Paging.TempDir = "/var/tmp"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults for the paging policy. A column is held in memory only while
// loading it leaves the absolute floor of bytes free, or the relative
// fraction of total memory free; either floor passing is enough.
const (
	// DefaultMinFreeBytes is the absolute free-memory floor (4 GiB).
	DefaultMinFreeBytes int64 = 4294967296
	// DefaultMinFreeFraction is the relative free-memory floor.
	DefaultMinFreeFraction = 0.5
)

// Defaults for the bounded printable form.
const (
	DefaultPrintPrecision = 4
	DefaultPrintThreshold = 4
	DefaultPrintEdgeItems = 2
)

// Config is the single configuration structure for the library and CLI.
type Config struct {
	// Paging controls when column storage moves between memory and
	// temporary page files.
	Paging PagingConfig `yaml:"paging" json:"paging"`

	// Print bounds the printable form of large columns.
	Print PrintConfig `yaml:"print" json:"print"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PagingConfig contains the memory-pressure policy for column storage.
type PagingConfig struct {
	// MinFreeBytes is the absolute floor: free memory that must remain
	// after a column is held in memory.
	MinFreeBytes int64 `yaml:"min_free_bytes" json:"min_free_bytes"`
	// MinFreeFraction is the relative floor: remaining free memory as a
	// fraction of total. Either floor passing keeps the column in memory.
	MinFreeFraction float64 `yaml:"min_free_fraction" json:"min_free_fraction"`
	// TempDir is where page files are created. Page files are exclusive
	// to the process and removed when their column is closed.
	TempDir string `yaml:"temp_dir" json:"temp_dir"`
	// Disabled keeps every column in memory regardless of pressure.
	Disabled bool `yaml:"disabled" json:"disabled"`
}

// PrintConfig bounds the printable form of columns.
type PrintConfig struct {
	// Precision is the number of significant digits per value.
	Precision int `yaml:"precision" json:"precision"`
	// Threshold is the axis length above which values are elided.
	Threshold int `yaml:"threshold" json:"threshold"`
	// EdgeItems is how many leading/trailing entries survive elision.
	EdgeItems int `yaml:"edge_items" json:"edge_items"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`
	// Encoding selects the output format (json or console)
	Encoding string `yaml:"encoding" json:"encoding"`
}

// New creates a Config with production defaults. Page files land in the
// working directory, matching where callers expect scratch data to appear.
func New() *Config {
	return &Config{
		Paging: PagingConfig{
			MinFreeBytes:    DefaultMinFreeBytes,
			MinFreeFraction: DefaultMinFreeFraction,
			TempDir:         ".",
			Disabled:        false,
		},
		Print: PrintConfig{
			Precision: DefaultPrintPrecision,
			Threshold: DefaultPrintThreshold,
			EdgeItems: DefaultPrintEdgeItems,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Validate checks required fields and value ranges. Callers should run it
// after loading configuration to catch errors early.
func (c *Config) Validate() error {
	if c.Paging.MinFreeBytes < 0 {
		return fmt.Errorf("min_free_bytes cannot be negative")
	}
	if c.Paging.MinFreeFraction < 0 || c.Paging.MinFreeFraction > 1 {
		return fmt.Errorf("min_free_fraction must be within [0, 1]")
	}
	if c.Paging.TempDir == "" {
		return fmt.Errorf("temp_dir is required")
	}
	if c.Print.Precision <= 0 {
		return fmt.Errorf("print precision must be positive")
	}
	if c.Print.Threshold <= 0 {
		return fmt.Errorf("print threshold must be positive")
	}
	if c.Print.EdgeItems <= 0 {
		return fmt.Errorf("print edge_items must be positive")
	}
	return nil
}

// Load loads a configuration from a YAML file
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller and validated
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Substitute environment variables
	content := string(data)
	content = substituteEnvVars(content)

	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// Save saves a configuration to a YAML file
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
