// Package config loads and validates the crawler configuration.
//
// Configuration comes from a YAML file; command-line flags are applied on
// top by the caller before Validate runs. Any validation failure is fatal
// at startup.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultIgnore keeps the lock check's temporary names and partial copies
// out of the scan.
var DefaultIgnore = []string{"*.crawlerlock", "*.part"}

// Database selects the persistence backend.
type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Config is the full crawler configuration.
type Config struct {
	WatchDir    string        `yaml:"watch_dir"`
	SuccessDir  string        `yaml:"success_dir"`
	FailDir     string        `yaml:"fail_dir"`
	WALDir      string        `yaml:"wal_dir"`
	Workers     int           `yaml:"workers"`
	Period      time.Duration `yaml:"period"`
	Settle      time.Duration `yaml:"settle"`
	Ignore      []string      `yaml:"ignore"`
	Schema      string        `yaml:"schema"`
	Database    Database      `yaml:"database"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() Config {
	return Config{
		Workers: 4,
		Period:  time.Minute,
		Ignore:  append([]string(nil), DefaultIgnore...),
		Database: Database{
			Driver: "sqlite",
			DSN:    "filecrawler.db",
		},
	}
}

// Load reads path over Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// FieldError reports one invalid setting.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *FieldError) Unwrap() error {
	return ErrInvalidConfig
}

// Validate checks every setting and returns all problems joined.
// The WAL directory is created when missing.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if err := checkDir(c.WatchDir, false); err != nil {
		add("watch_dir", "%v", err)
	}
	if err := checkDir(c.SuccessDir, true); err != nil {
		add("success_dir", "%v", err)
	}
	if err := checkDir(c.FailDir, true); err != nil {
		add("fail_dir", "%v", err)
	}
	if c.WALDir == "" {
		add("wal_dir", "required")
	} else if err := os.MkdirAll(c.WALDir, 0o750); err != nil {
		add("wal_dir", "%v", err)
	} else if err := checkDir(c.WALDir, true); err != nil {
		add("wal_dir", "%v", err)
	}

	if c.WatchDir != "" {
		watch := filepath.Clean(c.WatchDir)
		if c.SuccessDir != "" && filepath.Clean(c.SuccessDir) == watch {
			add("success_dir", "must differ from watch_dir")
		}
		if c.FailDir != "" && filepath.Clean(c.FailDir) == watch {
			add("fail_dir", "must differ from watch_dir")
		}
	}

	if c.Workers <= 0 {
		add("workers", "must be greater than 0, got %d", c.Workers)
	}
	if c.Period <= 0 {
		add("period", "must be greater than 0, got %s", c.Period)
	}
	if c.Settle < 0 {
		add("settle", "must not be negative, got %s", c.Settle)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		add("database.driver", "must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		add("database.dsn", "required")
	}

	if c.Schema != "" {
		if info, err := os.Stat(c.Schema); err != nil {
			add("schema", "%v", err)
		} else if info.IsDir() {
			add("schema", "%s is a directory", c.Schema)
		}
	}

	return errors.Join(errs...)
}

// checkDir verifies path is an existing readable directory, and writable
// when write is set.
func checkDir(path string, write bool) error {
	if path == "" {
		return errors.New("required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s does not exist", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if _, err := os.ReadDir(path); err != nil {
		return fmt.Errorf("cannot read %s", path)
	}
	if write {
		f, err := os.CreateTemp(path, ".write_check")
		if err != nil {
			return fmt.Errorf("cannot write into %s", path)
		}
		f.Close()
		os.Remove(f.Name())
	}
	return nil
}

// ExcludedDirs returns the output directories so a scanner rooted at
// WatchDir never walks into them.
func (c *Config) ExcludedDirs() []string {
	return []string{c.SuccessDir, c.FailDir, c.WALDir}
}
