// Package config loads the optional library.yaml file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "library.yaml"

// Config is the full runtime configuration. Zero values are replaced by
// Default() values on load.
type Config struct {
	Library  LibraryConfig  `yaml:"library"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Policy   PolicyConfig   `yaml:"policy"`
}

type LibraryConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Path  string `yaml:"path"`
	Debug bool   `yaml:"debug"`
}

type PolicyConfig struct {
	MaxOpenLoans       int `yaml:"max_open_loans"`
	ReminderWindowDays int `yaml:"reminder_window_days"`
}

// Default is used when no config file exists.
func Default() Config {
	return Config{
		Library:  LibraryConfig{Name: "City Library", Address: "123 Library Street"},
		Database: DatabaseConfig{Path: "library.db"},
		Policy:   PolicyConfig{ReminderWindowDays: 2},
	}
}

// LoadError reports a config file that exists but cannot be used.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("config %s: %v", e.Path, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads path. A missing file at the default path yields Default(); a
// missing file given explicitly is an error.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return Config{}, &LoadError{Path: path, Err: err}
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, &LoadError{Path: path, Err: err}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, &LoadError{Path: path, Err: err}
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path must not be empty")
	}
	if c.Policy.MaxOpenLoans < 0 {
		return errors.New("policy.max_open_loans must be >= 0")
	}
	if c.Policy.ReminderWindowDays < 0 {
		return errors.New("policy.reminder_window_days must be >= 0")
	}
	return nil
}
