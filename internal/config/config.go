// Package config loads the dashgrid service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration, read from dashgrid.yaml.
type Config struct {
	Listen string      `yaml:"listen"`
	Log    LogConfig   `yaml:"log"`
	Store  StoreConfig `yaml:"store"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects and configures the persistence backend. Options is a
// free-form map decoded per backend, so each adapter owns its own knobs.
type StoreConfig struct {
	Backend string         `yaml:"backend"`
	Options map[string]any `yaml:"options"`
}

// RedisOptions are the options for the redis backend.
type RedisOptions struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SQLiteOptions are the options for the sqlite backend.
type SQLiteOptions struct {
	Path string `mapstructure:"path"`
}

// FileOptions are the options for the file backend.
type FileOptions struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// Default returns the configuration used when no file is present: an
// in-memory backend on the standard port.
func Default() Config {
	return Config{
		Listen: ":8087",
		Log:    LogConfig{Level: "info"},
		Store:  StoreConfig{Backend: "memory"},
	}
}

// Load reads a YAML configuration file. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = Default().Listen
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	return cfg, nil
}

// DecodeOptions decodes the backend's free-form options into a typed struct.
func (s StoreConfig) DecodeOptions(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(s.Options); err != nil {
		return fmt.Errorf("invalid %s store options: %w", s.Backend, err)
	}
	return nil
}
