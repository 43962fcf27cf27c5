// ABOUTME: Server configuration loaded from a YAML file
// ABOUTME: Defaults, file loading, and validation
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config holds all runtime configuration for the analyzer server.
type Config struct {
	Port int    `yaml:"port"`
	Name string `yaml:"name"`

	// APIKey is the pre-shared secret checked against the x-api-key
	// header on the one-shot endpoint.
	APIKey string `yaml:"api_key"`

	// IdleTimeout closes streaming sessions that neither complete a
	// window nor send a stop command within this interval.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// Workers is the size of the shared analysis worker pool.
	Workers int `yaml:"workers"`

	EnableMDNS bool `yaml:"enable_mdns"`
	Debug      bool `yaml:"debug"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Port:        8080,
		Name:        "keyscope",
		IdleTimeout: Duration(120 * time.Second),
		Workers:     4,
	}
}

// Load reads a YAML config file, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid worker count %d", c.Workers)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("invalid idle timeout %s", c.IdleTimeout)
	}
	return nil
}
