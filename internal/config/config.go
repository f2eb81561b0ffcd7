// # internal/config/config.go
package config

import (
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Crates   []string `toml:"crates"`   // crate root directories to scrape
	Features []string `toml:"features"` // cargo features to enable, default ["default"]
	Workers  int      `toml:"workers"`  // parallel module walkers per crate
	FileRate float64  `toml:"file_rate"` // file reads per second, 0 = unlimited
	Exclude  Exclude  `toml:"exclude"`
	Watch    Watch    `toml:"watch"`
	Metrics  Metrics  `toml:"metrics"`
	Tracing  Tracing  `toml:"tracing"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Metrics struct {
	Addr string `toml:"addr"` // serve /metrics and /health here, "" = off
}

type Tracing struct {
	Endpoint string `toml:"endpoint"` // OTLP gRPC endpoint, "" = off
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with defaults applied and no crates configured.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "target"}
	}
	if len(cfg.Crates) == 0 {
		cfg.Crates = []string{"."}
	}
}
