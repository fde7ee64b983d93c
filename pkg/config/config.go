// Package config loads and validates the service configuration from a
// single YAML file. Pipeline code never reads configuration directly; the
// binaries translate this struct into per-package configs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the full configuration surface.
type Config struct {
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	Server  Server  `yaml:"server"`
	Crawler Crawler `yaml:"crawler"`
	Build   Build   `yaml:"build"`
	Layout  Layout  `yaml:"layout"`
	Cache   Cache   `yaml:"cache"`
	Events  Events  `yaml:"events"`
}

// Server configures the HTTP API and the rebuild scheduler.
type Server struct {
	ListenAddr             string `yaml:"listen_addr" validate:"required"`
	RebuildIntervalSeconds int    `yaml:"rebuild_interval_seconds" validate:"min=0"`
}

// Crawler configures the directory and peer fetches.
type Crawler struct {
	DirectoryURL   string `yaml:"directory_url" validate:"omitempty,url"`
	Workers        int    `yaml:"workers" validate:"min=0,max=256"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=0"`
	RatePerSecond  int    `yaml:"rate_per_second" validate:"min=0"`
}

// Build configures assembly, trimming and sampling. MaxDegree and MaxEdges
// use zero as the "unlimited" sentinel; MaxStubs zero means no stubs at all.
type Build struct {
	DefaultPort          int  `yaml:"default_port" validate:"required,min=1,max=65535"`
	IncludeExternalPeers bool `yaml:"include_external_peers"`
	MaxStubs             int  `yaml:"max_stubs" validate:"min=0"`
	MaxDegree            int  `yaml:"max_degree" validate:"min=0"`
	MaxEdges             int  `yaml:"max_edges" validate:"min=0"`
	SampleCap            int  `yaml:"sample_cap" validate:"min=0"`
}

// Layout configures the position synthesizer.
type Layout struct {
	Seed          string  `yaml:"seed"`
	NodeCap       int     `yaml:"node_cap" validate:"min=0"`
	Extent        float64 `yaml:"extent" validate:"min=0"`
	MaxIterations int     `yaml:"max_iterations" validate:"min=0"`
}

// Cache configures build persistence.
type Cache struct {
	Dir string `yaml:"dir"`
}

// Events configures the external PUB socket. An empty address disables it.
type Events struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when a field is absent from the
// file.
func Default() Config {
	return Config{
		LogLevel: "info",
		Server: Server{
			ListenAddr:             ":8087",
			RebuildIntervalSeconds: 300,
		},
		Crawler: Crawler{
			Workers:        16,
			TimeoutSeconds: 10,
			RatePerSecond:  50,
		},
		Build: Build{
			DefaultPort:          9440,
			IncludeExternalPeers: true,
			MaxStubs:             500,
			MaxDegree:            0,
			MaxEdges:             0,
			SampleCap:            10000,
		},
		Layout: Layout{
			Seed:    "nodeatlas",
			NodeCap: 4000,
		},
		Cache: Cache{
			Dir: "data",
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path returns validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// RebuildInterval returns the scheduler period; zero disables periodic
// rebuilds.
func (s Server) RebuildInterval() time.Duration {
	return time.Duration(s.RebuildIntervalSeconds) * time.Second
}

// Timeout returns the per-request crawler timeout.
func (c Crawler) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
