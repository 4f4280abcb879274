package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration is a YAML-friendly duration: strings parse via
// time.ParseDuration ("30s", "2m"), bare integers count as seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration node: kind=%d value=%q", value.Kind, value.Value)
	}
	s := strings.TrimSpace(value.Value)
	switch value.Tag {
	case "!!str":
		if s == "" {
			d.Duration = 0
			return nil
		}
		dd, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d.Duration = dd
		return nil
	case "!!int":
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid duration seconds %q: %w", s, err)
		}
		d.Duration = time.Duration(secs) * time.Second
		return nil
	}
	return fmt.Errorf("unsupported duration value %q", value.Value)
}

// Source is one polled price endpoint. Path is resolved against the
// top-level base_url; name is the display label and metric key.
type Source struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`

	// Per-source schedule overrides; zero inherits the defaults below.
	RefreshInterval Duration `yaml:"refresh_interval"`
	RetryCount      int      `yaml:"retry_count"`
}

// Config is the dashboard configuration file.
type Config struct {
	Listen   string `yaml:"listen"`
	BaseURL  string `yaml:"base_url"`
	LogLevel string `yaml:"log_level"`

	RequestTimeout        Duration `yaml:"request_timeout"`
	RefreshInterval       Duration `yaml:"refresh_interval"`
	DedupingInterval      Duration `yaml:"deduping_interval"`
	LoadingTimeout        Duration `yaml:"loading_timeout"`
	ErrorRetryCount       int      `yaml:"error_retry_count"`
	RevalidateOnReconnect bool     `yaml:"revalidate_on_reconnect"`

	Sources []Source `yaml:"sources"`
}

// LoadConfig reads and validates the YAML file at path, then applies
// environment overrides (DASHBOARD_LISTEN, DASHBOARD_BASE_URL,
// DASHBOARD_LOG_LEVEL). A .env file, if present, is loaded by main
// before this runs.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := &Config{
		Listen:          ":8080",
		LogLevel:        "info",
		RequestTimeout:  Duration{10 * time.Second},
		RefreshInterval: Duration{5 * time.Second},
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	if v := os.Getenv("DASHBOARD_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("DASHBOARD_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("DASHBOARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("config: base_url is required")
	}
	if len(cfg.Sources) == 0 {
		return nil, errors.New("config: at least one source is required")
	}
	seen := make(map[string]struct{}, len(cfg.Sources))
	for i, s := range cfg.Sources {
		if s.Name == "" || s.Path == "" {
			return nil, errors.Errorf("config: source %d needs name and path", i)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, errors.Errorf("config: duplicate source name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return cfg, nil
}
