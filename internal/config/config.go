package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beevans/integrated-manager-for-lustre/internal/logger"
)

// Scan sources understood by the scanner.
const (
	SourceLsblk = "lsblk"
	SourceMdadm = "mdadm"
	SourceLVM   = "lvm"
	SourceZFS   = "zfs"
	SourceGHW   = "ghw"
)

var knownSources = map[string]bool{
	SourceLsblk: true,
	SourceMdadm: true,
	SourceLVM:   true,
	SourceZFS:   true,
	SourceGHW:   true,
}

type Config struct {
	Database string `yaml:"database"`
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`
	// Workers bounds concurrent per-host merges; 0 uses GOMAXPROCS.
	Workers int   `yaml:"workers,omitempty"`
	Scan    Scan  `yaml:"scan"`
	Agent   Agent `yaml:"agent"`
}

type Scan struct {
	Sources  []string      `yaml:"sources"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type Agent struct {
	ManagerURL    string        `yaml:"manager_url,omitempty"`
	FQDN          string        `yaml:"fqdn,omitempty"`
	Interval      time.Duration `yaml:"interval"`
	Backoff       Backoff       `yaml:"backoff"`
	MetricsListen string        `yaml:"metrics_listen,omitempty"`
}

type Backoff struct {
	Initial time.Duration `yaml:"initial"`
	Factor  float64       `yaml:"factor"`
	Steps   int           `yaml:"steps"`
}

var defaultConfig = Config{
	Database: "/var/lib/iml-device/devices.db",
	Listen:   ":8443",
	LogLevel: "info",
	Scan: Scan{
		Sources:  []string{SourceLsblk, SourceMdadm, SourceLVM, SourceZFS},
		CacheTTL: 30 * time.Second,
	},
	Agent: Agent{
		Interval: 5 * time.Minute,
		Backoff: Backoff{
			Initial: time.Second,
			Factor:  2,
			Steps:   5,
		},
	},
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	cfg := defaultConfig
	cfg.Scan.Sources = append([]string(nil), defaultConfig.Scan.Sources...)
	return &cfg
}

// Load reads the configuration at path, or the first existing default
// location when path is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		candidates := []string{
			"/etc/iml-device/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/iml-device/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := &Config{}
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := defaultConfig
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if len(c.Scan.Sources) == 0 {
		c.Scan.Sources = append([]string(nil), d.Scan.Sources...)
	}
	if c.Scan.CacheTTL == 0 {
		c.Scan.CacheTTL = d.Scan.CacheTTL
	}
	if c.Agent.Interval == 0 {
		c.Agent.Interval = d.Agent.Interval
	}
	if c.Agent.Backoff.Initial == 0 {
		c.Agent.Backoff.Initial = d.Agent.Backoff.Initial
	}
	if c.Agent.Backoff.Factor == 0 {
		c.Agent.Backoff.Factor = d.Agent.Backoff.Factor
	}
	if c.Agent.Backoff.Steps == 0 {
		c.Agent.Backoff.Steps = d.Agent.Backoff.Steps
	}
}

// Validate reports every problem found in c.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logger.ParseVerbosity(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	for _, s := range c.Scan.Sources {
		if !knownSources[s] {
			errs = append(errs, fmt.Errorf("unknown scan source %q", s))
		}
	}
	if c.Scan.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("scan.cache_ttl must not be negative"))
	}
	if c.Agent.ManagerURL != "" {
		u, err := url.Parse(c.Agent.ManagerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("agent.manager_url %q is not an absolute URL", c.Agent.ManagerURL))
		}
	}
	if c.Agent.Interval < time.Second {
		errs = append(errs, fmt.Errorf("agent.interval must be at least 1s, got %s", c.Agent.Interval))
	}
	if c.Agent.Backoff.Factor < 1 {
		errs = append(errs, fmt.Errorf("agent.backoff.factor must be >= 1"))
	}

	return errors.Join(errs...)
}

// HasSource reports whether the named scan source is enabled.
func (c *Config) HasSource(name string) bool {
	for _, s := range c.Scan.Sources {
		if s == name {
			return true
		}
	}
	return false
}
