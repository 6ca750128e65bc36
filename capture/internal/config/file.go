// Package config parses the uiproof YAML configuration file with defaults.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level uiproof configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Scenarios []string        `yaml:"scenarios"` // scenario YAML file paths
	DB        string          `yaml:"db"`        // run-history SQLite path; empty = no history
	Report    ReportConfig    `yaml:"report"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Retention RetentionConfig `yaml:"retention"`
}

// BrowserConfig controls the Chromium lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          string        `yaml:"stealth"` // plain | stealth | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
}

// ReportConfig controls the HTTP report server.
type ReportConfig struct {
	Addr     string `yaml:"addr"`
	AuthUser string `yaml:"auth_user"`
	AuthHash string `yaml:"auth_hash"` // bcrypt hash of the password
}

// MonitorConfig controls periodic re-running.
type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"`
	Debounce time.Duration `yaml:"debounce"`
}

// RetentionConfig controls run-history pruning.
type RetentionConfig struct {
	OKDays     int  `yaml:"ok_days"`
	FailedDays int  `yaml:"failed_days"`
	Vacuum     bool `yaml:"vacuum"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "plain"
	}
	if c.Report.Addr == "" {
		// 8080 belongs to the page under test.
		c.Report.Addr = ":8090"
	}
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = 5 * time.Minute
	}
	if c.Monitor.Debounce <= 0 {
		c.Monitor.Debounce = 30 * time.Second
	}
}
