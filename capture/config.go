package capture

import (
	"github.com/hazyhaar/uiproof/capture/internal/config"
)

// Config is the top-level uiproof configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls the Chromium lifecycle.
type BrowserConfig = config.BrowserConfig

// ReportConfig controls the HTTP report server.
type ReportConfig = config.ReportConfig

// MonitorConfig controls periodic re-running.
type MonitorConfig = config.MonitorConfig

// RetentionConfig controls run-history pruning.
type RetentionConfig = config.RetentionConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
