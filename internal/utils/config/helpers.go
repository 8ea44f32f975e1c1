package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	globalconfig "github.com/open-edge-platform/rpm-fetch/internal/config"
)

// ConfigHelpers provides convenient access to global configuration
type ConfigHelpers struct {
	config *globalconfig.GlobalConfig
}

// NewConfigHelpers creates a new config helpers instance. A nil config
// means the process-wide one.
func NewConfigHelpers(config *globalconfig.GlobalConfig) *ConfigHelpers {
	if config == nil {
		config = globalconfig.Global()
	}
	return &ConfigHelpers{config: config}
}

// Workers returns the number of mirrors raced at once
func (c *ConfigHelpers) Workers() int {
	if c.config.Workers < 1 {
		return 1
	}
	return c.config.Workers
}

// RaceMode reports whether more than one mirror is tried at a time
func (c *ConfigHelpers) RaceMode() bool {
	return c.Workers() > 1
}

// DestDir returns the absolute destination directory. Bucket URLs are
// returned unchanged.
func (c *ConfigHelpers) DestDir() (string, error) {
	if isURL(c.config.Dest) {
		return c.config.Dest, nil
	}
	return filepath.Abs(c.config.Dest)
}

// ReportDir returns the absolute report directory, or "" when reports
// are disabled
func (c *ConfigHelpers) ReportDir() (string, error) {
	if c.config.ReportDir == "" {
		return "", nil
	}
	return filepath.Abs(c.config.ReportDir)
}

// IsDebugMode returns true if debug logging is enabled
func (c *ConfigHelpers) IsDebugMode() bool {
	return c.config.Logging.Level == "debug"
}

// CreateDestDir ensures a local destination directory exists
func (c *ConfigHelpers) CreateDestDir() error {
	if isURL(c.config.Dest) {
		return nil
	}
	destDir, err := c.DestDir()
	if err != nil {
		return fmt.Errorf("resolving destination directory: %w", err)
	}
	return createDirIfNotExists(destDir)
}

// CreateReportDir ensures the report directory exists when reports are enabled
func (c *ConfigHelpers) CreateReportDir() error {
	reportDir, err := c.ReportDir()
	if err != nil {
		return fmt.Errorf("resolving report directory: %w", err)
	}
	if reportDir == "" {
		return nil
	}
	return createDirIfNotExists(reportDir)
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && len(u.Scheme) > 1
}

// Helper function to create directories
func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
