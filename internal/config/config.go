// Package config loads the rpm-fetch configuration. Values are layered:
// built-in defaults, then the YAML config file, then RPM_FETCH_* environment
// variables (optionally read from a .env file). Command-line flags are
// applied last by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/rpm-fetch/internal/config/validate"
	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
)

const (
	// DefaultConfigFile is looked up in the working directory.
	DefaultConfigFile = "rpm-fetch.yml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "RPM_FETCH_"
)

var (
	ProgressModes = []string{"auto", "bar", "log", "none"}
	LogLevels     = []string{"debug", "info", "warn", "error"}
	LogFormats    = []string{"text", "console", "json"}
)

// ErrInvalidConfig wraps every semantic configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GlobalConfig holds every setting that can come from the config file.
type GlobalConfig struct {
	Workers        int           `yaml:"workers"`
	MaxMirrors     int           `yaml:"max_mirrors"`
	Dest           string        `yaml:"dest"`
	ReportDir      string        `yaml:"report_dir"`
	Release        string        `yaml:"release"`
	Arch           string        `yaml:"arch"`
	PackageArch    string        `yaml:"package_arch"`
	Repo           string        `yaml:"repo"`
	RepoFile       string        `yaml:"repo_file"`
	MirrorListURL  string        `yaml:"mirrorlist_url"`
	Timeout        time.Duration `yaml:"timeout"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	Progress       string        `yaml:"progress"`
	Checksum       string        `yaml:"checksum"`
	GPGKey         string        `yaml:"gpg_key"`
	VerifyHeader   bool          `yaml:"verify_header"`
	Logging        LoggingConfig `yaml:"logging"`
}

// DefaultGlobalConfig returns the built-in defaults.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Workers:     1,
		Dest:        ".",
		Release:     "39",
		Arch:        "x86_64",
		PackageArch: "noarch",
		Repo:        "fedora",
		Progress:    "auto",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks values the schema cannot express.
func (c *GlobalConfig) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.MaxMirrors < 0 {
		errs = append(errs, fmt.Errorf("max_mirrors must not be negative, got %d", c.MaxMirrors))
	}
	if c.Timeout < 0 || c.AttemptTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Dest == "" {
		errs = append(errs, errors.New("dest must not be empty"))
	}
	if !slices.Contains(ProgressModes, c.Progress) {
		errs = append(errs, fmt.Errorf("progress must be one of %s, got %q", strings.Join(ProgressModes, "|"), c.Progress))
	}
	if !slices.Contains(LogLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %s, got %q", strings.Join(LogLevels, "|"), c.Logging.Level))
	}
	if !slices.Contains(LogFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %s, got %q", strings.Join(LogFormats, "|"), c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ParseGlobalConfig validates data against the config schema and decodes it
// over the defaults. An empty document yields the defaults.
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := validate.ValidateConfigYAML(data); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchPaths lists where a config file is looked for when none is given.
func SearchPaths() []string {
	paths := []string{DefaultConfigFile}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "rpm-fetch", "config.yml"))
	}
	return paths
}

// LoadGlobalConfig reads the config file. An explicit path must exist;
// otherwise the first existing file from SearchPaths is used, and the
// defaults apply when there is none. The path actually read is returned
// (empty for defaults).
func LoadGlobalConfig(path string) (*GlobalConfig, string, error) {
	log := logger.Logger()

	if path == "" {
		for _, candidate := range SearchPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			log.Debugf("no config file found, using defaults")
			return DefaultGlobalConfig(), "", nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := ParseGlobalConfig(data)
	if err != nil {
		return nil, "", fmt.Errorf("loading config %s: %w", path, err)
	}
	log.Debugf("loaded config from %s", path)
	return cfg, path, nil
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with RPM_FETCH_* variables found by lookup.
func ApplyEnv(cfg *GlobalConfig, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		"DEST":           &cfg.Dest,
		"REPORT_DIR":     &cfg.ReportDir,
		"RELEASE":        &cfg.Release,
		"ARCH":           &cfg.Arch,
		"PACKAGE_ARCH":   &cfg.PackageArch,
		"REPO":           &cfg.Repo,
		"REPO_FILE":      &cfg.RepoFile,
		"MIRRORLIST_URL": &cfg.MirrorListURL,
		"PROGRESS":       &cfg.Progress,
		"CHECKSUM":       &cfg.Checksum,
		"GPG_KEY":        &cfg.GPGKey,
		"LOG_LEVEL":      &cfg.Logging.Level,
		"LOG_FORMAT":     &cfg.Logging.Format,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"WORKERS":     &cfg.Workers,
		"MAX_MIRRORS": &cfg.MaxMirrors,
	}
	for name, dst := range ints {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":         &cfg.Timeout,
		"ATTEMPT_TIMEOUT": &cfg.AttemptTimeout,
	}
	for name, dst := range durations {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, name, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup(EnvPrefix + "VERIFY_HEADER"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sVERIFY_HEADER: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.VerifyHeader = b
	}

	return cfg.Validate()
}

var (
	globalMu     sync.RWMutex
	globalConfig = DefaultGlobalConfig()
)

// Global returns the process-wide configuration.
func Global() *GlobalConfig {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *GlobalConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}
