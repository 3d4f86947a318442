package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tempsweep/internal/tempfiles"
)

// DirectoryRule configures housekeeping for one scratch directory
type DirectoryRule struct {
	Path          string  `yaml:"path" json:"path"`
	AutoExpire    string  `yaml:"auto_expire" json:"auto_expire"`         // Go duration, e.g. "24h"; empty or "0" disables age eviction
	MaxFiles      *int    `yaml:"max_files" json:"max_files"`             // Absent or negative disables count eviction; 0 empties the directory
	CheckFileName *string `yaml:"check_file_name" json:"check_file_name"` // Absent means ".temporary"; "" disables the sentinel check
	SweepMarkers  *bool   `yaml:"sweep_markers" json:"sweep_markers"`     // Reconcile .delete markers after purging (default: true)

	autoExpire time.Duration
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
	Dir          string `yaml:"dir" json:"dir"`                     // Directory for tempsweep.log
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"` // Maximum CPU usage (e.g., 10.0)
}

type CleanupOptions struct {
	Recursive    bool `yaml:"recursive" json:"recursive"`           // Remove expired subdirectories with their contents
	UseBirthTime bool `yaml:"use_birth_time" json:"use_birth_time"` // Age entries by birth time instead of modification time
}

type Config struct {
	Directories     []DirectoryRule `yaml:"directories" json:"directories"`
	IntervalMinutes int             `yaml:"interval_minutes" json:"interval_minutes"`
	Prometheus      PrometheusCfg   `yaml:"prometheus" json:"prometheus"`
	Logging         LoggingCfg      `yaml:"logging" json:"logging"`
	ResourceLimits  ResourceLimits  `yaml:"resource_limits" json:"resource_limits"`
	CleanupOptions  CleanupOptions  `yaml:"cleanup_options" json:"cleanup_options"`
	DatabasePath    string          `yaml:"database_path" json:"database_path"`     // SQLite run history; "-" disables
	ProtectedPaths  []string        `yaml:"protected_paths" json:"protected_paths"` // Added to the built-in protected set
}

var (
	errNoDirectories   = errors.New("configuration must specify at least one directory")
	errInvalidPath     = errors.New("path must be absolute")
	errNegativeExpire  = errors.New("auto_expire cannot be negative")
	errDuplicatePath   = errors.New("directory listed more than once")
	errInvalidInterval = errors.New("interval_minutes must be positive")
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes and validates a configuration held in memory
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if len(c.Directories) == 0 {
		return errNoDirectories
	}

	if c.IntervalMinutes < 0 {
		return errInvalidInterval
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 15
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9090
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30 // Default: keep logs for 30 days
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "/var/log/tempsweep"
	}

	if c.ResourceLimits.MaxCPUPercent <= 0 {
		c.ResourceLimits.MaxCPUPercent = 10.0 // Default: 10% CPU limit
	}

	if c.DatabasePath == "" {
		c.DatabasePath = "/var/lib/tempsweep/history.db"
	}

	seen := make(map[string]bool, len(c.Directories))
	for i := range c.Directories {
		d := &c.Directories[i]

		cp, err := cleanAbsolute(d.Path)
		if err != nil {
			return err
		}
		if seen[cp] {
			return fmt.Errorf("%w: %s", errDuplicatePath, cp)
		}
		seen[cp] = true
		d.Path = cp

		if strings.TrimSpace(d.AutoExpire) != "" {
			dur, err := time.ParseDuration(strings.TrimSpace(d.AutoExpire))
			if err != nil {
				return fmt.Errorf("directory %s: auto_expire: %w", cp, err)
			}
			if dur < 0 {
				return fmt.Errorf("directory %s: %w", cp, errNegativeExpire)
			}
			d.autoExpire = dur
		}

		if d.MaxFiles == nil {
			unlimited := tempfiles.NoFileLimit
			d.MaxFiles = &unlimited
		}
		if d.CheckFileName == nil {
			check := tempfiles.DefaultCheckFileName
			d.CheckFileName = &check
		}
		if d.SweepMarkers == nil {
			sweep := true
			d.SweepMarkers = &sweep
		}
	}

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// Policy returns the purge policy for the rule. Only valid after Load or Parse.
func (d DirectoryRule) Policy() tempfiles.Policy {
	p := tempfiles.DefaultPolicy()
	p.AutoExpire = d.autoExpire
	if d.MaxFiles != nil {
		p.MaxFiles = *d.MaxFiles
	}
	if d.CheckFileName != nil {
		p.CheckFileName = *d.CheckFileName
	}
	return p
}

// Sweep reports whether markers in the directory should be reconciled
func (d DirectoryRule) Sweep() bool {
	return d.SweepMarkers == nil || *d.SweepMarkers
}

// Roots returns every configured directory path
func (c *Config) Roots() []string {
	roots := make([]string, 0, len(c.Directories))
	for _, d := range c.Directories {
		roots = append(roots, d.Path)
	}
	return roots
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}

// HistoryEnabled reports whether run history should be recorded
func (c *Config) HistoryEnabled() bool {
	return c.DatabasePath != "-"
}
