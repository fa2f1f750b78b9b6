package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/spf13/viper"
)

// Defaults applied when a key is not set in the config file, environment or flags.
const (
	DefaultDatabasePath = "$HOME/.local/share/librarian/librarian.db"
	DefaultDestination  = "~/Documents/Library"
	DefaultStaging      = "~/Documents/Library/_Staging"
	DefaultSnippetBytes = 4096
	DefaultWorkers      = 4
	DefaultOverdueDays  = 7
)

// Config is the resolved librarian configuration.
type Config struct {
	DatabasePath string
	RulesFile    string
	Destination  string
	Staging      string
	Roots        []string
	Exclude      []string
	SnippetBytes int
	Workers      int
	OverdueDays  int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("library.destination", DefaultDestination)
	v.SetDefault("library.staging", DefaultStaging)
	v.SetDefault("library.roots", []string{"~/Downloads", "~/Desktop"})
	v.SetDefault("library.exclude", []string{"*.part", "*.crdownload", "*.download"})
	v.SetDefault("scan.snippet_bytes", DefaultSnippetBytes)
	v.SetDefault("scan.workers", DefaultWorkers)
	v.SetDefault("staging.overdue_days", DefaultOverdueDays)
}

// fileConfig mirrors the nested key layout of the config file.
type fileConfig struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Rules struct {
		File string `mapstructure:"file"`
	} `mapstructure:"rules"`
	Library struct {
		Destination string   `mapstructure:"destination"`
		Staging     string   `mapstructure:"staging"`
		Roots       []string `mapstructure:"roots"`
		Exclude     []string `mapstructure:"exclude"`
	} `mapstructure:"library"`
	Scan struct {
		SnippetBytes int `mapstructure:"snippet_bytes"`
		Workers      int `mapstructure:"workers"`
	} `mapstructure:"scan"`
	Staging struct {
		OverdueDays int `mapstructure:"overdue_days"`
	} `mapstructure:"staging"`
}

// Load resolves configuration from v, expanding paths and validating values.
// It follows this precedence:
// 1. Flags bound to v
// 2. LIBRARIAN_ environment variables
// 3. The config file
// 4. Defaults
func Load(v *viper.Viper) (*Config, error) {
	var raw fileConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	cfg := &Config{
		DatabasePath: ExpandPath(raw.Database.Path),
		RulesFile:    ExpandPath(raw.Rules.File),
		Destination:  ExpandPath(raw.Library.Destination),
		Staging:      ExpandPath(raw.Library.Staging),
		Exclude:      raw.Library.Exclude,
		SnippetBytes: raw.Scan.SnippetBytes,
		Workers:      raw.Scan.Workers,
		OverdueDays:  raw.Staging.OverdueDays,
	}

	for _, root := range raw.Library.Roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		cfg.Roots = append(cfg.Roots, ExpandPath(root))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.Destination == "" {
		return fmt.Errorf("%w: library.destination", common.ErrMissingConfig)
	}
	if c.Staging == "" {
		return fmt.Errorf("%w: library.staging", common.ErrMissingConfig)
	}
	if c.SnippetBytes < 0 {
		return fmt.Errorf("%w: scan.snippet_bytes must not be negative", common.ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: scan.workers must be positive", common.ErrInvalidConfig)
	}
	if c.OverdueDays <= 0 {
		return fmt.Errorf("%w: staging.overdue_days must be positive", common.ErrInvalidConfig)
	}
	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: library.exclude pattern %q: %v", common.ErrInvalidConfig, pattern, err)
		}
	}
	return nil
}
