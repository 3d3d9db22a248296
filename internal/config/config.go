// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all multiverse configuration.
type Config struct {
	Catalog Catalog `yaml:"catalog"`
	Images  Images  `yaml:"images"`
	UI      UI      `yaml:"ui"`
	Log     Log     `yaml:"log"`
}

// Catalog holds remote catalog API settings.
type Catalog struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Images holds portrait fetch and display settings.
type Images struct {
	Width   int           `yaml:"width"`  // Terminal cells.
	Height  int           `yaml:"height"` // Terminal cells; each cell shows two pixel rows.
	Timeout time.Duration `yaml:"timeout"`
}

// UI holds interactive browser settings.
type UI struct {
	AutoSelect bool `yaml:"auto_select"` // Select records as the cursor moves.
}

// Log holds logger settings.
type Log struct {
	Level      string `yaml:"level"`  // debug | info | warn | error
	Format     string `yaml:"format"` // text | json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Catalog: Catalog{
			BaseURL: "https://rickandmortyapi.com/api",
			Timeout: 10 * time.Second,
		},
		Images: Images{
			Width:   32,
			Height:  16,
			Timeout: 30 * time.Second,
		},
		UI: UI{
			AutoSelect: true,
		},
		Log: Log{
			Level:      "info",
			Format:     "text",
			File:       ".multiverse/multiverse.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// PixelBounds returns the portrait size in pixels for the configured cell box.
func (i Images) PixelBounds() (width, height int) {
	return i.Width, i.Height * 2
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return errors.New("config: catalog.base_url cannot be empty")
	}
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: catalog.base_url must be an absolute http(s) URL, got %q", c.Catalog.BaseURL)
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("config: catalog.timeout must be positive, got %v", c.Catalog.Timeout)
	}
	if c.Images.Width <= 0 || c.Images.Height <= 0 {
		return fmt.Errorf("config: images.width and images.height must be positive, got %dx%d", c.Images.Width, c.Images.Height)
	}
	if c.Images.Timeout <= 0 {
		return fmt.Errorf("config: images.timeout must be positive, got %v", c.Images.Timeout)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
		// valid
	default:
		return fmt.Errorf("config: log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
		// valid
	default:
		return fmt.Errorf("config: log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("config: log.max_size_mb and log.max_backups must be non-negative")
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: MULTIVERSE_BASE_URL, MULTIVERSE_TIMEOUT,
// MULTIVERSE_LOG_LEVEL, MULTIVERSE_LOG_FILE.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("MULTIVERSE_BASE_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("MULTIVERSE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid MULTIVERSE_TIMEOUT %q: %w", v, err)
		}
		c.Catalog.Timeout = d
	}
	if v := os.Getenv("MULTIVERSE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv("MULTIVERSE_LOG_FILE"); ok {
		c.Log.File = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Catalog *rawCatalog `yaml:"catalog"`
	Images  *rawImages  `yaml:"images"`
	UI      *rawUI      `yaml:"ui"`
	Log     *rawLog     `yaml:"log"`
}

type rawCatalog struct {
	BaseURL *string        `yaml:"base_url"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawImages struct {
	Width   *int           `yaml:"width"`
	Height  *int           `yaml:"height"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawUI struct {
	AutoSelect *bool `yaml:"auto_select"`
}

type rawLog struct {
	Level      *string `yaml:"level"`
	Format     *string `yaml:"format"`
	File       *string `yaml:"file"`
	MaxSizeMB  *int    `yaml:"max_size_mb"`
	MaxBackups *int    `yaml:"max_backups"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if layer.Catalog != nil {
		if layer.Catalog.BaseURL != nil {
			c.Catalog.BaseURL = *layer.Catalog.BaseURL
		}
		if layer.Catalog.Timeout != nil {
			c.Catalog.Timeout = *layer.Catalog.Timeout
		}
	}
	if layer.Images != nil {
		if layer.Images.Width != nil {
			c.Images.Width = *layer.Images.Width
		}
		if layer.Images.Height != nil {
			c.Images.Height = *layer.Images.Height
		}
		if layer.Images.Timeout != nil {
			c.Images.Timeout = *layer.Images.Timeout
		}
	}
	if layer.UI != nil {
		if layer.UI.AutoSelect != nil {
			c.UI.AutoSelect = *layer.UI.AutoSelect
		}
	}
	if layer.Log != nil {
		if layer.Log.Level != nil {
			c.Log.Level = *layer.Log.Level
		}
		if layer.Log.Format != nil {
			c.Log.Format = *layer.Log.Format
		}
		if layer.Log.File != nil {
			c.Log.File = *layer.Log.File
		}
		if layer.Log.MaxSizeMB != nil {
			c.Log.MaxSizeMB = *layer.Log.MaxSizeMB
		}
		if layer.Log.MaxBackups != nil {
			c.Log.MaxBackups = *layer.Log.MaxBackups
		}
	}
}
