package tts

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
)

// Config contains all speech configuration options.
type Config struct {
	Engine   string `yaml:"engine"`
	Language string `yaml:"language"`
	Voice    string `yaml:"voice"`
	Category string `yaml:"category"`

	// Output settings
	OutputDir string `yaml:"output_dir"`
	MaxWords  int    `yaml:"max_words"`

	// InitTimeout bounds how long the host waits for the engine to settle.
	InitTimeout time.Duration `yaml:"init_timeout"`

	// Engine-specific configurations
	Piper PiperConfig `yaml:"piper"`
	Cache CacheConfig `yaml:"cache"`
	Mock  MockConfig  `yaml:"mock"`
}

// PiperConfig contains Piper engine specific settings.
type PiperConfig struct {
	// Binary may carry extra arguments, e.g. "python3 -m piper".
	Binary   string        `yaml:"binary"`
	ModelDir string        `yaml:"model_dir"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CacheConfig contains synthesized audio cache settings.
type CacheConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Dir              string `yaml:"dir"`
	MaxSizeMB        int64  `yaml:"max_size_mb"`
	CompressionLevel int    `yaml:"compression_level"`
}

// MockConfig contains mock engine settings for dry runs.
type MockConfig struct {
	CompletionDelay time.Duration `yaml:"completion_delay"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:      "piper",
		Language:    DefaultLocale.String(),
		Category:    string(CategoryNatural),
		OutputDir:   "~/Downloads",
		MaxWords:    DefaultMaxWords,
		InitTimeout: 10 * time.Second,

		Piper: DefaultPiperConfig(),
		Cache: DefaultCacheConfig(),
		Mock:  DefaultMockConfig(),
	}
}

// DefaultPiperConfig returns default Piper configuration.
func DefaultPiperConfig() PiperConfig {
	cfg := PiperConfig{
		Binary:  "piper",
		Timeout: 30 * time.Second,
	}

	// Try to detect common Piper installation paths
	switch runtime.GOOS {
	case "linux":
		cfg.ModelDir = filepath.Join("/usr", "share", "piper-voices")
	case "darwin":
		cfg.ModelDir = filepath.Join("/usr", "local", "share", "piper-voices")
	}

	return cfg
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:          true,
		MaxSizeMB:        100,
		CompressionLevel: 3,
	}
}

// DefaultMockConfig returns default mock engine configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		CompletionDelay: 200 * time.Millisecond,
	}
}

// DefaultOutputDir returns the expanded default directory for saved audio.
func DefaultOutputDir() string {
	dir, err := homedir.Expand("~/Downloads")
	if err != nil {
		return "Downloads"
	}
	return dir
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{"mock", "piper"}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = strings.ToLower(c.Engine)
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w: engine %q must be one of %v", ErrInvalidConfig, c.Engine, validEngines)
	}

	if c.Language != "" {
		if _, err := LookupLanguage(c.Language); err != nil {
			return fmt.Errorf("%w: language: %w", ErrInvalidConfig, err)
		}
	}

	if c.Category != "" {
		if _, err := ParseVoiceCategory(c.Category); err != nil {
			return fmt.Errorf("%w: category: %w", ErrInvalidConfig, err)
		}
	}

	if c.MaxWords < 0 {
		return fmt.Errorf("%w: max_words must not be negative, got %d", ErrInvalidConfig, c.MaxWords)
	}

	if c.InitTimeout < 0 {
		return fmt.Errorf("%w: init_timeout must not be negative, got %v", ErrInvalidConfig, c.InitTimeout)
	}

	switch c.Engine {
	case "piper":
		if err := c.Piper.Validate(); err != nil {
			return fmt.Errorf("piper config: %w", err)
		}
	case "mock":
		if err := c.Mock.Validate(); err != nil {
			return fmt.Errorf("mock config: %w", err)
		}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	return nil
}

// Validate checks if the Piper configuration is valid.
func (c *PiperConfig) Validate() error {
	if strings.TrimSpace(c.Binary) == "" {
		return fmt.Errorf("%w: piper binary cannot be empty", ErrInvalidConfig)
	}

	if c.Timeout < time.Second {
		return fmt.Errorf("%w: timeout must be at least 1 second, got %v", ErrInvalidConfig, c.Timeout)
	}

	return nil
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.MaxSizeMB <= 0 {
		return fmt.Errorf("%w: max_size_mb must be positive, got %d", ErrInvalidConfig, c.MaxSizeMB)
	}

	// zstd speed levels 1 (fastest) to 4 (best compression)
	if c.CompressionLevel < 1 || c.CompressionLevel > 4 {
		return fmt.Errorf("%w: compression_level must be between 1 and 4, got %d", ErrInvalidConfig, c.CompressionLevel)
	}

	return nil
}

// Validate checks if the mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.CompletionDelay < 0 {
		return fmt.Errorf("%w: completion_delay must not be negative, got %v", ErrInvalidConfig, c.CompletionDelay)
	}
	return nil
}

// ResolvedOutputDir returns OutputDir with "~" expanded.
func (c *Config) ResolvedOutputDir() string {
	if c.OutputDir == "" {
		return DefaultOutputDir()
	}
	dir, err := homedir.Expand(c.OutputDir)
	if err != nil {
		return c.OutputDir
	}
	return dir
}
