package tts

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("tts.engine") {
		cfg.Engine = viper.GetString("tts.engine")
	}
	if viper.IsSet("tts.language") {
		cfg.Language = viper.GetString("tts.language")
	}
	if viper.IsSet("tts.voice") {
		cfg.Voice = viper.GetString("tts.voice")
	}
	if viper.IsSet("tts.category") {
		cfg.Category = viper.GetString("tts.category")
	}

	// Output settings
	if viper.IsSet("tts.output_dir") {
		cfg.OutputDir = viper.GetString("tts.output_dir")
	}
	if viper.IsSet("tts.max_words") {
		cfg.MaxWords = viper.GetInt("tts.max_words")
	}
	if viper.IsSet("tts.init_timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.init_timeout")); err == nil {
			cfg.InitTimeout = d
		}
	}

	cfg.Piper = loadPiperConfig()
	cfg.Cache = loadCacheConfig()
	cfg.Mock = loadMockConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid TTS configuration: %w", err)
	}

	return cfg, nil
}

// loadPiperConfig loads Piper-specific configuration from Viper.
func loadPiperConfig() PiperConfig {
	cfg := DefaultPiperConfig()

	if viper.IsSet("tts.piper.binary") {
		cfg.Binary = viper.GetString("tts.piper.binary")
	}
	if viper.IsSet("tts.piper.model_dir") {
		cfg.ModelDir = viper.GetString("tts.piper.model_dir")
	}
	if viper.IsSet("tts.piper.timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.piper.timeout")); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

// loadCacheConfig loads audio cache configuration from Viper.
func loadCacheConfig() CacheConfig {
	cfg := DefaultCacheConfig()

	if viper.IsSet("tts.cache.enabled") {
		cfg.Enabled = viper.GetBool("tts.cache.enabled")
	}
	if viper.IsSet("tts.cache.dir") {
		cfg.Dir = viper.GetString("tts.cache.dir")
	}
	if viper.IsSet("tts.cache.max_size_mb") {
		cfg.MaxSizeMB = viper.GetInt64("tts.cache.max_size_mb")
	}
	if viper.IsSet("tts.cache.compression_level") {
		cfg.CompressionLevel = viper.GetInt("tts.cache.compression_level")
	}

	return cfg
}

// loadMockConfig loads mock engine configuration from Viper.
func loadMockConfig() MockConfig {
	cfg := DefaultMockConfig()

	if viper.IsSet("tts.mock.completion_delay") {
		if d, err := time.ParseDuration(viper.GetString("tts.mock.completion_delay")); err == nil {
			cfg.CompletionDelay = d
		}
	}

	return cfg
}

// SetDefaults sets default values in Viper for speech configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("tts.engine", defaults.Engine)
	viper.SetDefault("tts.language", defaults.Language)
	viper.SetDefault("tts.category", defaults.Category)
	viper.SetDefault("tts.output_dir", defaults.OutputDir)
	viper.SetDefault("tts.max_words", defaults.MaxWords)
	viper.SetDefault("tts.init_timeout", defaults.InitTimeout.String())

	// Piper defaults
	viper.SetDefault("tts.piper.binary", defaults.Piper.Binary)
	viper.SetDefault("tts.piper.model_dir", defaults.Piper.ModelDir)
	viper.SetDefault("tts.piper.timeout", defaults.Piper.Timeout.String())

	// Cache defaults
	viper.SetDefault("tts.cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("tts.cache.max_size_mb", defaults.Cache.MaxSizeMB)
	viper.SetDefault("tts.cache.compression_level", defaults.Cache.CompressionLevel)

	// Mock defaults
	viper.SetDefault("tts.mock.completion_delay", defaults.Mock.CompletionDelay.String())
}
