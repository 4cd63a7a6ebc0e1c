package main

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/vishlabs/readaloud/tts"
)

// hostEnv holds settings read straight from the environment, before any
// config file is parsed.
type hostEnv struct {
	Debug   bool   `env:"READALOUD_DEBUG"`
	LogFile string `env:"READALOUD_LOG_FILE"`
}

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "readaloud").CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "readaloud.log"), nil
}

func setupLog() (func() error, error) {
	cfg, err := env.ParseAs[hostEnv]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	log.SetPrefix("readaloud")
	logFile := cfg.LogFile
	if cfg.Debug && logFile == "" {
		if logFile, err = getLogFilePath(); err != nil {
			return nil, err
		}
	}

	closer, err := tts.InitializeLogging(cfg.Debug, logFile)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if cfg.Debug {
		log.Debug("Debug logging enabled", "file", logFile)
	}
	return closer.Close, nil
}
