package tts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Metrics holds the measurements of one synthesis.
type Metrics struct {
	Engine            string
	TextLength        int
	SynthesisStart    time.Time
	SynthesisDuration time.Duration
	AudioBytes        int
	CacheHit          bool
	Err               error
}

// metricsLog collects synthesis metrics for the process.
type metricsLog struct {
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
	entries []Metrics
}

var metrics = &metricsLog{logger: log.Default()}

// InitializeLogging sets the global log level and, when logFile is not empty,
// mirrors synthesis metrics to that file. The returned closer releases the
// file.
func InitializeLogging(debug bool, logFile string) (io.Closer, error) {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	metrics.enabled = debug
	metrics.logger = log.Default()

	if logFile == "" {
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	metrics.enabled = true
	metrics.logger = log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           log.DebugLevel,
		Prefix:          "tts",
	})
	log.Debug("Speech metrics log opened", "path", logFile)

	return f, nil
}

// StartSynthesis starts tracking a synthesis.
func StartSynthesis(engine, text string) *Metrics {
	m := &Metrics{
		Engine:         engine,
		TextLength:     len(text),
		SynthesisStart: time.Now(),
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.enabled {
		metrics.logger.Debug("Synthesis started",
			"engine", engine,
			"textLength", m.TextLength)
	}

	return m
}

// EndSynthesis records the outcome of a synthesis.
func (m *Metrics) EndSynthesis(audioBytes int, cacheHit bool, err error) {
	m.SynthesisDuration = time.Since(m.SynthesisStart)
	m.AudioBytes = audioBytes
	m.CacheHit = cacheHit
	m.Err = err

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	metrics.entries = append(metrics.entries, *m)

	if !metrics.enabled {
		return
	}
	if err != nil {
		metrics.logger.Error("Synthesis failed",
			"engine", m.Engine,
			"duration", m.SynthesisDuration,
			"error", err)
		return
	}
	metrics.logger.Info("Synthesis completed",
		"engine", m.Engine,
		"textLength", m.TextLength,
		"audio", humanize.Bytes(uint64(audioBytes)),
		"duration", m.SynthesisDuration,
		"cacheHit", cacheHit)
}

// LogEngineSelection logs which engine the host picked and why.
func LogEngineSelection(engine, reason string) {
	log.Info("Speech engine selected",
		"engine", engine,
		"reason", reason)
}

// SynthesisStats summarizes the metrics recorded so far.
func SynthesisStats() string {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	if len(metrics.entries) == 0 {
		return "No synthesis metrics available"
	}

	var totalDuration time.Duration
	var totalBytes uint64
	var cacheHits, failures int
	for _, m := range metrics.entries {
		totalDuration += m.SynthesisDuration
		totalBytes += uint64(m.AudioBytes)
		if m.CacheHit {
			cacheHits++
		}
		if m.Err != nil {
			failures++
		}
	}

	n := len(metrics.entries)
	return fmt.Sprintf(
		"Synthesis Stats:\n"+
			"  Total: %d\n"+
			"  Avg Duration: %v\n"+
			"  Total Audio: %s\n"+
			"  Cache Hit Rate: %.1f%%\n"+
			"  Errors: %d",
		n,
		totalDuration/time.Duration(n),
		humanize.Bytes(totalBytes),
		float64(cacheHits)/float64(n)*100,
		failures,
	)
}

// resetMetrics clears recorded metrics. Used by tests.
func resetMetrics() {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	metrics.entries = nil
}
