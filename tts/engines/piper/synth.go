package piper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-shellwords"
)

// maxAudioSize caps the PCM a single utterance may produce.
const maxAudioSize = 50 * 1024 * 1024

// Synthesizer turns text into mono s16le PCM at the model's sample rate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, model Model, rate float64) ([]byte, error)
}

// commandSynth runs a fresh Piper process per utterance.
type commandSynth struct {
	argv    []string
	timeout time.Duration
	logger  *log.Logger
}

// newCommandSynth parses binary, which may include extra arguments, and
// resolves the executable on PATH.
func newCommandSynth(binary string, timeout time.Duration, logger *log.Logger) (*commandSynth, error) {
	argv, err := shellwords.Parse(binary)
	if err != nil {
		return nil, fmt.Errorf("parse piper command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("piper command empty")
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("piper not found: %w", err)
	}
	argv[0] = path

	return &commandSynth{argv: argv, timeout: timeout, logger: logger}, nil
}

// args builds the Piper arguments for model at rate.
func (s *commandSynth) args(model Model, rate float64) []string {
	args := append([]string{}, s.argv[1:]...)
	args = append(args, "--model", model.Path)
	if model.ConfigPath != "" {
		args = append(args, "--config", model.ConfigPath)
	}
	args = append(args, "--output-raw")
	if rate > 0 && rate != 1 {
		// Piper stretches time instead of speeding up: 0.5x speed is scale 2.
		args = append(args, "--length_scale", strconv.FormatFloat(1/rate, 'f', 3, 64))
	}
	return args
}

func (s *commandSynth) Synthesize(ctx context.Context, text string, model Model, rate float64) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := s.args(model, rate)
	cmd := exec.Command(s.argv[0], args...)
	// Text goes in before start so Piper never sees an empty stdin.
	cmd.Stdin = strings.NewReader(text + "\n")
	// Bound the wait for output pipes held open by orphaned children.
	cmd.WaitDelay = 500 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start piper: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		s.logger.Debug("Piper exited", "duration", time.Since(start), "error", err)
		if err != nil {
			return nil, fmt.Errorf("piper failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
		}

	case <-ctx.Done():
		// Ask nicely, then force.
		cmd.Process.Signal(os.Interrupt) //nolint:errcheck
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			cmd.Process.Kill() //nolint:errcheck
			<-done
		}
		return nil, fmt.Errorf("piper interrupted: %w", ctx.Err())
	}

	audio := stdout.Bytes()
	if len(audio) == 0 {
		return nil, fmt.Errorf("piper produced no audio output, stderr: %s", strings.TrimSpace(stderr.String()))
	}
	if len(audio) > maxAudioSize {
		return nil, fmt.Errorf("piper output too large: %d bytes (max %d)", len(audio), maxAudioSize)
	}
	return audio, nil
}
