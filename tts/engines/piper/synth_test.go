package piper

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestCommandSynthArgs(t *testing.T) {
	s := &commandSynth{argv: []string{"/usr/bin/python3", "-m", "piper"}}
	model := Model{Path: "/models/en_US-amy-high.onnx", ConfigPath: "/models/en_US-amy-high.onnx.json"}

	tests := []struct {
		name string
		rate float64
		want []string
	}{
		{
			name: "normal rate",
			rate: 1.0,
			want: []string{"-m", "piper", "--model", model.Path, "--config", model.ConfigPath, "--output-raw"},
		},
		{
			name: "slower speech stretches time",
			rate: 0.95,
			want: []string{"-m", "piper", "--model", model.Path, "--config", model.ConfigPath, "--output-raw", "--length_scale", "1.053"},
		},
		{
			name: "double speed halves length",
			rate: 2.0,
			want: []string{"-m", "piper", "--model", model.Path, "--config", model.ConfigPath, "--output-raw", "--length_scale", "0.500"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.args(model, tt.rate); !slices.Equal(got, tt.want) {
				t.Errorf("args() = %v, want %v", got, tt.want)
			}
		})
	}

	// Leading arguments must not be mutated between calls.
	s.args(model, 1.0)
	if !slices.Equal(s.argv, []string{"/usr/bin/python3", "-m", "piper"}) {
		t.Errorf("argv mutated: %v", s.argv)
	}
}

func TestNewCommandSynth(t *testing.T) {
	if _, err := newCommandSynth("", time.Second, log.Default()); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := newCommandSynth("definitely-not-a-piper-binary-xyz", time.Second, log.Default()); err == nil {
		t.Error("expected error for missing binary")
	}
	if _, err := newCommandSynth(`sh -c "unterminated`, time.Second, log.Default()); err == nil {
		t.Error("expected error for unbalanced quotes")
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandSynthRunsProcess(t *testing.T) {
	requireShell(t)

	s, err := newCommandSynth(`sh -c 'cat >/dev/null; head -c 64 /dev/zero'`, 5*time.Second, log.Default())
	if err != nil {
		t.Fatalf("newCommandSynth failed: %v", err)
	}

	pcm, err := s.Synthesize(context.Background(), "hello", Model{Path: "model.onnx"}, 1.0)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(pcm) != 64 {
		t.Errorf("got %d bytes, want 64", len(pcm))
	}
}

func TestCommandSynthNoOutput(t *testing.T) {
	requireShell(t)

	s, err := newCommandSynth(`sh -c 'cat >/dev/null'`, 5*time.Second, log.Default())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Synthesize(context.Background(), "hello", Model{Path: "model.onnx"}, 1.0); err == nil {
		t.Error("expected error when piper writes nothing")
	}
}

func TestCommandSynthTimeout(t *testing.T) {
	requireShell(t)

	s, err := newCommandSynth(`sh -c 'exec sleep 5'`, 200*time.Millisecond, log.Default())
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err = s.Synthesize(context.Background(), "hello", Model{Path: "model.onnx"}, 1.0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Synthesize() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestCommandSynthCancel(t *testing.T) {
	requireShell(t)

	s, err := newCommandSynth(`sh -c 'exec sleep 5'`, 0, log.Default())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err = s.Synthesize(ctx, "hello", Model{Path: "model.onnx"}, 1.0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Synthesize() error = %v, want canceled", err)
	}
}
