package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vishlabs/readaloud/internal/audio"
	"github.com/vishlabs/readaloud/tts"
	"golang.org/x/text/language"
)

func TestMarkdownToText(t *testing.T) {
	src := []byte("# Title\n\nSome *emphasis* and `code`.\nSecond line.\n\n```go\nfmt.Println(\"skip\")\n```\n\n- one\n- two\n")

	got := tts.SplitParagraphs(markdownToText(src))
	want := []string{"Title", "Some emphasis and code. Second line.", "one", "two"}

	if len(got) != len(want) {
		t.Fatalf("paragraphs = %q, want %q", got, want)
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			t.Errorf("paragraph %d = %q, want %q", i, got[i], want[i])
		}
	}
	if strings.Contains(markdownToText(src), "Println") {
		t.Error("code blocks should be dropped")
	}
}

func TestIsMarkdownFile(t *testing.T) {
	tests := map[string]bool{
		"README.md":      true,
		"notes.MARKDOWN": true,
		"story.txt":      false,
		"noext":          false,
	}
	for path, want := range tests {
		if got := isMarkdownFile(path); got != want {
			t.Errorf("isMarkdownFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(mdPath, []byte("## Hello\n\n**world**\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("  plain **text**  \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		file     string
		args     []string
		stdin    string
		terminal bool
		want     string
		wantErr  bool
	}{
		{name: "arguments", args: []string{"Hello,", "world"}, terminal: true, want: "Hello, world"},
		{name: "piped stdin", stdin: "  from a pipe\n", want: "from a pipe"},
		{name: "markdown file", file: mdPath, terminal: true, want: "Hello\nworld"},
		{name: "plain file", file: txtPath, terminal: true, want: "plain **text**"},
		{name: "file wins over args", file: txtPath, args: []string{"ignored"}, terminal: true, want: "plain **text**"},
		{name: "nothing on a terminal", terminal: true, wantErr: true},
		{name: "blank input", stdin: " \n ", wantErr: true},
		{name: "missing file", file: filepath.Join(dir, "nope.txt"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputFile, fromClipboard = tt.file, false
			defer func() { inputFile = "" }()

			got, err := readInput(tt.args, strings.NewReader(tt.stdin), tt.terminal)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("readInput() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("readInput() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("readInput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadInputEmptyIsErrEmptyText(t *testing.T) {
	inputFile, fromClipboard = "", false
	if _, err := readInput(nil, strings.NewReader("\n"), false); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("readInput() error = %v, want ErrEmptyText", err)
	}
}

func TestDefaultSaveName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := defaultSaveName(now); got != "tts_1700000000123" {
		t.Errorf("defaultSaveName() = %q", got)
	}
}

func TestFilterVoices(t *testing.T) {
	voices := []tts.Voice{
		{Name: "us", Locale: language.AmericanEnglish},
		{Name: "gb", Locale: language.BritishEnglish},
		{Name: "de", Locale: language.MustParse("de-DE")},
	}

	got := filterVoices(voices, language.BritishEnglish)
	if len(got) != 2 || got[0].Name != "us" || got[1].Name != "gb" {
		t.Errorf("filterVoices(en-GB) = %v", got)
	}
	if got := filterVoices(voices, language.Japanese); len(got) != 0 {
		t.Errorf("filterVoices(ja) = %v", got)
	}
}

func TestQualityName(t *testing.T) {
	tests := map[int]string{
		tts.QualityVeryHigh: "very high",
		tts.QualityHigh:     "high",
		350:                 "normal",
		tts.QualityLow:      "low",
		0:                   "very low",
	}
	for q, want := range tests {
		if got := qualityName(q); got != want {
			t.Errorf("qualityName(%d) = %q, want %q", q, got, want)
		}
	}
}

func mockConfig(t *testing.T, delay time.Duration) tts.Config {
	t.Helper()
	cfg := tts.DefaultConfig()
	cfg.Engine = "mock"
	cfg.OutputDir = t.TempDir()
	cfg.Mock.CompletionDelay = delay
	return cfg
}

func TestSessionSavesFile(t *testing.T) {
	cfg := mockConfig(t, 5*time.Millisecond)
	s, err := newSession(cfg)
	if err != nil {
		t.Fatal(err)
	}

	saved := false
	err = s.run(context.Background(), 5*time.Second, func(finish func()) {
		s.speaker.SaveToFile("Hello, world", "clip", func() {
			saved = true
			finish()
		})
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !saved {
		t.Fatal("save callback never ran")
	}

	path := filepath.Join(cfg.OutputDir, "clip.wav")
	if _, rate, err := audio.ReadWAV(path); err != nil || rate <= 0 {
		t.Errorf("ReadWAV(%s) = rate %d, err %v", path, rate, err)
	}
	if s.speaker.State() != tts.StateShutDown {
		t.Errorf("speaker state after run = %v, want shutdown", s.speaker.State())
	}
}

func TestSessionSpeaksParagraphs(t *testing.T) {
	cfg := mockConfig(t, time.Millisecond)
	cfg.Language = "english uk"
	cfg.Category = "robot"

	s, err := newSession(cfg)
	if err != nil {
		t.Fatal(err)
	}

	var started []int
	finished := false
	err = s.run(context.Background(), 5*time.Second, func(finish func()) {
		s.speaker.SpeakParagraphs([]string{"One.", "Two."},
			func(i int) { started = append(started, i) },
			func() {
				finished = true
				finish()
			})
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !finished || len(started) != 2 {
		t.Errorf("finished = %v, started = %v", finished, started)
	}
}

func TestSessionTimeout(t *testing.T) {
	s, err := newSession(mockConfig(t, time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	err = s.run(context.Background(), 50*time.Millisecond, func(func()) {
		s.speaker.Speak("never finishes")
	})
	if !errors.Is(err, errTimeout) {
		t.Errorf("run() error = %v, want errTimeout", err)
	}
}

func TestNewEngineRejectsUnknown(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Engine = "festival"
	if _, err := newEngine(cfg); !errors.Is(err, tts.ErrInvalidConfig) {
		t.Errorf("newEngine() error = %v, want ErrInvalidConfig", err)
	}
}

func TestCacheDir(t *testing.T) {
	dir, err := cacheDir(tts.CacheConfig{Dir: "/var/cache/readaloud"})
	if err != nil || dir != "/var/cache/readaloud" {
		t.Errorf("cacheDir() = %q, %v", dir, err)
	}

	dir, err = cacheDir(tts.CacheConfig{})
	if err != nil {
		t.Skipf("no user cache directory: %v", err)
	}
	if filepath.Base(dir) != "audio" {
		t.Errorf("default cache dir = %q", dir)
	}
}
