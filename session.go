package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/vishlabs/readaloud/internal/cache"
	"github.com/vishlabs/readaloud/tts"
	"github.com/vishlabs/readaloud/tts/engines/mock"
	"github.com/vishlabs/readaloud/tts/engines/piper"
)

// errTimeout is returned when the engine did not finish in time.
var errTimeout = errors.New("timed out waiting for the speech engine")

// session owns one Speaker and the callback loop it reports to. The loop
// runs on the goroutine that calls run, which acts as the UI goroutine.
type session struct {
	cfg     tts.Config
	loop    *tts.Loop
	speaker *tts.Speaker
}

func newSession(cfg tts.Config) (*session, error) {
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}

	loop := tts.NewLoop(32)
	speaker := tts.NewSpeaker(engine,
		tts.WithDispatcher(loop),
		tts.WithOutputDir(cfg.ResolvedOutputDir()),
		tts.WithLogger(log.Default().WithPrefix("tts")),
	)
	return &session{cfg: cfg, loop: loop, speaker: speaker}, nil
}

// run starts the engine and, once it is ready, calls start on the loop.
// Callbacks run on the calling goroutine until start's finish func is
// called, ctx is done, or timeout elapses. The engine is released before run
// returns. A zero timeout waits forever.
func (s *session) run(ctx context.Context, timeout time.Duration, start func(finish func())) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.speaker.Shutdown()

	if timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, timeout)
		defer stop()
	}

	errc := make(chan error, 1)
	s.speaker.Initialize()
	go func() {
		waitCtx := ctx
		if s.cfg.InitTimeout > 0 {
			var stop context.CancelFunc
			waitCtx, stop = context.WithTimeout(ctx, s.cfg.InitTimeout)
			defer stop()
		}
		if err := s.speaker.WaitReady(waitCtx); err != nil {
			errc <- fmt.Errorf("speech engine did not start: %w", err)
			cancel()
			return
		}
		s.loop.Post(func() {
			s.configure()
			start(cancel)
		})
	}()

	err := s.loop.Run(ctx)

	select {
	case initErr := <-errc:
		return initErr
	default:
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errTimeout
	}
	return nil
}

// configure applies the language, voice and category settings. Failures are
// logged by the Speaker and leave the defaults in place.
func (s *session) configure() {
	if s.cfg.Language != "" {
		tag, err := tts.LookupLanguage(s.cfg.Language)
		if err != nil {
			log.Warn("Ignoring language", "language", s.cfg.Language, "error", err)
		} else if tag != tts.DefaultLocale {
			s.speaker.SetLanguage(tag)
			s.speaker.SelectBestVoice(tag)
		}
	}
	if s.cfg.Voice != "" {
		s.speaker.SetVoice(s.cfg.Voice)
	}
	if s.cfg.Category != "" {
		if c, err := tts.ParseVoiceCategory(s.cfg.Category); err == nil {
			s.speaker.SetVoiceCategory(c)
		}
	}
}

func newEngine(cfg tts.Config) (tts.Engine, error) {
	switch cfg.Engine {
	case "mock":
		tts.LogEngineSelection("mock", "configured")
		return mock.New(
			mock.WithAsyncInit(),
			mock.WithAutoComplete(cfg.Mock.CompletionDelay),
			mock.WithFileOutput(),
		), nil

	case "piper":
		modelDir, err := homedir.Expand(cfg.Piper.ModelDir)
		if err != nil {
			return nil, fmt.Errorf("unable to expand model directory: %w", err)
		}

		opts := []piper.Option{piper.WithLogger(log.Default().WithPrefix("piper"))}
		if cfg.Cache.Enabled {
			c, err := openCache(cfg.Cache)
			if err != nil {
				log.Warn("Audio cache unavailable", "error", err)
			} else {
				opts = append(opts, piper.WithCache(c))
			}
		}

		tts.LogEngineSelection("piper", "configured")
		return piper.New(piper.Config{
			Binary:   cfg.Piper.Binary,
			ModelDir: modelDir,
			Timeout:  cfg.Piper.Timeout,
		}, opts...), nil
	}

	return nil, fmt.Errorf("%w: unknown engine %q", tts.ErrInvalidConfig, cfg.Engine)
}

func openCache(cfg tts.CacheConfig) (*cache.DiskCache, error) {
	dir, err := cacheDir(cfg)
	if err != nil {
		return nil, err
	}
	c, err := cache.NewDiskCache(dir, cfg.MaxSizeMB*1024*1024, cfg.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("unable to open audio cache: %w", err)
	}
	return c, nil
}

func cacheDir(cfg tts.CacheConfig) (string, error) {
	if cfg.Dir != "" {
		dir, err := homedir.Expand(cfg.Dir)
		if err != nil {
			return "", fmt.Errorf("unable to expand cache directory: %w", err)
		}
		return dir, nil
	}

	dir, err := gap.NewScope(gap.User, "readaloud").CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "audio"), nil
}
