// Package piper implements a speech engine on top of the Piper command line
// synthesizer. Each utterance runs a fresh Piper process; the resulting PCM
// is played through the audio device or written to a WAV file.
package piper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vishlabs/readaloud/internal/audio"
	"github.com/vishlabs/readaloud/internal/cache"
	"github.com/vishlabs/readaloud/tts"
	"golang.org/x/text/language"
)

// Player plays PCM and blocks until it finishes or ctx is done.
type Player interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
	Stop() error
	Close() error
}

// Config holds the engine settings.
type Config struct {
	// Binary is the Piper command, optionally with leading arguments.
	Binary   string
	ModelDir string
	// Timeout bounds a single synthesis.
	Timeout time.Duration
}

// Engine implements tts.Engine with Piper.
type Engine struct {
	config Config
	logger *log.Logger
	synth  Synthesizer
	player Player
	cache  *cache.DiskCache

	// ctx lives until Shutdown and parents every job.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	wake   chan struct{}

	mu        sync.Mutex
	ready     bool
	closed    bool
	listener  tts.ProgressListener
	models    []Model
	model     *Model
	pitch     float64
	rate      float64
	current   *job
	pending   []*job
	startOnce sync.Once
}

// job is one queued utterance or file render.
type job struct {
	id          string
	text        string
	destination string
	params      tts.SynthesisParams
	model       Model
	rate        float64

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithPlayer sets the playback device. The default is the system device.
func WithPlayer(p Player) Option {
	return func(e *Engine) {
		e.player = p
	}
}

// WithSynthesizer replaces the Piper process runner.
func WithSynthesizer(s Synthesizer) Option {
	return func(e *Engine) {
		e.synth = s
	}
}

// WithCache caches synthesized PCM. The engine closes the cache on Shutdown.
func WithCache(c *cache.DiskCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates a Piper engine. Call Init before use.
func New(config Config, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		config: config,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		pitch:  1.0,
		rate:   1.0,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Default().WithPrefix("piper")
	}
	if e.player == nil {
		e.player = audio.NewPlayer()
	}
	return e
}

// Init locates Piper and its models in the background.
func (e *Engine) Init(done func(tts.InitStatus)) {
	go func() {
		if err := e.init(); err != nil {
			e.logger.Error("Piper unavailable", "error", err)
			done(tts.InitError)
			return
		}
		done(tts.InitSuccess)
	}()
}

func (e *Engine) init() error {
	if e.synth == nil {
		s, err := newCommandSynth(e.config.Binary, e.config.Timeout, e.logger)
		if err != nil {
			return err
		}
		e.synth = s
	}

	models, err := DiscoverModels(e.config.ModelDir)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return fmt.Errorf("no voice models in %s", e.config.ModelDir)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return tts.ErrEngineShutdown
	}
	e.models = models
	e.model = &e.models[0]
	if _, m := languageStatus(e.models, tts.DefaultLocale); m != nil {
		e.model = m
	}
	e.ready = true

	e.startOnce.Do(func() {
		e.wg.Add(1)
		go e.worker()
	})

	e.logger.Debug("Piper ready", "models", len(models), "voice", e.model.Voice.Name)
	return nil
}

// SetLanguage selects the best installed model for locale.
func (e *Engine) SetLanguage(locale language.Tag) tts.LanguageStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, m := languageStatus(e.models, locale)
	if m != nil {
		e.model = m
	}
	return status
}

// Voices lists the installed models as voices.
func (e *Engine) Voices() []tts.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()

	voices := make([]tts.Voice, len(e.models))
	for i, m := range e.models {
		voices[i] = m.Voice
	}
	return voices
}

// SetVoice selects the model named like voice.
func (e *Engine) SetVoice(voice tts.Voice) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := findModel(e.models, voice.Name)
	if !ok {
		return fmt.Errorf("%w: %s", tts.ErrVoiceNotFound, voice.Name)
	}
	e.model = m
	return nil
}

// SetPitch records the pitch. Piper has no pitch control, so it does not
// change the output.
func (e *Engine) SetPitch(pitch float64) error {
	if pitch <= 0 {
		return fmt.Errorf("pitch must be positive, got %v", pitch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pitch = pitch
	return nil
}

// SetSpeechRate sets the rate for later utterances.
func (e *Engine) SetSpeechRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("speech rate must be positive, got %v", rate)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	return nil
}

// SetProgressListener replaces the event listener.
func (e *Engine) SetProgressListener(listener tts.ProgressListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = listener
}

// Speak queues text for playback.
func (e *Engine) Speak(text string, mode tts.QueueMode, requestID string) error {
	return e.enqueue(&job{id: requestID, text: text}, mode)
}

// SynthesizeToFile queues text for rendering to a WAV file at destination.
func (e *Engine) SynthesizeToFile(text string, params tts.SynthesisParams, destination string, requestID string) error {
	return e.enqueue(&job{id: requestID, text: text, destination: destination, params: params}, tts.QueueAdd)
}

func (e *Engine) enqueue(j *job, mode tts.QueueMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return tts.ErrEngineShutdown
	}
	if !e.ready {
		return tts.ErrEngineNotReady
	}

	if mode == tts.QueueFlush {
		e.cancelAllLocked()
	}

	j.model = *e.model
	j.rate = e.rate
	j.ctx, j.cancel = context.WithCancel(e.ctx)
	e.pending = append(e.pending, j)

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

func (e *Engine) cancelAllLocked() {
	if e.current != nil {
		e.current.cancel()
	}
	for _, j := range e.pending {
		j.cancel()
	}
	e.pending = nil
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.wake:
		}
		for {
			j := e.next()
			if j == nil {
				break
			}
			e.run(j)
		}
	}
}

// next pops the next live job and marks it current.
func (e *Engine) next() *job {
	e.mu.Lock()
	defer e.mu.Unlock()

	for len(e.pending) > 0 {
		j := e.pending[0]
		e.pending = e.pending[1:]
		if j.ctx.Err() == nil {
			e.current = j
			return j
		}
	}
	return nil
}

func (e *Engine) run(j *job) {
	defer j.cancel()

	e.emit(func(l tts.ProgressListener) { l.OnStart(j.id) })
	err := e.execute(j)

	e.mu.Lock()
	if e.current == j {
		e.current = nil
	}
	e.mu.Unlock()

	// Flushed or stopped jobs end silently.
	if j.ctx.Err() != nil {
		e.logger.Debug("Utterance cancelled", "request", j.id)
		return
	}
	if err != nil {
		e.emit(func(l tts.ProgressListener) { l.OnError(j.id, err) })
		return
	}
	e.emit(func(l tts.ProgressListener) { l.OnDone(j.id) })
}

func (e *Engine) emit(fn func(tts.ProgressListener)) {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	if l != nil {
		fn(l)
	}
}

func (e *Engine) execute(j *job) error {
	pcm, err := e.synthesize(j)
	if err != nil {
		return tts.NewTTSError(err, "piper", "synthesize").
			WithContext("voice", j.model.Voice.Name)
	}

	if j.destination != "" {
		if j.params.Volume > 0 {
			pcm = audio.Gain(pcm, j.params.Volume)
		}
		if err := audio.WriteWAV(j.destination, pcm, j.model.SampleRate); err != nil {
			return tts.NewTTSError(fmt.Errorf("%w: %w", tts.ErrGenerationFailed, err), "piper", "write").
				WithSeverity(tts.SeverityCritical).
				WithContext("path", j.destination)
		}
		return nil
	}

	if err := e.player.Play(j.ctx, pcm, j.model.SampleRate); err != nil {
		return tts.NewTTSError(err, "piper", "play").WithSeverity(tts.SeverityWarning)
	}
	return nil
}

func (e *Engine) synthesize(j *job) ([]byte, error) {
	key := cache.Key(j.text, j.model.Voice.Name, j.rate)
	if e.cache != nil {
		if pcm, ok := e.cache.Get(key); ok {
			m := tts.StartSynthesis("piper", j.text)
			m.EndSynthesis(len(pcm), true, nil)
			return pcm, nil
		}
	}

	m := tts.StartSynthesis("piper", j.text)
	pcm, err := e.synth.Synthesize(j.ctx, j.text, j.model, j.rate)
	m.EndSynthesis(len(pcm), false, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrGenerationFailed, err)
	}

	if e.cache != nil {
		if err := e.cache.Put(key, pcm); err != nil && !errors.Is(err, cache.ErrItemTooLarge) {
			e.logger.Warn("Failed to cache audio", "error", err)
		}
	}
	return pcm, nil
}

// Stop cancels the current job and drops queued ones.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.cancelAllLocked()
	e.mu.Unlock()
	return e.player.Stop()
}

// Shutdown stops the worker and releases the player and cache. Calls after
// the first return tts.ErrEngineShutdown.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return tts.ErrEngineShutdown
	}
	e.closed = true
	e.ready = false
	e.cancelAllLocked()
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()

	var errs []error
	if err := e.player.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close player: %w", err))
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Pitch returns the recorded pitch.
func (e *Engine) Pitch() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pitch
}

// CurrentVoice returns the voice of the selected model.
func (e *Engine) CurrentVoice() (tts.Voice, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return tts.Voice{}, false
	}
	return e.model.Voice, true
}

var _ tts.Engine = (*Engine)(nil)
