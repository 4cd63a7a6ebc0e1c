package tts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// Request IDs the Speaker tags utterances with.
const (
	SpeakRequestID    = "speak_realistic"
	CallbackRequestID = "speak_callback"
	SaveRequestID     = "save_tts"

	paragraphPrefix = "paragraph_"
)

// Speaker mediates between a host's text input and a speech Engine. It owns
// the engine for its whole lifetime: Initialize acquires it, Shutdown
// releases it, and there is no way back.
//
// Speech operations never return errors. Before the engine is ready, and
// after Shutdown, they do nothing.
type Speaker struct {
	engine     Engine
	dispatcher Dispatcher
	logger     *log.Logger
	outputDir  string
	onReady    func()

	state    *StateMachine
	ready    atomic.Bool
	closed   atomic.Bool
	initOnce sync.Once
	settle   sync.Once
	settled  chan struct{}

	// own is the loop created when no dispatcher was supplied.
	own       *Loop
	ownCancel context.CancelFunc

	mu          sync.Mutex
	savePending bool
	onSaved     func()
	onSpoken    func()
	run         *paragraphRun
	runSeq      int
}

// paragraphRun tracks one SpeakParagraphs call.
type paragraphRun struct {
	seq        int
	count      int
	onIndex    func(int)
	onFinished func()
}

// Option configures a Speaker.
type Option func(*Speaker)

// WithDispatcher delivers callbacks through d instead of an internal loop.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Speaker) {
		s.dispatcher = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Speaker) {
		s.logger = l
	}
}

// WithOutputDir sets the directory SaveToFile writes into.
func WithOutputDir(dir string) Option {
	return func(s *Speaker) {
		s.outputDir = dir
	}
}

// WithOnReady registers a callback posted once the engine becomes ready.
func WithOnReady(fn func()) Option {
	return func(s *Speaker) {
		s.onReady = fn
	}
}

// NewSpeaker creates a Speaker for engine. Call Initialize to start it.
func NewSpeaker(engine Engine, opts ...Option) *Speaker {
	s := &Speaker{
		engine:  engine,
		state:   NewStateMachine(),
		settled: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = log.Default().WithPrefix("tts")
	}
	if s.outputDir == "" {
		s.outputDir = DefaultOutputDir()
	}
	for _, st := range []StateType{StateReady, StateSpeaking, StateSavingToFile, StateShutDown} {
		s.state.OnEnter(st, func() { s.logger.Debug("State changed", "state", st) })
	}
	if s.dispatcher == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.own = NewLoop(16)
		s.ownCancel = cancel
		s.dispatcher = s.own
		go s.own.Run(ctx) //nolint:errcheck
	}

	return s
}

// Initialize acquires the engine asynchronously. On success the default
// locale, best voice and natural prosody are applied and the Speaker becomes
// ready. On failure it stays not ready for good; there is no retry.
func (s *Speaker) Initialize() {
	s.initOnce.Do(func() {
		s.logger.Debug("Initializing speech engine")
		s.engine.Init(s.handleInit)
	})
}

func (s *Speaker) handleInit(status InitStatus) {
	defer s.markSettled()

	if s.closed.Load() {
		return
	}
	if status != InitSuccess {
		s.logger.Warn("Speech engine failed to initialize", "status", status)
		return
	}

	s.engine.SetProgressListener(progressRouter{s})
	s.setLanguage(DefaultLocale)
	s.selectBestVoice(DefaultLocale)
	s.applyProsody(Prosody{Pitch: DefaultPitch, Rate: DefaultSpeechRate})

	// Shutdown may have run during setup; it clears ready under mu.
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		s.logger.Debug("Speaker shut down during initialization")
		return
	}
	s.ready.Store(true)
	s.mu.Unlock()

	s.state.Transition(StateReady)
	s.logger.Debug("Speech engine ready")

	if s.onReady != nil {
		s.dispatcher.Post(s.onReady)
	}
}

func (s *Speaker) markSettled() {
	s.settle.Do(func() { close(s.settled) })
}

// IsReady reports whether the engine finished initializing successfully and
// has not been shut down.
func (s *Speaker) IsReady() bool {
	return s.ready.Load()
}

// WaitReady blocks until initialization settles or ctx is done. It returns
// ErrEngineNotReady if the engine failed to initialize.
func (s *Speaker) WaitReady(ctx context.Context) error {
	select {
	case <-s.settled:
	case <-ctx.Done():
		return fmt.Errorf("waiting for speech engine: %w", ctx.Err())
	}
	if s.closed.Load() {
		return ErrEngineShutdown
	}
	if !s.ready.Load() {
		return ErrEngineNotReady
	}
	return nil
}

// State returns the current lifecycle state.
func (s *Speaker) State() StateType {
	return s.state.Current()
}

// OutputPath returns where SaveToFile writes fileName.
func (s *Speaker) OutputPath(fileName string) string {
	return filepath.Join(s.outputDir, fileName+".wav")
}

// Voices returns the engine's voices, or nil before the engine is ready.
func (s *Speaker) Voices() []Voice {
	if !s.ready.Load() {
		return nil
	}
	return s.engine.Voices()
}

// SetLanguage switches the engine to locale. Unsupported locales, or those
// whose data is missing, switch the engine to DefaultLocale instead.
func (s *Speaker) SetLanguage(locale language.Tag) {
	if !s.ready.Load() {
		s.logger.Debug("Ignoring language change, engine not ready", "locale", locale)
		return
	}
	s.setLanguage(locale)
}

func (s *Speaker) setLanguage(locale language.Tag) {
	status := s.engine.SetLanguage(locale)
	if status.Usable() {
		s.logger.Debug("Language set", "locale", locale, "status", status)
		return
	}

	s.logger.Warn("Language unavailable, using default",
		"locale", locale,
		"status", status,
		"default", DefaultLocale)
	s.engine.SetLanguage(DefaultLocale)
}

// SelectBestVoice picks the first offline voice for locale with at least
// QualityHigh. When none qualifies the current voice is left as it is.
func (s *Speaker) SelectBestVoice(locale language.Tag) {
	if !s.ready.Load() {
		return
	}
	s.selectBestVoice(locale)
}

func (s *Speaker) selectBestVoice(locale language.Tag) {
	voice, ok := BestVoice(s.engine.Voices(), locale)
	if !ok {
		s.logger.Debug("No high quality offline voice, keeping current voice", "locale", locale)
		return
	}
	if err := s.engine.SetVoice(voice); err != nil {
		s.logger.Warn("Could not set voice", "voice", voice.Name, "error", err)
		return
	}
	s.logger.Debug("Voice selected", "voice", voice.Name, "quality", voice.Quality)
}

// SetVoice activates the engine voice called name. Unknown names are
// ignored.
func (s *Speaker) SetVoice(name string) {
	if !s.ready.Load() {
		return
	}
	voice, ok := FindVoice(s.engine.Voices(), name)
	if !ok {
		s.logger.Warn("Voice not found", "voice", name)
		return
	}
	if err := s.engine.SetVoice(voice); err != nil {
		s.logger.Warn("Could not set voice", "voice", name, "error", err)
	}
}

// SetVoiceCategory applies the pitch and rate preset of category.
func (s *Speaker) SetVoiceCategory(category VoiceCategory) {
	if !s.ready.Load() {
		return
	}
	p, ok := category.Prosody()
	if !ok {
		s.logger.Warn("Unknown voice category", "category", category)
		return
	}
	s.applyProsody(p)
}

func (s *Speaker) applyProsody(p Prosody) {
	if err := s.engine.SetPitch(p.Pitch); err != nil {
		s.logger.Warn("Could not set pitch", "pitch", p.Pitch, "error", err)
	}
	if err := s.engine.SetSpeechRate(p.Rate); err != nil {
		s.logger.Warn("Could not set speech rate", "rate", p.Rate, "error", err)
	}
}

// Speak normalizes text and plays it, discarding whatever was playing.
func (s *Speaker) Speak(text string) {
	if !s.ready.Load() {
		return
	}
	s.submit(NormalizeText(text), QueueFlush, SpeakRequestID)
}

// SpeakWithCallback is Speak with onDone posted once playback completes.
// Stop or a later flush drops the notification.
func (s *Speaker) SpeakWithCallback(text string, onDone func()) {
	if !s.ready.Load() {
		return
	}
	s.mu.Lock()
	s.onSpoken = onDone
	s.mu.Unlock()
	s.submit(NormalizeText(text), QueueFlush, CallbackRequestID)
}

// SpeakParagraphs plays paragraphs in order, flushing anything already
// playing. onIndex is posted as each paragraph starts and onFinished after
// the last one completes or fails; a failed paragraph is skipped. Either
// callback may be nil.
func (s *Speaker) SpeakParagraphs(paragraphs []string, onIndex func(int), onFinished func()) {
	if !s.ready.Load() || len(paragraphs) == 0 {
		return
	}

	s.mu.Lock()
	s.runSeq++
	run := &paragraphRun{
		seq:        s.runSeq,
		count:      len(paragraphs),
		onIndex:    onIndex,
		onFinished: onFinished,
	}
	s.run = run
	s.mu.Unlock()

	for i, p := range paragraphs {
		mode := QueueAdd
		if i == 0 {
			mode = QueueFlush
		}
		s.submit(NormalizeText(p), mode, paragraphID(run.seq, i))
	}
}

func (s *Speaker) submit(text string, mode QueueMode, requestID string) {
	if err := s.engine.Speak(text, mode, requestID); err != nil {
		s.logger.Warn("Speak request failed", "request", requestID, "error", err)
	}
}

// Stop cancels the current utterance. Safe to call at any time.
func (s *Speaker) Stop() {
	if s.closed.Load() {
		return
	}
	if err := s.engine.Stop(); err != nil {
		s.logger.Debug("Engine stop failed", "error", err)
	}

	s.mu.Lock()
	s.onSpoken = nil
	s.run = nil
	s.savePending = false
	s.onSaved = nil
	s.mu.Unlock()

	if s.state.Current().IsBusy() {
		s.state.Transition(StateReady)
	}
}

// SaveToFile renders text to <output dir>/<fileName>.wav and posts onDone
// when the engine reports completion. Only one save is tracked: a second call
// before the first finishes replaces its listener, and the first caller is
// never notified. Failures are logged, not reported.
func (s *Speaker) SaveToFile(text, fileName string, onDone func()) {
	if !s.ready.Load() {
		return
	}

	path := s.OutputPath(fileName)

	s.mu.Lock()
	if s.savePending {
		s.logger.Warn("Replacing pending save listener, earlier caller will not be notified", "file", path)
	}
	s.savePending = true
	s.onSaved = onDone
	s.mu.Unlock()

	params := SynthesisParams{RequestID: SaveRequestID}
	if err := s.engine.SynthesizeToFile(text, params, path, SaveRequestID); err != nil {
		s.logger.Warn("Save request failed", "file", path, "error", err)
		s.mu.Lock()
		s.savePending = false
		s.onSaved = nil
		s.mu.Unlock()
	}
}

// Shutdown stops speech and releases the engine. The Speaker is unusable
// afterward.
func (s *Speaker) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.ready.Store(false)
	s.onSpoken = nil
	s.run = nil
	s.savePending = false
	s.onSaved = nil
	s.mu.Unlock()
	s.markSettled()

	if err := s.engine.Stop(); err != nil {
		s.logger.Debug("Engine stop failed", "error", err)
	}
	if err := s.engine.Shutdown(); err != nil {
		s.logger.Warn("Engine shutdown failed", "error", err)
	}
	s.state.Transition(StateShutDown)

	if s.ownCancel != nil {
		s.ownCancel()
	}
	s.logger.Debug("Speech engine released")
}

// progressRouter turns engine events into state changes and caller
// callbacks.
type progressRouter struct {
	s *Speaker
}

func (r progressRouter) OnStart(requestID string) {
	s := r.s
	if requestID == SaveRequestID {
		s.state.Transition(StateSavingToFile)
		return
	}
	s.state.Transition(StateSpeaking)

	seq, index, ok := parseParagraphID(requestID)
	if !ok {
		return
	}
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run != nil && run.seq == seq && run.onIndex != nil {
		onIndex := run.onIndex
		s.dispatcher.Post(func() { onIndex(index) })
	}
}

func (r progressRouter) OnDone(requestID string) {
	r.s.finish(requestID, nil)
}

func (r progressRouter) OnError(requestID string, err error) {
	r.s.logFailure(requestID, err)
	r.s.finish(requestID, err)
}

func (s *Speaker) logFailure(requestID string, err error) {
	var ttsErr *TTSError
	if !errors.As(err, &ttsErr) {
		s.logger.Warn("Utterance failed", "request", requestID, "error", err)
		return
	}

	kv := []interface{}{
		"request", requestID,
		"component", ttsErr.Component,
		"action", ttsErr.Action,
		"severity", ttsErr.Severity,
		"recoverable", ttsErr.IsRecoverable(),
	}
	for k, v := range ttsErr.Context {
		kv = append(kv, k, v)
	}
	kv = append(kv, "error", ttsErr.Err)

	if ttsErr.Severity >= SeverityCritical {
		s.logger.Error("Utterance failed", kv...)
		return
	}
	s.logger.Warn("Utterance failed", kv...)
}

func (s *Speaker) finish(requestID string, err error) {
	if s.state.Current().IsBusy() {
		s.state.Transition(StateReady)
	}

	var callback func()
	s.mu.Lock()
	switch {
	case requestID == SaveRequestID:
		// One-shot: the listener is consumed by the first completion.
		if s.savePending && err == nil {
			callback = s.onSaved
		}
		s.savePending = false
		s.onSaved = nil

	case requestID == CallbackRequestID:
		callback = s.onSpoken
		s.onSpoken = nil

	default:
		seq, index, ok := parseParagraphID(requestID)
		if !ok || s.run == nil || s.run.seq != seq {
			break
		}
		// Engines move on past a failed paragraph, so only the last one ends
		// the run.
		if index == s.run.count-1 {
			callback = s.run.onFinished
			s.run = nil
		}
	}
	s.mu.Unlock()

	if callback != nil {
		s.dispatcher.Post(callback)
	}
}

func paragraphID(seq, index int) string {
	return paragraphPrefix + strconv.Itoa(seq) + "_" + strconv.Itoa(index)
}

func parseParagraphID(id string) (seq, index int, ok bool) {
	rest, found := strings.CutPrefix(id, paragraphPrefix)
	if !found {
		return 0, 0, false
	}
	seqStr, indexStr, found := strings.Cut(rest, "_")
	if !found {
		return 0, 0, false
	}
	seq, err := strconv.Atoi(seqStr)
	if err != nil {
		return 0, 0, false
	}
	index, err = strconv.Atoi(indexStr)
	if err != nil {
		return 0, 0, false
	}
	return seq, index, true
}
