// Package mock provides an in-memory speech engine for tests and dry runs.
package mock

import (
	"fmt"
	"sync"
	"time"

	"github.com/vishlabs/readaloud/internal/audio"
	"github.com/vishlabs/readaloud/tts"
	"golang.org/x/text/language"
)

// Request is one utterance or file job submitted to the engine.
type Request struct {
	ID          string
	Text        string
	Mode        tts.QueueMode
	Destination string // empty for spoken requests
	Params      tts.SynthesisParams

	serial uint64
}

// IsFile reports whether the request renders to a file.
func (r Request) IsFile() bool {
	return r.Destination != ""
}

// MockEngine implements tts.Engine without producing audio. Requests stay
// active until Complete or Fail is called, unless auto-completion is on.
type MockEngine struct {
	mu sync.Mutex

	// Configuration
	voices       []tts.Voice
	languages    map[string]tts.LanguageStatus
	initStatus   tts.InitStatus
	asyncInit    bool
	initGate     <-chan struct{}
	autoComplete bool
	delay        time.Duration
	writeFiles   bool

	// Control for testing
	failure error

	// State
	listener tts.ProgressListener
	locale   language.Tag
	voice    tts.Voice
	pitch    float64
	rate     float64
	active   *Request
	pending  []Request
	history  []Request
	serial   uint64
	shutdown bool
	calls    map[string]int
}

// Option configures a MockEngine.
type Option func(*MockEngine)

// WithVoices replaces the default voice list.
func WithVoices(voices ...tts.Voice) Option {
	return func(e *MockEngine) {
		e.voices = voices
	}
}

// WithLanguages sets the status reported for each locale, keyed by BCP 47
// tag. Locales not listed are not supported.
func WithLanguages(languages map[string]tts.LanguageStatus) Option {
	return func(e *MockEngine) {
		e.languages = languages
	}
}

// WithInitStatus sets the status Init reports.
func WithInitStatus(status tts.InitStatus) Option {
	return func(e *MockEngine) {
		e.initStatus = status
	}
}

// WithAsyncInit makes Init report from a separate goroutine.
func WithAsyncInit() Option {
	return func(e *MockEngine) {
		e.asyncInit = true
	}
}

// WithInitGate holds the Init report until gate is closed.
func WithInitGate(gate <-chan struct{}) Option {
	return func(e *MockEngine) {
		e.initGate = gate
		e.asyncInit = true
	}
}

// WithAutoComplete completes each request delay after it becomes active.
func WithAutoComplete(delay time.Duration) Option {
	return func(e *MockEngine) {
		e.autoComplete = true
		e.delay = delay
	}
}

// WithFileOutput makes completed file jobs write a short silent WAV to their
// destination.
func WithFileOutput() Option {
	return func(e *MockEngine) {
		e.writeFiles = true
	}
}

// DefaultVoices is the voice list a MockEngine starts with. The network voice
// comes first and has the best score, so voice policy that ignores
// RequiresNetwork picks the wrong one.
func DefaultVoices() []tts.Voice {
	return []tts.Voice{
		{Name: "en-us-cloud", Locale: language.AmericanEnglish, Quality: tts.QualityVeryHigh, Latency: tts.LatencyHigh, RequiresNetwork: true},
		{Name: "en-us-compact", Locale: language.AmericanEnglish, Quality: tts.QualityLow, Latency: tts.LatencyVeryLow},
		{Name: "en-us-studio", Locale: language.AmericanEnglish, Quality: tts.QualityHigh, Latency: tts.LatencyNormal},
		{Name: "en-gb-studio", Locale: language.BritishEnglish, Quality: tts.QualityHigh, Latency: tts.LatencyNormal},
	}
}

// New creates a new mock engine.
func New(opts ...Option) *MockEngine {
	e := &MockEngine{
		voices: DefaultVoices(),
		languages: map[string]tts.LanguageStatus{
			"en-US": tts.LangCountryAvailable,
			"en-GB": tts.LangCountryAvailable,
		},
		initStatus: tts.InitSuccess,
		pitch:      1.0,
		rate:       1.0,
		calls:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *MockEngine) record(method string) {
	e.calls[method]++
}

// Init reports the configured status to done.
func (e *MockEngine) Init(done func(tts.InitStatus)) {
	e.mu.Lock()
	e.record("Init")
	status, async, gate := e.initStatus, e.asyncInit, e.initGate
	e.mu.Unlock()

	if !async {
		done(status)
		return
	}
	go func() {
		if gate != nil {
			<-gate
		}
		done(status)
	}()
}

// SetLanguage reports the configured status for locale and switches to it if
// usable.
func (e *MockEngine) SetLanguage(locale language.Tag) tts.LanguageStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("SetLanguage")

	status, ok := e.languages[locale.String()]
	if !ok {
		status = tts.LangNotSupported
	}
	if status.Usable() {
		e.locale = locale
	}
	return status
}

// Voices returns the configured voices.
func (e *MockEngine) Voices() []tts.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("Voices")

	out := make([]tts.Voice, len(e.voices))
	copy(out, e.voices)
	return out
}

// SetVoice activates voice if the engine offers it.
func (e *MockEngine) SetVoice(voice tts.Voice) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("SetVoice")

	if _, ok := tts.FindVoice(e.voices, voice.Name); !ok {
		return fmt.Errorf("%w: %s", tts.ErrVoiceNotFound, voice.Name)
	}
	e.voice = voice
	return nil
}

// SetPitch stores the pitch.
func (e *MockEngine) SetPitch(pitch float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("SetPitch")
	e.pitch = pitch
	return nil
}

// SetSpeechRate stores the rate.
func (e *MockEngine) SetSpeechRate(rate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("SetSpeechRate")
	e.rate = rate
	return nil
}

// SetProgressListener replaces the event listener.
func (e *MockEngine) SetProgressListener(listener tts.ProgressListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("SetProgressListener")
	e.listener = listener
}

// Speak submits a spoken request.
func (e *MockEngine) Speak(text string, mode tts.QueueMode, requestID string) error {
	return e.submit("Speak", Request{ID: requestID, Text: text, Mode: mode})
}

// SynthesizeToFile submits a file job. File jobs always queue.
func (e *MockEngine) SynthesizeToFile(text string, params tts.SynthesisParams, destination string, requestID string) error {
	return e.submit("SynthesizeToFile", Request{
		ID:          requestID,
		Text:        text,
		Mode:        tts.QueueAdd,
		Destination: destination,
		Params:      params,
	})
}

func (e *MockEngine) submit(method string, req Request) error {
	e.mu.Lock()
	e.record(method)

	if e.shutdown {
		e.mu.Unlock()
		return tts.ErrEngineShutdown
	}
	if e.failure != nil {
		err := e.failure
		e.mu.Unlock()
		return err
	}

	e.serial++
	req.serial = e.serial
	e.history = append(e.history, req)

	if req.Mode == tts.QueueFlush {
		e.active = nil
		e.pending = nil
	}
	if e.active != nil {
		e.pending = append(e.pending, req)
		e.mu.Unlock()
		return nil
	}

	started := e.activate(req)
	e.mu.Unlock()

	started()
	return nil
}

// activate makes req the active request. The returned func emits the start
// event and must be called without the lock held.
func (e *MockEngine) activate(req Request) func() {
	e.active = &req
	listener := e.listener
	if e.autoComplete {
		serial := req.serial
		time.AfterFunc(e.delay, func() {
			e.finish(func(r *Request) bool { return r.serial == serial }, nil)
		})
	}
	return func() {
		if listener != nil {
			listener.OnStart(req.ID)
		}
	}
}

// Complete finishes the active request if its ID is id. It reports whether
// a request was completed.
func (e *MockEngine) Complete(id string) bool {
	return e.finish(func(r *Request) bool { return r.ID == id }, nil)
}

// Fail fails the active request if its ID is id.
func (e *MockEngine) Fail(id string, err error) bool {
	if err == nil {
		err = tts.ErrGenerationFailed
	}
	return e.finish(func(r *Request) bool { return r.ID == id }, err)
}

func (e *MockEngine) finish(match func(*Request) bool, err error) bool {
	e.mu.Lock()
	if e.active == nil || !match(e.active) {
		e.mu.Unlock()
		return false
	}

	done := *e.active
	listener := e.listener
	writeFiles := e.writeFiles
	e.active = nil

	started := func() {}
	if len(e.pending) > 0 {
		next := e.pending[0]
		e.pending = e.pending[1:]
		started = e.activate(next)
	}
	e.mu.Unlock()

	if err == nil && writeFiles && done.IsFile() {
		err = writeSilence(done.Destination)
	}

	if listener != nil {
		if err != nil {
			listener.OnError(done.ID, err)
		} else {
			listener.OnDone(done.ID)
		}
	}
	started()
	return true
}

func writeSilence(path string) error {
	const rate = 22050
	pcm := make([]byte, rate/10*2)
	return audio.WriteWAV(path, pcm, rate)
}

// Stop drops the active and pending requests without events.
func (e *MockEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("Stop")
	e.active = nil
	e.pending = nil
	return nil
}

// Shutdown releases the engine. Later requests fail.
func (e *MockEngine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("Shutdown")
	e.shutdown = true
	e.active = nil
	e.pending = nil
	return nil
}

// SetFailure makes subsequent requests fail with err. Pass nil to clear.
func (e *MockEngine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failure = err
}

// CallCount returns how many times method was called.
func (e *MockEngine) CallCount(method string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[method]
}

// Active returns the request currently in progress.
func (e *MockEngine) Active() (Request, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return Request{}, false
	}
	return *e.active, true
}

// Pending returns queued requests behind the active one.
func (e *MockEngine) Pending() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Request, len(e.pending))
	copy(out, e.pending)
	return out
}

// Requests returns every request submitted so far, in order.
func (e *MockEngine) Requests() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Request, len(e.history))
	copy(out, e.history)
	return out
}

// Language returns the active locale.
func (e *MockEngine) Language() language.Tag {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locale
}

// Voice returns the active voice.
func (e *MockEngine) Voice() tts.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voice
}

// Pitch returns the pitch multiplier.
func (e *MockEngine) Pitch() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pitch
}

// Rate returns the speech rate multiplier.
func (e *MockEngine) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// IsShutdown reports whether Shutdown was called.
func (e *MockEngine) IsShutdown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdown
}

var _ tts.Engine = (*MockEngine)(nil)
