package tts

import (
	"golang.org/x/text/language"
)

// Engine is the speech-synthesis service the Speaker drives. Implementations
// wrap a platform or local synthesizer; the Speaker never talks to audio
// hardware directly.
type Engine interface {
	// Init acquires the engine asynchronously. done is called exactly once,
	// from any goroutine, with the outcome.
	Init(done func(InitStatus))

	// SetLanguage switches the synthesis language and reports how well the
	// engine supports it.
	SetLanguage(locale language.Tag) LanguageStatus

	// Voices lists the voices the engine can use right now.
	Voices() []Voice

	// SetVoice makes voice the active voice.
	SetVoice(voice Voice) error

	// SetPitch sets the pitch multiplier (1.0 = normal).
	SetPitch(pitch float64) error

	// SetSpeechRate sets the speech rate multiplier (1.0 = normal).
	SetSpeechRate(rate float64) error

	// Speak submits text for playback under requestID.
	Speak(text string, mode QueueMode, requestID string) error

	// SynthesizeToFile renders text into a playable file at destination.
	SynthesizeToFile(text string, params SynthesisParams, destination string, requestID string) error

	// SetProgressListener replaces the listener receiving utterance events.
	SetProgressListener(listener ProgressListener)

	// Stop discards the current utterance and anything queued.
	Stop() error

	// Shutdown releases the engine. It cannot be used afterward.
	Shutdown() error
}

// ProgressListener receives utterance lifecycle events from an Engine.
// Events may arrive on any goroutine.
type ProgressListener interface {
	OnStart(requestID string)
	OnDone(requestID string)
	OnError(requestID string, err error)
}

// ProgressFuncs adapts plain functions to a ProgressListener. Nil fields are
// skipped.
type ProgressFuncs struct {
	Start func(requestID string)
	Done  func(requestID string)
	Error func(requestID string, err error)
}

// OnStart implements ProgressListener.
func (f ProgressFuncs) OnStart(requestID string) {
	if f.Start != nil {
		f.Start(requestID)
	}
}

// OnDone implements ProgressListener.
func (f ProgressFuncs) OnDone(requestID string) {
	if f.Done != nil {
		f.Done(requestID)
	}
}

// OnError implements ProgressListener.
func (f ProgressFuncs) OnError(requestID string, err error) {
	if f.Error != nil {
		f.Error(requestID, err)
	}
}

// InitStatus is the outcome of Engine.Init.
type InitStatus int

const (
	// InitSuccess means the engine is usable.
	InitSuccess InitStatus = iota
	// InitError means the engine could not be acquired.
	InitError
)

// String returns the string representation of the status.
func (s InitStatus) String() string {
	switch s {
	case InitSuccess:
		return "success"
	case InitError:
		return "error"
	default:
		return "unknown"
	}
}

// LanguageStatus reports how an engine supports a requested locale.
type LanguageStatus int

const (
	// LangCountryAvailable means the exact language and region are available.
	LangCountryAvailable LanguageStatus = iota
	// LangAvailable means the language is available, but not the region.
	LangAvailable
	// LangMissingData means the language is known but its data is not installed.
	LangMissingData
	// LangNotSupported means the engine cannot speak the language at all.
	LangNotSupported
)

// String returns the string representation of the status.
func (s LanguageStatus) String() string {
	switch s {
	case LangCountryAvailable:
		return "country-available"
	case LangAvailable:
		return "available"
	case LangMissingData:
		return "missing-data"
	case LangNotSupported:
		return "not-supported"
	default:
		return "unknown"
	}
}

// Usable reports whether the engine accepted the language.
func (s LanguageStatus) Usable() bool {
	return s == LangCountryAvailable || s == LangAvailable
}

// QueueMode controls how a new utterance interacts with queued ones.
type QueueMode int

const (
	// QueueFlush drops the current and pending utterances.
	QueueFlush QueueMode = iota
	// QueueAdd appends after pending utterances.
	QueueAdd
)

// String returns the string representation of the mode.
func (m QueueMode) String() string {
	if m == QueueAdd {
		return "add"
	}
	return "flush"
}

// SynthesisParams carries per-request options for file synthesis.
type SynthesisParams struct {
	RequestID string // Mirrors the request ID passed alongside
	Volume    float64
}

// Voice describes one voice an engine offers.
type Voice struct {
	Name            string       `yaml:"name"`
	Locale          language.Tag `yaml:"locale"`
	Quality         int          `yaml:"quality"`
	Latency         int          `yaml:"latency"`
	RequiresNetwork bool         `yaml:"requires_network"`
	Features        []string     `yaml:"features,omitempty"`
}

// Voice quality scores, highest is best.
const (
	QualityVeryLow  = 100
	QualityLow      = 200
	QualityNormal   = 300
	QualityHigh     = 400
	QualityVeryHigh = 500
)

// Voice latency scores, lowest is fastest.
const (
	LatencyVeryLow  = 100
	LatencyLow      = 200
	LatencyNormal   = 300
	LatencyHigh     = 400
	LatencyVeryHigh = 500
)
