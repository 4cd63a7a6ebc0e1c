package mock

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vishlabs/readaloud/tts"
	"golang.org/x/text/language"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) listener() tts.ProgressListener {
	add := func(e string) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.events = append(l.events, e)
	}
	return tts.ProgressFuncs{
		Start: func(id string) { add("start:" + id) },
		Done:  func(id string) { add("done:" + id) },
		Error: func(id string, _ error) { add("error:" + id) },
	}
}

func (l *eventLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.events...)
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInitReportsConfiguredStatus(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want tts.InitStatus
	}{
		{"default success", nil, tts.InitSuccess},
		{"scripted error", []Option{WithInitStatus(tts.InitError)}, tts.InitError},
		{"async success", []Option{WithAsyncInit()}, tts.InitSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.opts...)
			got := make(chan tts.InitStatus, 1)
			e.Init(func(s tts.InitStatus) { got <- s })

			select {
			case s := <-got:
				if s != tt.want {
					t.Errorf("status = %v, want %v", s, tt.want)
				}
			case <-time.After(time.Second):
				t.Fatal("Init never reported")
			}
		})
	}
}

func TestInitGateHoldsReport(t *testing.T) {
	gate := make(chan struct{})
	e := New(WithInitGate(gate))

	got := make(chan tts.InitStatus, 1)
	e.Init(func(s tts.InitStatus) { got <- s })

	select {
	case <-got:
		t.Fatal("Init reported before the gate opened")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("Init did not report after the gate opened")
	}
}

func TestSetLanguage(t *testing.T) {
	e := New(WithLanguages(map[string]tts.LanguageStatus{
		"en-US": tts.LangCountryAvailable,
		"fr-FR": tts.LangMissingData,
	}))

	if s := e.SetLanguage(language.AmericanEnglish); s != tts.LangCountryAvailable {
		t.Errorf("SetLanguage(en-US) = %v", s)
	}
	if s := e.SetLanguage(language.MustParse("fr-FR")); s != tts.LangMissingData {
		t.Errorf("SetLanguage(fr-FR) = %v", s)
	}
	if s := e.SetLanguage(language.Japanese); s != tts.LangNotSupported {
		t.Errorf("SetLanguage(ja) = %v", s)
	}
	if got := e.Language(); got != language.AmericanEnglish {
		t.Errorf("unusable languages must not switch; Language() = %v", got)
	}
	if n := e.CallCount("SetLanguage"); n != 3 {
		t.Errorf("CallCount(SetLanguage) = %d, want 3", n)
	}
}

func TestSetVoiceValidatesName(t *testing.T) {
	e := New()

	if err := e.SetVoice(tts.Voice{Name: "en-us-studio"}); err != nil {
		t.Fatalf("SetVoice failed: %v", err)
	}
	if e.Voice().Name != "en-us-studio" {
		t.Errorf("Voice() = %s", e.Voice().Name)
	}
	if err := e.SetVoice(tts.Voice{Name: "missing"}); !errors.Is(err, tts.ErrVoiceNotFound) {
		t.Errorf("SetVoice(missing) error = %v, want ErrVoiceNotFound", err)
	}
}

func TestFlushReplacesActiveRequest(t *testing.T) {
	e := New()
	var log eventLog
	e.SetProgressListener(log.listener())

	if err := e.Speak("one", tts.QueueFlush, "a"); err != nil {
		t.Fatal(err)
	}
	if err := e.Speak("queued", tts.QueueAdd, "b"); err != nil {
		t.Fatal(err)
	}
	if err := e.Speak("two", tts.QueueFlush, "c"); err != nil {
		t.Fatal(err)
	}

	active, ok := e.Active()
	if !ok || active.ID != "c" || active.Text != "two" {
		t.Errorf("Active() = %+v, want request c", active)
	}
	if p := e.Pending(); len(p) != 0 {
		t.Errorf("Pending() = %v, want none after flush", p)
	}
	if n := len(e.Requests()); n != 3 {
		t.Errorf("Requests() has %d entries, want 3", n)
	}
	if got := log.get(); !equal(got, []string{"start:a", "start:c"}) {
		t.Errorf("events = %v", got)
	}
}

func TestCompleteAdvancesQueue(t *testing.T) {
	e := New()
	var log eventLog
	e.SetProgressListener(log.listener())

	for _, id := range []string{"p0", "p1"} {
		if err := e.Speak(id, tts.QueueAdd, id); err != nil {
			t.Fatal(err)
		}
	}

	if e.Complete("p1") {
		t.Error("Complete should ignore requests that are not active")
	}
	if !e.Complete("p0") {
		t.Fatal("Complete(p0) = false")
	}
	if !e.Fail("p1", nil) {
		t.Fatal("Fail(p1) = false")
	}

	want := []string{"start:p0", "done:p0", "start:p1", "error:p1"}
	if got := log.get(); !equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if _, ok := e.Active(); ok {
		t.Error("no request should be active")
	}
}

func TestSynthesizeToFileQueues(t *testing.T) {
	e := New()
	if err := e.Speak("talking", tts.QueueFlush, "speak"); err != nil {
		t.Fatal(err)
	}
	if err := e.SynthesizeToFile("saved", tts.SynthesisParams{RequestID: "save"}, "/tmp/out.wav", "save"); err != nil {
		t.Fatal(err)
	}

	pending := e.Pending()
	if len(pending) != 1 || !pending[0].IsFile() || pending[0].Destination != "/tmp/out.wav" {
		t.Errorf("Pending() = %+v, want queued file job", pending)
	}
}

func TestAutoCompleteWritesFiles(t *testing.T) {
	e := New(WithAutoComplete(10*time.Millisecond), WithFileOutput())
	done := make(chan string, 1)
	e.SetProgressListener(tts.ProgressFuncs{Done: func(id string) { done <- id }})

	dest := filepath.Join(t.TempDir(), "clip.wav")
	if err := e.SynthesizeToFile("hi", tts.SynthesisParams{}, dest, "save"); err != nil {
		t.Fatal(err)
	}

	select {
	case id := <-done:
		if id != "save" {
			t.Errorf("done id = %s", id)
		}
	case <-time.After(time.Second):
		t.Fatal("request never auto-completed")
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("expected file at %s: %v", dest, err)
	}
}

func TestStopAndShutdown(t *testing.T) {
	e := New()
	if err := e.Speak("x", tts.QueueFlush, "a"); err != nil {
		t.Fatal(err)
	}
	if err := e.Stop(); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Active(); ok {
		t.Error("Stop should clear the active request")
	}

	if err := e.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if !e.IsShutdown() {
		t.Error("IsShutdown() = false")
	}
	if err := e.Speak("x", tts.QueueFlush, "b"); !errors.Is(err, tts.ErrEngineShutdown) {
		t.Errorf("Speak() after Shutdown error = %v, want ErrEngineShutdown", err)
	}
}

func TestSetFailure(t *testing.T) {
	e := New()
	boom := errors.New("boom")
	e.SetFailure(boom)

	if err := e.Speak("x", tts.QueueFlush, "a"); !errors.Is(err, boom) {
		t.Errorf("Speak() error = %v, want %v", err, boom)
	}
	e.SetFailure(nil)
	if err := e.Speak("x", tts.QueueFlush, "a"); err != nil {
		t.Errorf("Speak() after clearing failure = %v", err)
	}
}
