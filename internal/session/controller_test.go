package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/honyaku/internal/language"
	"github.com/foxseedlab/honyaku/internal/recognition"
	"github.com/foxseedlab/honyaku/internal/synthesis"
	"github.com/foxseedlab/honyaku/internal/translation"
)

type fakeCapture struct{}

func (fakeCapture) Stop() error { return nil }

type fakeRecognizer struct {
	mu      sync.Mutex
	configs []recognition.Config
	sinks   []recognition.Sink
}

func (r *fakeRecognizer) Recognize(_ context.Context, cfg recognition.Config, sink recognition.Sink) (recognition.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
	r.sinks = append(r.sinks, sink)
	return fakeCapture{}, nil
}

func (r *fakeRecognizer) sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}

func (r *fakeRecognizer) sink(t *testing.T) recognition.Sink {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sinks) == 0 {
		t.Fatal("no recognition session was started")
	}
	return r.sinks[len(r.sinks)-1]
}

func (r *fakeRecognizer) lastLocale() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configs[len(r.configs)-1].Locale
}

func final(text string) []recognition.Result {
	return []recognition.Result{{Text: text, IsFinal: true}}
}

func interim(text string) []recognition.Result {
	return []recognition.Result{{Text: text}}
}

type reply struct {
	text string
	err  error
}

type pendingCall struct {
	req   translation.Request
	reply chan reply
}

// blockingTranslator holds every request until the test answers it.
type blockingTranslator struct {
	calls chan pendingCall
}

func newBlockingTranslator() *blockingTranslator {
	return &blockingTranslator{calls: make(chan pendingCall, 16)}
}

func (b *blockingTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	call := pendingCall{
		req:   translation.Request{Text: text, SourceLang: sourceLang, TargetLang: targetLang},
		reply: make(chan reply, 1),
	}
	b.calls <- call
	select {
	case r := <-call.reply:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (b *blockingTranslator) next(t *testing.T) pendingCall {
	t.Helper()
	select {
	case call := <-b.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("expected a translation request")
		return pendingCall{}
	}
}

func (b *blockingTranslator) expectNone(t *testing.T) {
	t.Helper()
	select {
	case call := <-b.calls:
		t.Fatalf("unexpected translation request: %+v", call.req)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []synthesis.Utterance
	stops  int
	closed int
}

func (s *fakeSpeaker) Available() bool { return true }

func (s *fakeSpeaker) Speak(text, locale string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, synthesis.Utterance{Text: text, Locale: locale})
	return nil
}

func (s *fakeSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *fakeSpeaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

func newTestController(t *testing.T, rec recognition.Recognizer, tr translation.Translator, sp Speaker, opts Options) *Controller {
	t.Helper()
	if opts.SourceLang == "" {
		opts.SourceLang = "en"
	}
	if opts.TargetLang == "" {
		opts.TargetLang = "es"
	}
	c, err := NewController(rec, tr, sp, opts)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, c *Controller, desc string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := c.Snapshot()
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot %+v", desc, snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPartialsKeepOnlyTheLatest(t *testing.T) {
	rec := &fakeRecognizer{}
	c := newTestController(t, rec, newBlockingTranslator(), nil, Options{})
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sink := rec.sink(t)
	for _, p := range []string{"the", "the pa", "the patient"} {
		sink.OnResults(interim(p))
	}

	snap := c.Snapshot()
	if snap.Interim != "the patient" {
		t.Fatalf("interim = %q, want the patient", snap.Interim)
	}
	if snap.Transcript != "" {
		t.Fatalf("transcript should be untouched by partials, got %q", snap.Transcript)
	}
}

func TestFinalsJoinWithSingleSpace(t *testing.T) {
	rec := &fakeRecognizer{}
	tr := newBlockingTranslator()
	c := newTestController(t, rec, tr, nil, Options{})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	sink := rec.sink(t)
	sink.OnResults(final("  the patient "))
	sink.OnResults(final("has a fever  "))

	if got := c.Snapshot().Transcript; got != "the patient has a fever" {
		t.Fatalf("transcript = %q", got)
	}
}

func TestFinalClearsInterimThenBatchInterimApplies(t *testing.T) {
	rec := &fakeRecognizer{}
	c := newTestController(t, rec, newBlockingTranslator(), nil, Options{})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	sink := rec.sink(t)
	sink.OnResults(interim("the patient"))
	sink.OnResults(final("the patient"))
	if got := c.Snapshot().Interim; got != "" {
		t.Fatalf("interim should not keep finalized text, got %q", got)
	}

	sink.OnResults([]recognition.Result{{Text: "has a fever", IsFinal: true}, {Text: "since"}})
	snap := c.Snapshot()
	if snap.Transcript != "the patient has a fever" || snap.Interim != "since" {
		t.Fatalf("unexpected state: transcript=%q interim=%q", snap.Transcript, snap.Interim)
	}
}

func TestFinalTriggersTranslationVerbatim(t *testing.T) {
	rec := &fakeRecognizer{}
	tr := newBlockingTranslator()
	c := newTestController(t, rec, tr, nil, Options{SourceLang: "en", TargetLang: "es"})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	rec.sink(t).OnResults(final("the patient has a fever"))

	call := tr.next(t)
	want := translation.Request{Text: "the patient has a fever", SourceLang: "en", TargetLang: "es"}
	if call.req != want {
		t.Fatalf("request = %+v, want %+v", call.req, want)
	}
	if snap := c.Snapshot(); !snap.Translating || snap.Translation.Display() != "Translating..." {
		t.Fatalf("expected pending translation, got %+v", snap.Translation)
	}

	call.reply <- reply{text: " el paciente tiene fiebre "}
	snap := waitFor(t, c, "translation applied", func(s Snapshot) bool { return s.Translation.Status == StatusSuccess })
	if snap.Translation.TranslatedText != " el paciente tiene fiebre " {
		t.Fatalf("translated text = %q, want verbatim", snap.Translation.TranslatedText)
	}
	if snap.Translating {
		t.Fatal("expected translating to be false after the response")
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	rec := &fakeRecognizer{}
	tr := newBlockingTranslator()
	c := newTestController(t, rec, tr, nil, Options{})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	sink := rec.sink(t)
	sink.OnResults(final("the patient"))
	r1 := tr.next(t)
	sink.OnResults(final("has a fever"))
	r2 := tr.next(t)

	r2.reply <- reply{text: "el paciente tiene fiebre"}
	waitFor(t, c, "second response", func(s Snapshot) bool { return s.Translation.Status == StatusSuccess })

	r1.reply <- reply{text: "el paciente"}
	time.Sleep(50 * time.Millisecond)

	snap := c.Snapshot()
	if snap.Translation.TranslatedText != "el paciente tiene fiebre" {
		t.Fatalf("translation = %q, want the latest request's response", snap.Translation.TranslatedText)
	}
	if snap.Translation.SourceText != "the patient has a fever" {
		t.Fatalf("source text = %q", snap.Translation.SourceText)
	}
}

func TestTranslationFailureKeepsTranscriptSpeakable(t *testing.T) {
	rec := &fakeRecognizer{}
	tr := newBlockingTranslator()
	sp := &fakeSpeaker{}
	c := newTestController(t, rec, tr, sp, Options{})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	rec.sink(t).OnResults(final("the patient has a fever"))
	tr.next(t).reply <- reply{err: &translation.FailedError{Reason: "Translation failed", StatusCode: 500}}

	snap := waitFor(t, c, "error result", func(s Snapshot) bool { return s.Translation.Status == StatusError })
	if got := snap.Translation.Display(); got != "Error: Could not translate." {
		t.Fatalf("display = %q", got)
	}
	if snap.Translation.Reason != "Translation failed" {
		t.Fatalf("reason = %q", snap.Translation.Reason)
	}
	if snap.Transcript != "the patient has a fever" {
		t.Fatalf("transcript changed: %q", snap.Transcript)
	}

	if err := c.Speak(Original); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if err := c.Speak(Translated); err != nil {
		t.Fatalf("Speak translated: %v", err)
	}
	if len(sp.spoken) != 1 || sp.spoken[0].Text != "the patient has a fever" || sp.spoken[0].Locale != "en-US" {
		t.Fatalf("spoken = %+v, want only the original in en-US", sp.spoken)
	}
}

func TestClearResetsEverything(t *testing.T) {
	rec := &fakeRecognizer{}
	tr := newBlockingTranslator()
	c := newTestController(t, rec, tr, nil, Options{})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	sink := rec.sink(t)
	sink.OnResults(final("the patient"))
	pending := tr.next(t)
	sink.OnResults(interim("has"))

	c.Clear()
	pending.reply <- reply{text: "el paciente"}
	time.Sleep(50 * time.Millisecond)

	snap := c.Snapshot()
	if snap.Listening || snap.Interim != "" || snap.Transcript != "" {
		t.Fatalf("expected idle and empty, got %+v", snap)
	}
	if snap.Translation.Status != StatusNone || snap.Translation.Display() != "" {
		t.Fatalf("expected no translation, got %+v", snap.Translation)
	}

	sink.OnResults(final("straggler"))
	if got := c.Snapshot().Transcript; got != "" {
		t.Fatalf("events after clear must be dropped, got %q", got)
	}
}

func TestSwapImpliesClear(t *testing.T) {
	build := func() (*Controller, *fakeRecognizer) {
		rec := &fakeRecognizer{}
		c := newTestController(t, rec, newBlockingTranslator(), nil, Options{SourceLang: "en", TargetLang: "ur"})
		if err := c.Start(); err != nil {
			t.Fatal(err)
		}
		rec.sink(t).OnResults(final("the patient has a fever"))
		c.EditTranscript("edited by hand")
		return c, rec
	}

	swapped, _ := build()
	swapped.Swap()

	swappedCleared, _ := build()
	swappedCleared.Swap()
	swappedCleared.Clear()

	a, b := swapped.Snapshot(), swappedCleared.Snapshot()
	if a != b {
		t.Fatalf("swap != swap+clear:\n%+v\n%+v", a, b)
	}
	if a.SourceLang != "ur" || a.TargetLang != "en" || a.Listening || a.Transcript != "" {
		t.Fatalf("unexpected state after swap: %+v", a)
	}
}

func TestRecognitionAbsent(t *testing.T) {
	c := newTestController(t, nil, newBlockingTranslator(), nil, Options{})

	err := c.Start()
	if !errors.Is(err, recognition.ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
	snap := c.Snapshot()
	if snap.Listening || snap.RecognitionAvailable {
		t.Fatalf("expected idle without recognition, got %+v", snap)
	}
	if snap.Notice == "" {
		t.Fatal("expected a notice pointing to typed input")
	}

	c.EditTranscript("typed text")
	if got := c.Snapshot().Transcript; got != "typed text" {
		t.Fatalf("typed input should remain usable, got %q", got)
	}
}

func TestStartIsIdempotentAndUsesSourceLocale(t *testing.T) {
	rec := &fakeRecognizer{}
	c := newTestController(t, rec, newBlockingTranslator(), nil, Options{SourceLang: "ur", TargetLang: "en"})

	for range 2 {
		if err := c.Start(); err != nil {
			t.Fatal(err)
		}
	}
	if n := rec.sessions(); n != 1 {
		t.Fatalf("recognition sessions = %d, want 1", n)
	}
	if got := rec.lastLocale(); got != "ur-PK" {
		t.Fatalf("locale = %q, want ur-PK", got)
	}
	if !c.Snapshot().Listening {
		t.Fatal("expected listening")
	}
}

func TestStopKeepsTranscriptAndDropsStragglers(t *testing.T) {
	rec := &fakeRecognizer{}
	tr := newBlockingTranslator()
	c := newTestController(t, rec, tr, nil, Options{})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	sink := rec.sink(t)
	sink.OnResults(final("the patient"))
	tr.next(t)
	sink.OnResults(interim("has a"))

	c.Stop()
	sink.OnResults(final("late"))
	sink.OnResults(interim("late interim"))

	snap := c.Snapshot()
	if snap.Listening || snap.Interim != "" {
		t.Fatalf("expected idle with empty interim, got %+v", snap)
	}
	if snap.Transcript != "the patient" {
		t.Fatalf("transcript = %q, want the finalized text kept", snap.Transcript)
	}
	tr.expectNone(t)
}

func TestRecognitionErrorEndsListening(t *testing.T) {
	rec := &fakeRecognizer{}
	tr := newBlockingTranslator()
	c := newTestController(t, rec, tr, nil, Options{AutoRestart: true})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	sink := rec.sink(t)
	sink.OnResults(final("the patient"))
	tr.next(t)
	sink.OnResults(interim("has"))

	sink.OnError(errors.New("microphone unplugged"))

	snap := c.Snapshot()
	if snap.Listening || snap.Interim != "" || snap.Transcript != "the patient" {
		t.Fatalf("unexpected state after error: %+v", snap)
	}
	if snap.Notice == "" {
		t.Fatal("expected a notice after recognition error")
	}
	if n := rec.sessions(); n != 1 {
		t.Fatalf("errors must not auto restart, sessions = %d", n)
	}

	if err := c.Start(); err != nil {
		t.Fatalf("controller should stay usable after an error: %v", err)
	}
	if !c.Snapshot().Listening {
		t.Fatal("expected listening after restart")
	}
}

func TestAutoRestartOnSpontaneousEnd(t *testing.T) {
	rec := &fakeRecognizer{}
	c := newTestController(t, rec, newBlockingTranslator(), nil, Options{AutoRestart: true})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	rec.sink(t).OnEnd()

	waitFor(t, c, "auto restart", func(s Snapshot) bool { return s.Listening && rec.sessions() == 2 })
}

func TestEndWithoutAutoRestartGoesIdle(t *testing.T) {
	rec := &fakeRecognizer{}
	c := newTestController(t, rec, newBlockingTranslator(), nil, Options{})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	rec.sink(t).OnEnd()
	time.Sleep(20 * time.Millisecond)

	if c.Snapshot().Listening || rec.sessions() != 1 {
		t.Fatal("expected idle without a new session")
	}
}

func TestEditTranscriptIsNotAutoTranslated(t *testing.T) {
	tr := newBlockingTranslator()
	c := newTestController(t, &fakeRecognizer{}, tr, nil, Options{})

	c.EditTranscript("I have a headache")
	tr.expectNone(t)

	if err := c.TranslateNow(); err != nil {
		t.Fatalf("TranslateNow: %v", err)
	}
	call := tr.next(t)
	if call.req.Text != "I have a headache" {
		t.Fatalf("request text = %q", call.req.Text)
	}
	call.reply <- reply{text: ""}
	snap := waitFor(t, c, "empty success", func(s Snapshot) bool { return s.Translation.Status == StatusSuccess })
	if got := snap.Translation.Display(); got != "No translation available" {
		t.Fatalf("display = %q", got)
	}
}

func TestTranslateNowRejectsBlankTranscript(t *testing.T) {
	tr := newBlockingTranslator()
	c := newTestController(t, &fakeRecognizer{}, tr, nil, Options{})

	c.EditTranscript("   ")
	if err := c.TranslateNow(); !errors.Is(err, translation.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	tr.expectNone(t)
	if got := c.Snapshot().Translation.Status; got != StatusNone {
		t.Fatalf("status = %s, want none", got)
	}
}

func TestLanguageChangesApplyToNextRequest(t *testing.T) {
	rec := &fakeRecognizer{}
	tr := newBlockingTranslator()
	c := newTestController(t, rec, tr, nil, Options{})

	if err := c.SetTargetLanguage("xx"); !errors.Is(err, language.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := c.SetSourceLanguage("fr"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetTargetLanguage("de"); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if got := rec.lastLocale(); got != "fr-FR" {
		t.Fatalf("locale = %q, want fr-FR", got)
	}

	rec.sink(t).OnResults(final("bonjour"))
	call := tr.next(t)
	if call.req.SourceLang != "fr" || call.req.TargetLang != "de" {
		t.Fatalf("request pair = %s->%s", call.req.SourceLang, call.req.TargetLang)
	}
}

func TestSpeakTranslatedUsesTargetLocale(t *testing.T) {
	tr := newBlockingTranslator()
	sp := &fakeSpeaker{}
	c := newTestController(t, &fakeRecognizer{}, tr, sp, Options{SourceLang: "en", TargetLang: "ur"})

	c.EditTranscript("take two tablets")
	if err := c.TranslateNow(); err != nil {
		t.Fatal(err)
	}
	tr.next(t).reply <- reply{text: "دو گولیاں لیں"}
	waitFor(t, c, "translation", func(s Snapshot) bool { return s.Translation.Status == StatusSuccess })

	if err := c.Speak(Translated); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if len(sp.spoken) != 1 || sp.spoken[0].Locale != "ur-PK" {
		t.Fatalf("spoken = %+v, want one utterance in ur-PK", sp.spoken)
	}
}

func TestSpeakWithoutSynthesis(t *testing.T) {
	c := newTestController(t, &fakeRecognizer{}, newBlockingTranslator(), synthesis.NewTrigger(nil), Options{})

	if err := c.Speak(Original); err != nil {
		t.Fatalf("speaking nothing should be a no-op, got %v", err)
	}
	c.EditTranscript("hello")
	if err := c.Speak(Original); !errors.Is(err, synthesis.ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
	if c.Snapshot().SynthesisAvailable {
		t.Fatal("expected synthesis unavailable")
	}
}

func TestStopSpeakingAndCloseReachSpeaker(t *testing.T) {
	sp := &fakeSpeaker{}
	c, err := NewController(&fakeRecognizer{}, newBlockingTranslator(), sp, Options{SourceLang: "en", TargetLang: "es"})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	c.StopSpeaking()
	c.Close()

	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.stops != 1 || sp.closed != 1 {
		t.Fatalf("stops = %d, closed = %d, want 1 and 1", sp.stops, sp.closed)
	}
}

func TestCloseSilencesSynthesis(t *testing.T) {
	engine := &endlessEngine{started: make(chan struct{}, 1)}
	c := newTestController(t, &fakeRecognizer{}, newBlockingTranslator(), synthesis.NewTrigger(engine), Options{})

	c.EditTranscript("hello")
	if err := c.Speak(Original); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	<-engine.started
	c.Close()
	if err := c.Speak(Original); !errors.Is(err, synthesis.ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

type endlessEngine struct {
	started chan struct{}
}

func (e *endlessEngine) Voices(context.Context) ([]synthesis.Voice, error) { return nil, nil }

func (e *endlessEngine) Speak(ctx context.Context, _ synthesis.Utterance) error {
	e.started <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestObserverSeesTransitions(t *testing.T) {
	var mu sync.Mutex
	var seen []Snapshot
	rec := &fakeRecognizer{}
	c := newTestController(t, rec, newBlockingTranslator(), nil, Options{
		Observer: func(s Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, s)
		},
	})

	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	rec.sink(t).OnResults(interim("hel"))
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 3 {
		t.Fatalf("expected at least 3 snapshots, got %d", len(seen))
	}
	if !seen[0].Listening {
		t.Fatal("first snapshot should be listening")
	}
	if seen[len(seen)-1].Listening {
		t.Fatal("last snapshot should be idle")
	}
}

func TestNewControllerRejectsUnknownLanguage(t *testing.T) {
	if _, err := NewController(nil, newBlockingTranslator(), nil, Options{SourceLang: "xx", TargetLang: "es"}); err == nil {
		t.Fatal("expected error for unknown source language")
	}
}
