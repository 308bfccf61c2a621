package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/foxseedlab/honyaku/internal/language"
	"github.com/foxseedlab/honyaku/internal/recognition"
	"github.com/foxseedlab/honyaku/internal/synthesis"
	"github.com/foxseedlab/honyaku/internal/translation"
)

type Status string

const (
	StatusNone    Status = "none"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type TranslationResult struct {
	SourceText     string
	SourceLang     string
	TargetLang     string
	TranslatedText string
	Status         Status
	Reason         string
}

// Display is the text shown in place of the translation.
func (r TranslationResult) Display() string {
	switch r.Status {
	case StatusPending:
		return displayTranslating
	case StatusError:
		return displayTranslationFailed
	case StatusSuccess:
		if r.TranslatedText == "" {
			return displayNoTranslation
		}
		return r.TranslatedText
	}
	return ""
}

type Snapshot struct {
	Listening            bool
	Translating          bool
	SourceLang           string
	TargetLang           string
	Interim              string
	Transcript           string
	Translation          TranslationResult
	Notice               string
	RecognitionAvailable bool
	SynthesisAvailable   bool
}

// Speaker is the synthesis side of the controller. *synthesis.Trigger implements it.
type Speaker interface {
	Available() bool
	Speak(text, locale string) error
	Stop()
	Close()
}

type Which int

const (
	Original Which = iota
	Translated
)

type Options struct {
	SourceLang string
	TargetLang string
	// AutoRestart starts a new recognition session when the engine ends one on its own.
	AutoRestart bool
	// Observer receives a snapshot after every state change. It runs with the controller locked
	// and must not call back into it.
	Observer func(Snapshot)
}

type Controller struct {
	recognizer  recognition.Recognizer
	translator  translation.Translator
	speaker     Speaker
	autoRestart bool
	observer    func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	sourceLang string
	targetLang string
	interim    string
	transcript string
	result     TranslationResult
	notice     string
	listening  bool
	handle     *recognition.Handle
	generation uint64
	latestSeq  uint64
	closed     bool
}

func NewController(recognizer recognition.Recognizer, translator translation.Translator, speaker Speaker, opts Options) (*Controller, error) {
	src, tgt := opts.SourceLang, opts.TargetLang
	if src == "" {
		src = "en"
	}
	if tgt == "" {
		tgt = "es"
	}
	if _, err := language.Resolve(src); err != nil {
		return nil, fmt.Errorf("source language: %w", err)
	}
	if _, err := language.Resolve(tgt); err != nil {
		return nil, fmt.Errorf("target language: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		recognizer:  recognizer,
		translator:  translator,
		speaker:     speaker,
		autoRestart: opts.AutoRestart,
		observer:    opts.Observer,
		ctx:         ctx,
		cancel:      cancel,
		sourceLang:  src,
		targetLang:  tgt,
		result:      TranslationResult{Status: StatusNone},
	}, nil
}

// Start begins listening in the source language. It is a no-op while already listening.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.closed || c.listening {
		c.mu.Unlock()
		return nil
	}
	if c.recognizer == nil {
		c.notice = noticeRecognitionUnavailable
		c.notifyLocked()
		c.mu.Unlock()
		return recognition.ErrCapabilityUnavailable
	}
	c.listening = true
	c.interim = ""
	c.notice = ""
	c.generation++
	gen := c.generation
	locale := language.LocaleTag(c.sourceLang)
	c.notifyLocked()
	c.mu.Unlock()

	// Engines may deliver events before Start returns, so the controller must not be locked here.
	h, err := recognition.Start(c.recognizer, locale, c.callbacks(gen))

	c.mu.Lock()
	if err != nil {
		if c.generation == gen {
			c.listening = false
			c.generation++
			c.notice = noticeRecognitionStartFailed
			c.notifyLocked()
		}
		c.mu.Unlock()
		slog.Warn("recognition start failed", "error", err, "locale", locale)
		return err
	}
	if c.generation != gen || !c.listening {
		// Stopped, cleared or ended while the engine was starting.
		c.mu.Unlock()
		_ = h.Stop()
		return nil
	}
	c.handle = h
	c.mu.Unlock()
	slog.Info("recognition started", "locale", locale)
	return nil
}

// Stop ends listening. The finalized transcript is kept.
func (c *Controller) Stop() {
	c.mu.Lock()
	h := c.detachLocked()
	c.notifyLocked()
	c.mu.Unlock()
	stopHandle(h)
}

// Clear wipes the interim text, transcript and translation, and discards any in-flight response.
func (c *Controller) Clear() {
	c.mu.Lock()
	h := c.detachLocked()
	c.clearLocked()
	c.notifyLocked()
	c.mu.Unlock()
	stopHandle(h)
}

// Swap stops listening, exchanges source and target languages, then clears.
func (c *Controller) Swap() {
	c.mu.Lock()
	h := c.detachLocked()
	c.sourceLang, c.targetLang = c.targetLang, c.sourceLang
	c.clearLocked()
	c.notifyLocked()
	c.mu.Unlock()
	stopHandle(h)
}

// EditTranscript replaces the transcript with typed text. It does not translate.
func (c *Controller) EditTranscript(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = text
	c.notifyLocked()
}

// TranslateNow translates the current transcript. A blank transcript is rejected with
// translation.ErrValidation and issues nothing.
func (c *Controller) TranslateNow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(c.transcript) == "" {
		return fmt.Errorf("%w: transcript is empty", translation.ErrValidation)
	}
	c.issueLocked()
	c.notifyLocked()
	return nil
}

// SetSourceLanguage takes effect on the next Start and the next translation request.
func (c *Controller) SetSourceLanguage(code string) error {
	if _, err := language.Resolve(code); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourceLang = code
	c.notifyLocked()
	return nil
}

func (c *Controller) SetTargetLanguage(code string) error {
	if _, err := language.Resolve(code); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetLang = code
	c.notifyLocked()
	return nil
}

// Speak vocalizes the transcript in the source locale or the translation in the target locale.
// Nothing to say is a no-op.
func (c *Controller) Speak(which Which) error {
	c.mu.Lock()
	var text, locale string
	switch which {
	case Original:
		text, locale = c.transcript, language.LocaleTag(c.sourceLang)
	case Translated:
		if c.result.Status == StatusSuccess {
			text = c.result.TranslatedText
		}
		locale = language.LocaleTag(c.result.TargetLang)
	}
	available := c.speaker != nil && c.speaker.Available()
	if !available && strings.TrimSpace(text) != "" {
		c.notice = noticeSynthesisUnavailable
		c.notifyLocked()
	}
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !available {
		return synthesis.ErrCapabilityUnavailable
	}
	return c.speaker.Speak(text, locale)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops listening and speaking, cancels in-flight translations and waits for them.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	h := c.detachLocked()
	c.mu.Unlock()
	stopHandle(h)

	c.cancel()
	c.wg.Wait()
	if c.speaker != nil {
		c.speaker.Close()
	}
}

// StopSpeaking silences the current utterance.
func (c *Controller) StopSpeaking() {
	if c.speaker != nil {
		c.speaker.Stop()
	}
}

func (c *Controller) callbacks(gen uint64) recognition.Callbacks {
	return recognition.Callbacks{
		OnPartial: func(text string) { c.onPartial(gen, text) },
		OnFinal:   func(text string) { c.onFinal(gen, text) },
		OnError:   func(err error) { c.onTerminated(gen, err) },
		OnEnd:     func() { c.onTerminated(gen, nil) },
	}
}

func (c *Controller) onPartial(gen uint64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || !c.listening {
		return
	}
	c.interim = text
	c.notifyLocked()
}

func (c *Controller) onFinal(gen uint64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || !c.listening {
		return
	}
	c.interim = ""
	fragment := strings.TrimSpace(text)
	if fragment != "" {
		if c.transcript == "" {
			c.transcript = fragment
		} else {
			c.transcript = c.transcript + " " + fragment
		}
	}
	if strings.TrimSpace(c.transcript) != "" {
		c.issueLocked()
	}
	c.notifyLocked()
}

func (c *Controller) onTerminated(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation || !c.listening {
		c.mu.Unlock()
		return
	}
	c.listening = false
	c.handle = nil
	c.interim = ""
	c.generation++
	restart := false
	if err != nil {
		c.notice = recognitionErrorNotice(err)
		slog.Warn("recognition ended with error", "error", err)
	} else {
		restart = c.autoRestart && !c.closed
		slog.Info("recognition ended", "auto_restart", restart)
	}
	if restart {
		c.wg.Add(1)
	}
	c.notifyLocked()
	c.mu.Unlock()

	if restart {
		// Termination callbacks may run on the engine's goroutine; restart off of it.
		go func() {
			defer c.wg.Done()
			if err := c.Start(); err != nil {
				slog.Warn("recognition auto restart failed", "error", err)
			}
		}()
	}
}

// detachLocked moves to Idle and returns the handle to stop once the lock is released.
func (c *Controller) detachLocked() *recognition.Handle {
	if !c.listening {
		return nil
	}
	h := c.handle
	c.listening = false
	c.handle = nil
	c.interim = ""
	c.generation++
	return h
}

func (c *Controller) clearLocked() {
	c.interim = ""
	c.transcript = ""
	c.notice = ""
	c.result = TranslationResult{Status: StatusNone}
	// Responses to earlier requests no longer match.
	c.latestSeq++
}

func (c *Controller) issueLocked() {
	if c.closed {
		return
	}
	c.latestSeq++
	seq := c.latestSeq
	req := TranslationResult{
		SourceText: c.transcript,
		SourceLang: c.sourceLang,
		TargetLang: c.targetLang,
		Status:     StatusPending,
	}
	c.result = req

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		text, err := c.translator.Translate(c.ctx, req.SourceText, req.SourceLang, req.TargetLang)
		c.applyResponse(seq, req, text, err)
	}()
}

func (c *Controller) applyResponse(seq uint64, req TranslationResult, text string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.latestSeq {
		slog.Debug("discarding stale translation response", "request_seq", seq, "latest_seq", c.latestSeq)
		return
	}
	if err != nil {
		req.Status = StatusError
		req.Reason = failureReason(err)
		slog.Warn("translation failed", "error", err, "request_seq", seq, "source_lang", req.SourceLang, "target_lang", req.TargetLang)
	} else {
		req.Status = StatusSuccess
		req.TranslatedText = text
	}
	c.result = req
	c.notifyLocked()
}

func failureReason(err error) string {
	var failed *translation.FailedError
	if errors.As(err, &failed) {
		return failed.Reason
	}
	return err.Error()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Listening:            c.listening,
		Translating:          c.result.Status == StatusPending,
		SourceLang:           c.sourceLang,
		TargetLang:           c.targetLang,
		Interim:              c.interim,
		Transcript:           c.transcript,
		Translation:          c.result,
		Notice:               c.notice,
		RecognitionAvailable: c.recognizer != nil,
		SynthesisAvailable:   c.speaker != nil && c.speaker.Available(),
	}
}

func (c *Controller) notifyLocked() {
	if c.observer != nil {
		c.observer(c.snapshotLocked())
	}
}

func stopHandle(h *recognition.Handle) {
	if h == nil {
		return
	}
	if err := h.Stop(); err != nil {
		slog.Warn("recognition stop failed", "error", err)
	}
}
