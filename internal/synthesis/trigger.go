package synthesis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/honyaku/internal/language"
)

var ErrClosed = errors.New("synthesis trigger is closed")

const voiceListTimeout = 5 * time.Second

type playback struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Trigger speaks at most one utterance at a time. Every Speak call interrupts whatever is playing.
type Trigger struct {
	engine Engine

	mu      sync.Mutex
	current *playback
	closed  bool
}

func NewTrigger(engine Engine) *Trigger {
	return &Trigger{engine: engine}
}

func (t *Trigger) Available() bool {
	return t != nil && t.engine != nil
}

// Speak cancels the current utterance, waits until it is silent, and starts text in the
// background. Empty text is a no-op.
func (t *Trigger) Speak(text, locale string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !t.Available() {
		return ErrCapabilityUnavailable
	}

	// Voice listing may run the engine, so it happens before the lock is taken.
	u := t.buildUtterance(text, locale)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.interruptLocked()

	ctx, cancel := context.WithCancel(context.Background())
	pb := &playback{cancel: cancel, done: make(chan struct{})}
	t.current = pb

	go func() {
		defer close(pb.done)
		defer cancel()
		if err := t.engine.Speak(ctx, u); err != nil && ctx.Err() == nil {
			slog.Warn("speech synthesis failed", "error", err, "locale", u.Locale, "voice", u.Voice)
		}
	}()
	return nil
}

// Stop silences the current utterance, if any.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interruptLocked()
}

func (t *Trigger) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.interruptLocked()
}

func (t *Trigger) interruptLocked() {
	if t.current == nil {
		return
	}
	t.current.cancel()
	<-t.current.done
	t.current = nil
}

func (t *Trigger) buildUtterance(text, locale string) Utterance {
	fallback := Utterance{Text: text, Locale: language.BaseLanguage(locale)}

	ctx, cancel := context.WithTimeout(context.Background(), voiceListTimeout)
	defer cancel()
	voices, err := t.engine.Voices(ctx)
	if err != nil {
		slog.Debug("voice listing failed; using engine default voice", "error", err, "locale", locale)
		return fallback
	}
	if v, ok := SelectVoice(voices, locale); ok {
		return Utterance{Text: text, Locale: locale, Voice: v.Name}
	}
	return fallback
}

// SelectVoice returns the first voice whose locale matches tag exactly, ignoring case and the
// choice of '-' or '_' as separator.
func SelectVoice(voices []Voice, tag string) (Voice, bool) {
	want := normalizeTag(tag)
	for _, v := range voices {
		if normalizeTag(v.Locale) == want {
			return v, true
		}
	}
	return Voice{}, false
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
}
