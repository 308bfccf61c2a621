package recognition

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type Callbacks struct {
	OnPartial func(text string)
	OnFinal   func(text string)
	OnError   func(err error)
	OnEnd     func()
}

// Handle is a live recognition session. Once Stop returns no partial or final text is delivered,
// and exactly one of OnError or OnEnd fires over the handle's lifetime. Text callbacks run with
// the handle locked, so they must not call Stop.
type Handle struct {
	cb      Callbacks
	cancel  context.CancelFunc
	capture Capture

	mu         sync.Mutex
	stopped    bool
	terminated bool
}

// Start opens a continuous, interim-enabled session for locale. A nil recognizer yields
// ErrCapabilityUnavailable and no handle.
func Start(recognizer Recognizer, locale string, cb Callbacks) (*Handle, error) {
	if recognizer == nil {
		return nil, ErrCapabilityUnavailable
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{cb: cb, cancel: cancel}
	capture, err := recognizer.Recognize(ctx, Config{
		Locale:         locale,
		Continuous:     true,
		InterimResults: true,
	}, h)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start recognition: %w", err)
	}
	h.mu.Lock()
	h.capture = capture
	h.mu.Unlock()
	return h, nil
}

func (h *Handle) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	capture := h.capture
	h.mu.Unlock()

	var err error
	if capture != nil {
		err = capture.Stop()
	}
	h.cancel()
	h.terminate(nil)
	return err
}

// OnResults partitions one engine batch into finalized and in-progress text. Final text is
// delivered before the batch's interim text.
func (h *Handle) OnResults(results []Result) {
	var final, interim strings.Builder
	for _, r := range results {
		if r.IsFinal {
			final.WriteString(r.Text)
		} else {
			interim.WriteString(r.Text)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || h.terminated {
		return
	}
	if final.Len() > 0 && h.cb.OnFinal != nil {
		h.cb.OnFinal(final.String())
	}
	if interim.Len() > 0 && h.cb.OnPartial != nil {
		h.cb.OnPartial(interim.String())
	}
}

func (h *Handle) OnError(err error) {
	h.terminate(err)
}

func (h *Handle) OnEnd() {
	h.terminate(nil)
}

func (h *Handle) terminate(err error) {
	h.mu.Lock()
	if h.terminated {
		h.mu.Unlock()
		return
	}
	h.terminated = true
	h.mu.Unlock()

	h.cancel()
	if err != nil && h.cb.OnError != nil {
		h.cb.OnError(err)
		return
	}
	if err == nil && h.cb.OnEnd != nil {
		h.cb.OnEnd()
	}
}
