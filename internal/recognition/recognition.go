package recognition

import (
	"context"
	"errors"
)

// ErrCapabilityUnavailable means no speech recognition engine is configured on this host.
var ErrCapabilityUnavailable = errors.New("speech recognition is not available")

type Config struct {
	Locale         string
	Continuous     bool
	InterimResults bool
}

// Result is one recognition segment inside a batch.
type Result struct {
	Text    string
	IsFinal bool
}

// Sink receives engine events in the order the engine produces them.
type Sink interface {
	OnResults(results []Result)
	OnError(err error)
	OnEnd()
}

type Capture interface {
	Stop() error
}

// Recognizer is the speech-to-text capability. Recognize returns once capture has started;
// events then arrive on sink until the capture ends.
type Recognizer interface {
	Recognize(ctx context.Context, cfg Config, sink Sink) (Capture, error)
}
