package synthesis

import (
	"context"
	"errors"
)

// ErrCapabilityUnavailable means no speech synthesis engine is installed on this host.
var ErrCapabilityUnavailable = errors.New("speech synthesis is not available")

type Voice struct {
	Name   string
	Locale string
}

// Utterance is one request to vocalize Text. An empty Voice leaves the choice to the engine,
// using Locale as the language hint.
type Utterance struct {
	Text   string
	Locale string
	Voice  string
}

// Engine is the text-to-speech capability. Speak blocks until the utterance finishes or ctx is
// canceled, and must stop producing audio before it returns.
type Engine interface {
	Voices(ctx context.Context) ([]Voice, error)
	Speak(ctx context.Context, u Utterance) error
}
