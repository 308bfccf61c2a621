package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foxseedlab/honyaku/internal/language"
)

var (
	ErrValidation        = errors.New("invalid translation request")
	ErrTranslationFailed = errors.New("translation failed")
)

// FailedError carries the reason a translation request did not succeed. It matches
// ErrTranslationFailed with errors.Is.
type FailedError struct {
	Reason     string
	StatusCode int
}

func (e *FailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("translation failed (status %d): %s", e.StatusCode, e.Reason)
	}
	return "translation failed: " + e.Reason
}

func (e *FailedError) Is(target error) bool {
	return target == ErrTranslationFailed
}

// Request is the wire body of POST /api/translate.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang,omitempty"`
	TargetLang string `json:"targetLang"`
}

type Response struct {
	TranslatedText string `json:"translatedText"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Validate rejects blank text and language codes outside the registry.
func Validate(text, sourceLang, targetLang string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty", ErrValidation)
	}
	if _, err := language.Resolve(sourceLang); err != nil {
		return fmt.Errorf("%w: source language: %v", ErrValidation, err)
	}
	if _, err := language.Resolve(targetLang); err != nil {
		return fmt.Errorf("%w: target language: %v", ErrValidation, err)
	}
	return nil
}
