package language

import (
	"errors"
	"fmt"
	"strings"

	textlang "golang.org/x/text/language"
)

const DefaultLocaleTag = "en-US"

var ErrNotFound = errors.New("language not found")

type Entry struct {
	Code      string
	Label     string
	LocaleTag string
}

var entries = []Entry{
	{Code: "en", Label: "English", LocaleTag: "en-US"},
	{Code: "es", Label: "Spanish", LocaleTag: "es-ES"},
	{Code: "fr", Label: "French", LocaleTag: "fr-FR"},
	{Code: "de", Label: "German", LocaleTag: "de-DE"},
	{Code: "it", Label: "Italian", LocaleTag: "it-IT"},
	{Code: "pt", Label: "Portuguese", LocaleTag: "pt-PT"},
	{Code: "ru", Label: "Russian", LocaleTag: "ru-RU"},
	{Code: "zh", Label: "Chinese (Mandarin)", LocaleTag: "zh-CN"},
	{Code: "ja", Label: "Japanese", LocaleTag: "ja-JP"},
	{Code: "ko", Label: "Korean", LocaleTag: "ko-KR"},
	{Code: "hi", Label: "Hindi", LocaleTag: "hi-IN"},
	{Code: "ur", Label: "Urdu", LocaleTag: "ur-PK"},
	{Code: "ar", Label: "Arabic", LocaleTag: "ar-SA"},
	{Code: "tr", Label: "Turkish", LocaleTag: "tr-TR"},
	{Code: "fa", Label: "Persian (Farsi)", LocaleTag: "fa-IR"},
	{Code: "bn", Label: "Bengali", LocaleTag: "bn-BD"},
	{Code: "ta", Label: "Tamil", LocaleTag: "ta-IN"},
	{Code: "te", Label: "Telugu", LocaleTag: "te-IN"},
	{Code: "pa", Label: "Punjabi", LocaleTag: "pa-IN"},
	{Code: "gu", Label: "Gujarati", LocaleTag: "gu-IN"},
	{Code: "mr", Label: "Marathi", LocaleTag: "mr-IN"},
}

var byCode = indexByCode(entries)

func indexByCode(list []Entry) map[string]Entry {
	m := make(map[string]Entry, len(list))
	for _, e := range list {
		m[e.Code] = e
	}
	return m
}

// List returns the supported languages in display order. The returned slice is a copy.
func List() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

func Resolve(code string) (Entry, error) {
	e, ok := byCode[code]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, code)
	}
	return e, nil
}

// LocaleTag returns the speech locale for code, or DefaultLocaleTag when code is unknown.
func LocaleTag(code string) string {
	e, err := Resolve(code)
	if err != nil {
		return DefaultLocaleTag
	}
	return e.LocaleTag
}

// BaseLanguage returns the bare language subtag of a locale tag, e.g. "ur" for "ur-PK".
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if parsed, err := textlang.Parse(tag); err == nil {
		if base, conf := parsed.Base(); conf != textlang.No {
			return base.String()
		}
	}
	if idx := strings.IndexAny(tag, "-_"); idx >= 0 {
		tag = tag[:idx]
	}
	return strings.ToLower(tag)
}
