package session

import (
	"github.com/foxseedlab/honyaku/internal/config"
	"github.com/foxseedlab/honyaku/internal/recognition"
	"github.com/foxseedlab/honyaku/internal/synthesis"
	"github.com/foxseedlab/honyaku/internal/translation"
	"github.com/samber/do/v2"
)

// ObserverFunc is provided by the front end that renders controller snapshots.
type ObserverFunc func(Snapshot)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Controller, error) {
		cfg := do.MustInvoke[*config.TranslatorConfig](i)
		recognizer := do.MustInvoke[recognition.Recognizer](i)
		translator := do.MustInvoke[translation.Translator](i)
		speaker := do.MustInvoke[*synthesis.Trigger](i)
		observer, _ := do.Invoke[ObserverFunc](i)
		return NewController(recognizer, translator, speaker, Options{
			SourceLang:  cfg.SourceLanguage,
			TargetLang:  cfg.TargetLanguage,
			AutoRestart: cfg.AutoRestart,
			Observer:    observer,
		})
	})
}
