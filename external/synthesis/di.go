package synthesis

import (
	"log/slog"

	"github.com/foxseedlab/honyaku/internal/config"
	"github.com/foxseedlab/honyaku/internal/synthesis"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*synthesis.Trigger, error) {
		c := do.MustInvoke[*config.TranslatorConfig](i)
		engine, err := NewEspeakEngine(c.EspeakBinary)
		if err != nil {
			slog.Warn("speech synthesis disabled", "error", err, "binary", c.EspeakBinary)
			return synthesis.NewTrigger(nil), nil
		}
		return synthesis.NewTrigger(engine), nil
	})
}
