package translation

import (
	"github.com/foxseedlab/honyaku/internal/config"
	"github.com/foxseedlab/honyaku/internal/translation"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (translation.Translator, error) {
		c := do.MustInvoke[*config.TranslatorConfig](i)
		return NewHTTPClient(c.TranslateAPIURL, c.TranslateAPIToken, c.TranslateTimeout), nil
	})
}
