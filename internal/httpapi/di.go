package httpapi

import (
	"net/http"

	"github.com/foxseedlab/honyaku/internal/config"
	"github.com/foxseedlab/honyaku/internal/metrics"
	"github.com/foxseedlab/honyaku/internal/translation"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (http.Handler, error) {
		c := do.MustInvoke[*config.ServerConfig](i)
		translator := do.MustInvoke[translation.Translator](i)
		h := NewHandler(translator, c.Provider, metrics.Default)
		return NewRouter(h, RouterOptions{AllowedOrigins: c.CORSAllowedOrigins, Metrics: metrics.Default}), nil
	})
}
