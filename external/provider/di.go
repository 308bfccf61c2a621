package provider

import (
	"fmt"

	"github.com/foxseedlab/honyaku/internal/config"
	"github.com/foxseedlab/honyaku/internal/translation"
	"github.com/samber/do/v2"
)

func New(c *config.ServerConfig) (translation.Translator, error) {
	switch c.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(c.OpenAIAPIKey, c.OpenAIBaseURL, c.OpenAIModel, c.OpenAITemperature), nil
	case config.ProviderProxy:
		return NewProxy(c.ProxyUpstreamURL, c.ProxyBearerToken), nil
	}
	return nil, fmt.Errorf("unknown translation provider %q", c.Provider)
}

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (translation.Translator, error) {
		return New(do.MustInvoke[*config.ServerConfig](i))
	})
}
