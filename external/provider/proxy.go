package provider

import (
	"context"

	translationclient "github.com/foxseedlab/honyaku/external/translation"
	"github.com/foxseedlab/honyaku/internal/translation"
)

// Proxy forwards requests to another translation endpoint that speaks the same JSON contract.
// Language codes pass through untouched; the upstream decides what it supports.
type Proxy struct {
	client *translationclient.HTTPClient
}

func NewProxy(upstreamURL, bearerToken string) *Proxy {
	return &Proxy{client: translationclient.NewHTTPClient(upstreamURL, bearerToken, openAIRequestTimeout)}
}

func (p *Proxy) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return p.client.Forward(ctx, translation.Request{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
}
