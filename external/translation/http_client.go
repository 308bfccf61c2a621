package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/honyaku/internal/translation"
)

const maxErrorBodyBytes = 4 << 10

type HTTPClient struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPClient posts to endpoint. A zero timeout leaves requests unbounded, and an empty token
// sends no Authorization header.
func NewHTTPClient(endpoint, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

// Translate validates the request against the language registry before sending it.
func (c *HTTPClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := translation.Validate(text, sourceLang, targetLang); err != nil {
		return "", err
	}
	return c.Forward(ctx, translation.Request{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
}

// Forward sends req as is. Whether the language codes make sense is left to the endpoint.
func (c *HTTPClient) Forward(ctx context.Context, req translation.Request) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode translation request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", &translation.FailedError{Reason: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &translation.FailedError{Reason: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !isHTTPSuccessStatus(resp.StatusCode) {
		return "", &translation.FailedError{Reason: errorReason(resp), StatusCode: resp.StatusCode}
	}

	var out translation.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &translation.FailedError{Reason: fmt.Sprintf("decode response: %v", err), StatusCode: resp.StatusCode}
	}
	return out.TranslatedText, nil
}

// errorReason prefers the server's {"error": "..."} message over the bare status.
func errorReason(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var payload translation.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return payload.Error
	}
	return fmt.Sprintf("server returned status %d", resp.StatusCode)
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
