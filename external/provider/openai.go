package provider

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

const openAIRequestTimeout = 60 * time.Second

// OpenAI translates through the chat completions API.
type OpenAI struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

func NewOpenAI(apiKey, baseURL, model string, temperature float64) *OpenAI {
	return &OpenAI{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: openAIRequestTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func buildPrompt(text, sourceLang, targetLang string) string {
	return fmt.Sprintf("Translate the following text from %s to %s. Keep medical terms accurate:\n\n%q", sourceLang, targetLang, text)
}

func (o *OpenAI) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: buildPrompt(text, sourceLang, targetLang)}},
		Temperature: o.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &translation.FailedError{Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &translation.FailedError{Reason: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &translation.FailedError{
			Reason:     fmt.Sprintf("openai http %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
			StatusCode: resp.StatusCode,
		}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &translation.FailedError{Reason: fmt.Sprintf("decode chat response: %v", err)}
	}
	if len(out.Choices) == 0 {
		return "", &translation.FailedError{Reason: "openai returned no choices"}
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
