package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/foxseedlab/honyaku/internal/language"
)

const (
	ProviderOpenAI = "openai"
	ProviderProxy  = "proxy"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

type ServerConfig struct {
	Env                string
	HTTPAddr           string
	CORSAllowedOrigins []string
	Provider           string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAITemperature  float64
	ProxyUpstreamURL   string
	ProxyBearerToken   string
	LogFormat          string
}

func (c *ServerConfig) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	switch c.Provider {
	case ProviderOpenAI:
		for _, req := range []requiredEnvField{
			{name: "OPENAI_API_KEY", value: c.OpenAIAPIKey},
			{name: "OPENAI_MODEL", value: c.OpenAIModel},
		} {
			if req.value == "" {
				return fmt.Errorf("%s is required when TRANSLATION_PROVIDER=openai", req.name)
			}
		}
		if err := validateURL("OPENAI_BASE_URL", c.OpenAIBaseURL); err != nil {
			return err
		}
		if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
			return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2, got %g", c.OpenAITemperature)
		}
	case ProviderProxy:
		if err := validateURL("PROXY_UPSTREAM_URL", c.ProxyUpstreamURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("TRANSLATION_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderProxy, c.Provider)
	}
	return validateLogFormat(c.LogFormat)
}

func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

type TranslatorConfig struct {
	Env                        string
	TranslateAPIURL            string
	TranslateAPIToken          string
	TranslateTimeout           time.Duration
	SourceLanguage             string
	TargetLanguage             string
	AutoRestart                bool
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	AudioSource                string
	AudioSampleRate            int
	EspeakBinary               string
	LogFormat                  string
}

func (c *TranslatorConfig) Validate() error {
	if err := validateURL("TRANSLATE_API_URL", c.TranslateAPIURL); err != nil {
		return err
	}
	if c.TranslateTimeout < 0 {
		return fmt.Errorf("TRANSLATE_TIMEOUT_SEC must not be negative, got %s", c.TranslateTimeout)
	}
	if _, err := language.Resolve(c.SourceLanguage); err != nil {
		return fmt.Errorf("SOURCE_LANGUAGE is invalid: %w", err)
	}
	if _, err := language.Resolve(c.TargetLanguage); err != nil {
		return fmt.Errorf("TARGET_LANGUAGE is invalid: %w", err)
	}
	if c.AudioSource == "-" {
		return fmt.Errorf("AUDIO_SOURCE cannot be stdin because the console reads commands from it; use a file or named pipe")
	}
	if c.RecognitionEnabled() {
		for _, req := range c.requiredRecognitionFields() {
			if req.value == "" {
				return fmt.Errorf("%s is required when AUDIO_SOURCE is set", req.name)
			}
		}
		if c.AudioSampleRate <= 0 {
			return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
		}
	}
	return validateLogFormat(c.LogFormat)
}

// RecognitionEnabled reports whether an audio source is configured. Without one the translator
// runs on typed input only.
func (c *TranslatorConfig) RecognitionEnabled() bool {
	return c.AudioSource != ""
}

func (c *TranslatorConfig) IsDevelopment() bool {
	return c.Env == "development"
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *TranslatorConfig) requiredRecognitionFields() []requiredEnvField {
	return []requiredEnvField{
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_SPEECH_LOCATION", value: c.GoogleCloudSpeechLocation},
		{name: "GOOGLE_CLOUD_SPEECH_MODEL", value: c.GoogleCloudSpeechModel},
	}
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
	}
	return nil
}

func validateLogFormat(format string) error {
	switch format {
	case "", LogFormatJSON, LogFormatConsole:
		return nil
	}
	return fmt.Errorf("LOG_FORMAT must be %q or %q, got %q", LogFormatJSON, LogFormatConsole, format)
}
