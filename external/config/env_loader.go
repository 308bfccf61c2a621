package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/honyaku/internal/config"
	"github.com/joho/godotenv"
)

type serverEnvConfig struct {
	Env                string   `env:"ENV" envDefault:"production"`
	HTTPAddr           string   `env:"HTTP_ADDR" envDefault:":5000"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	Provider           string   `env:"TRANSLATION_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey       string   `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string   `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel        string   `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAITemperature  float64  `env:"OPENAI_TEMPERATURE" envDefault:"0.3"`
	ProxyUpstreamURL   string   `env:"PROXY_UPSTREAM_URL"`
	ProxyBearerToken   string   `env:"PROXY_BEARER_TOKEN"`
	LogFormat          string   `env:"LOG_FORMAT"`
}

type translatorEnvConfig struct {
	Env                        string `env:"ENV" envDefault:"production"`
	TranslateAPIURL            string `env:"TRANSLATE_API_URL" envDefault:"http://localhost:5000/api/translate"`
	TranslateAPIToken          string `env:"TRANSLATE_API_TOKEN"`
	TranslateTimeoutSec        int    `env:"TRANSLATE_TIMEOUT_SEC" envDefault:"0"`
	SourceLanguage             string `env:"SOURCE_LANGUAGE" envDefault:"en"`
	TargetLanguage             string `env:"TARGET_LANGUAGE" envDefault:"es"`
	AutoRestart                bool   `env:"AUTO_RESTART" envDefault:"false"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`
	AudioSource                string `env:"AUDIO_SOURCE"`
	AudioSampleRate            int    `env:"AUDIO_SAMPLE_RATE" envDefault:"16000"`
	EspeakBinary               string `env:"ESPEAK_BINARY" envDefault:"espeak-ng"`
	LogFormat                  string `env:"LOG_FORMAT"`
}

// LoadDotEnv reads the given .env files into the process environment. Missing files are skipped
// and variables that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		slog.Debug("loaded dotenv file", "path", p)
	}
	return nil
}

func LoadServer() (*internalconfig.ServerConfig, error) {
	var raw serverEnvConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.ServerConfig{
		Env:                raw.Env,
		HTTPAddr:           raw.HTTPAddr,
		CORSAllowedOrigins: raw.CORSAllowedOrigins,
		Provider:           raw.Provider,
		OpenAIAPIKey:       raw.OpenAIAPIKey,
		OpenAIBaseURL:      raw.OpenAIBaseURL,
		OpenAIModel:        raw.OpenAIModel,
		OpenAITemperature:  raw.OpenAITemperature,
		ProxyUpstreamURL:   raw.ProxyUpstreamURL,
		ProxyBearerToken:   raw.ProxyBearerToken,
		LogFormat:          raw.LogFormat,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadTranslator() (*internalconfig.TranslatorConfig, error) {
	var raw translatorEnvConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.TranslatorConfig{
		Env:                        raw.Env,
		TranslateAPIURL:            raw.TranslateAPIURL,
		TranslateAPIToken:          raw.TranslateAPIToken,
		TranslateTimeout:           time.Duration(raw.TranslateTimeoutSec) * time.Second,
		SourceLanguage:             raw.SourceLanguage,
		TargetLanguage:             raw.TargetLanguage,
		AutoRestart:                raw.AutoRestart,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		AudioSource:                raw.AudioSource,
		AudioSampleRate:            raw.AudioSampleRate,
		EspeakBinary:               raw.EspeakBinary,
		LogFormat:                  raw.LogFormat,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
