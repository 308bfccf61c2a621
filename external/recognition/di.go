package recognition

import (
	"log/slog"

	"github.com/foxseedlab/honyaku/internal/config"
	"github.com/foxseedlab/honyaku/internal/recognition"
	"github.com/samber/do/v2"
)

// RegisterDI provides a nil recognition.Recognizer when no audio source is configured, which the
// session controller reports as an unavailable capability.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (recognition.Recognizer, error) {
		c := do.MustInvoke[*config.TranslatorConfig](i)
		if !c.RecognitionEnabled() {
			slog.Warn("speech recognition disabled; typed input only", "reason", "AUDIO_SOURCE is empty")
			return nil, nil
		}
		return NewCloudSpeechRecognizer(CloudSpeechConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Location:        c.GoogleCloudSpeechLocation,
			Model:           c.GoogleCloudSpeechModel,
			SampleRateHertz: c.AudioSampleRate,
			Audio:           NewAudioSource(c.AudioSource),
		}), nil
	})
}
