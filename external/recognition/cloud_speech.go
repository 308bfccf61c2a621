package recognition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/honyaku/internal/recognition"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	audioChunkInterval    = 100 * time.Millisecond
	bytesPerSample        = 2
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
	SampleRateHertz int
	Audio           AudioSource
}

type CloudSpeechRecognizer struct {
	projectID       string
	credentialsJSON string
	location        string
	model           string
	sampleRateHertz int
	audio           AudioSource
}

func NewCloudSpeechRecognizer(cfg CloudSpeechConfig) recognition.Recognizer {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "global"
	}
	return &CloudSpeechRecognizer{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		location:        location,
		model:           strings.TrimSpace(cfg.Model),
		sampleRateHertz: cfg.SampleRateHertz,
		audio:           cfg.Audio,
	}
}

func (r *CloudSpeechRecognizer) Recognize(ctx context.Context, cfg recognition.Config, sink recognition.Sink) (recognition.Capture, error) {
	slog.Info("starting cloud speech recognition", "locale", cfg.Locale, "location", r.location, "model", r.model)

	audio, err := r.audio.Open()
	if err != nil {
		return nil, fmt.Errorf("open audio source: %w", err)
	}

	detect := &credentials.DetectOptions{
		Scopes: []string{"https://www.googleapis.com/auth/cloud-platform"},
	}
	if r.credentialsJSON != "" {
		detect.CredentialsJSON = []byte(r.credentialsJSON)
	}
	creds, err := credentials.DetectDefault(detect)
	if err != nil {
		_ = audio.Close()
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if r.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", r.location, speechAPIEndpointPort)))
	}

	ctx, cancel := context.WithCancel(ctx)
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		cancel()
		_ = audio.Close()
		return nil, err
	}

	c := &capture{
		recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", r.projectID, r.location),
		cfg:        cfg,
		model:      r.model,
		sampleRate: r.sampleRateHertz,
		sink:       sink,
		audio:      audio,
		ctx:        ctx,
		cancel:     cancel,
		client:     client,
	}
	stream, err := c.openStream()
	if err != nil {
		cancel()
		_ = audio.Close()
		_ = client.Close()
		return nil, err
	}
	c.stream = stream
	slog.Info("cloud speech stream initialized", "locale", cfg.Locale)

	c.startReceiver(stream)
	go c.pumpAudio()
	return c, nil
}

type capture struct {
	recognizer string
	cfg        recognition.Config
	model      string
	sampleRate int
	sink       recognition.Sink
	audio      io.ReadCloser
	ctx        context.Context
	cancel     context.CancelFunc
	client     *speech.Client

	mu        sync.Mutex
	stream    speechpb.Speech_StreamingRecognizeClient
	audioDone bool
	stopped   bool
}

func (c *capture) openStream() (speechpb.Speech_StreamingRecognizeClient, error) {
	stream, err := c.client.StreamingRecognize(c.ctx)
	if err != nil {
		return nil, err
	}
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		Recognizer: c.recognizer,
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         c.model,
					LanguageCodes: []string{c.cfg.Locale},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(c.sampleRate),
							AudioChannelCount: 1,
						},
					},
					Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{InterimResults: c.cfg.InterimResults},
			},
		},
	})
	if err != nil {
		_ = stream.CloseSend()
		return nil, err
	}
	return stream, nil
}

func (c *capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	c.cancel()
	_ = c.audio.Close()
	return c.client.Close()
}

func (c *capture) pumpAudio() {
	chunk := make([]byte, c.sampleRate*bytesPerSample*int(audioChunkInterval/time.Millisecond)/1000)
	ticker := time.NewTicker(audioChunkInterval)
	defer ticker.Stop()
	var sentChunks int64
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := io.ReadFull(c.audio, chunk)
		if n > 0 {
			if sendErr := c.send(chunk[:n]); sendErr != nil {
				if c.ctx.Err() == nil {
					c.sink.OnError(sendErr)
				}
				return
			}
			sentChunks++
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				slog.Info("audio source exhausted", "sent_chunks", sentChunks)
				c.finishAudio()
				return
			}
			if c.ctx.Err() == nil {
				c.sink.OnError(fmt.Errorf("read audio source: %w", err))
			}
			return
		}
	}
}

func (c *capture) send(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{
			Audio: pcm,
		},
	}
	if err := c.stream.Send(req); err != nil {
		if !isReconnectableStreamError(err) {
			return err
		}
		slog.Warn("recognition send failed with reconnectable error; reconnecting", "error", err)
		if err := c.reconnectLocked(); err != nil {
			return fmt.Errorf("reconnect stream: %w", err)
		}
		return c.stream.Send(req)
	}
	return nil
}

func (c *capture) finishAudio() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audioDone = true
	if c.stream != nil {
		_ = c.stream.CloseSend()
	}
}

func (c *capture) reconnectLocked() error {
	_ = c.stream.CloseSend()
	next, err := c.openStream()
	if err != nil {
		slog.Error("failed to reconnect recognition stream", "error", err)
		return err
	}
	c.stream = next
	c.startReceiver(next)
	slog.Info("recognition stream reconnected")
	return nil
}

func (c *capture) startReceiver(stream speechpb.Speech_StreamingRecognizeClient) {
	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				c.handleReceiveError(err)
				return
			}
			batch := resultsFromResponse(resp)
			if len(batch) == 0 {
				continue
			}
			c.sink.OnResults(batch)
		}
	}()
}

func (c *capture) handleReceiveError(err error) {
	c.mu.Lock()
	audioDone := c.audioDone
	stopped := c.stopped
	c.mu.Unlock()

	if stopped || c.ctx.Err() != nil || status.Code(err) == codes.Canceled {
		slog.Info("recognition receive loop stopped", "reason", err.Error())
		return
	}
	if audioDone {
		// Nothing is left to send, so no later send can reconnect the stream.
		slog.Info("recognition stream ended after audio source was exhausted", "reason", err.Error())
		c.sink.OnEnd()
		return
	}
	if isReconnectableStreamError(err) {
		slog.Warn("recognition receive loop ended with reconnectable abort", "error", err)
		return
	}
	c.sink.OnError(err)
}

func resultsFromResponse(resp *speechpb.StreamingRecognizeResponse) []recognition.Result {
	results := resp.GetResults()
	batch := make([]recognition.Result, 0, len(results))
	for _, result := range results {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		batch = append(batch, recognition.Result{
			Text:    result.GetAlternatives()[0].GetTranscript(),
			IsFinal: result.GetIsFinal(),
		})
	}
	return batch
}

func isReconnectableStreamError(err error) bool {
	if errors.Is(err, io.EOF) || strings.Contains(strings.ToLower(err.Error()), "eof") {
		return true
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
