// Package whisper transcribes audio files through the OpenAI Whisper API.
package whisper

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/mindspeak/mindspeak-backend/internal/ai"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "whisper-1"

	// maxFileBytes is the Whisper API upload ceiling.
	maxFileBytes = 25 * 1024 * 1024
)

// SupportedFormats lists the audio containers the API accepts.
var SupportedFormats = []string{
	"flac", "m4a", "mp3", "mp4", "mpeg", "mpga",
	"oga", "ogg", "wav", "webm",
}

// Transcriber implements ai.Transcriber backed by the Whisper endpoint.
type Transcriber struct {
	client *resty.Client
	model  string
	log    zerolog.Logger
}

// New creates a Transcriber. baseURL may be empty to use the public API.
func New(apiKey, baseURL string, log zerolog.Logger) (*Transcriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("whisper: api key is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(2 * time.Minute)

	return &Transcriber{
		client: c,
		model:  defaultModel,
		log:    log.With().Str("component", "whisper").Logger(),
	}, nil
}

// verboseTranscription is the verbose_json response shape. Segments are
// only inspected for presence when estimating confidence.
type verboseTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID int `json:"id"`
	} `json:"segments"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Transcribe uploads the file and returns the recognized text. All
// failures wrap ai.ErrTranscription.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (*ai.TranscriptionResult, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: audio file not found: %s", ai.ErrTranscription, audioPath)
	}
	if info.Size() > maxFileBytes {
		return nil, fmt.Errorf("%w: audio file too large (max 25MB)", ai.ErrTranscription)
	}

	t.log.Info().Str("file", audioPath).Int64("bytes", info.Size()).Msg("starting transcription")

	var out verboseTranscription
	var apiErr apiError
	resp, err := t.client.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(map[string]string{
			"model":           t.model,
			"response_format": "verbose_json",
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/audio/transcriptions")
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ai.ErrTranscription, err)
	}
	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		if apiErr.Error.Type == "invalid_request_error" {
			return nil, fmt.Errorf("%w: invalid audio format: %s", ai.ErrTranscription, msg)
		}
		return nil, fmt.Errorf("%w: api status %d: %s", ai.ErrTranscription, resp.StatusCode(), msg)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: no speech detected in audio", ai.ErrTranscription)
	}

	res := &ai.TranscriptionResult{
		Text:       text,
		Confidence: estimateConfidence(&out),
	}
	if out.Language != "" {
		res.Language = &out.Language
	}
	if out.Duration > 0 {
		d := out.Duration
		res.Duration = &d
	}

	t.log.Info().Int("chars", len(text)).Msg("transcription completed")
	return res, nil
}

// estimateConfidence approximates a score from response detail; the API
// does not report one directly.
func estimateConfidence(r *verboseTranscription) float64 {
	if r == nil {
		return 0.5
	}
	if len(r.Segments) > 0 {
		return 0.85
	}
	return 0.75
}

// HealthPing verifies the API is reachable with the configured key.
func (t *Transcriber) HealthPing(ctx context.Context) error {
	resp, err := t.client.R().SetContext(ctx).Get("/v1/models")
	if err != nil {
		return fmt.Errorf("whisper: ping failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("whisper: ping status %d", resp.StatusCode())
	}
	return nil
}
