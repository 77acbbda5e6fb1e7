// Package ai defines the capability contracts consumed by the processing
// pipeline. Concrete providers live in subpackages and are swappable at
// construction time.
package ai

import (
	"context"
	"errors"

	"github.com/mindspeak/mindspeak-backend/internal/model"
)

var (
	// ErrTranscription wraps failures of the speech-to-text capability:
	// missing file, oversized file, no speech detected, provider error.
	ErrTranscription = errors.New("transcription failed")
	// ErrProcessing wraps failures of the restructuring capability:
	// empty transcript or provider error.
	ErrProcessing = errors.New("processing failed")
)

// TranscriptionResult is the output of one speech-to-text call.
type TranscriptionResult struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Language   *string  `json:"language,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
}

// JournalAnalysis is the structured result of restructuring a transcript.
type JournalAnalysis struct {
	Title            string          `json:"title"`
	FormattedContent string          `json:"formatted_content"`
	MoodScore        int             `json:"mood_score"`
	Emotions         []model.Emotion `json:"emotions"`
	Insights         []string        `json:"insights"`
}

// UserContext carries per-user preferences into the restructuring prompt.
type UserContext struct {
	CustomInstructions string
	Goals              []model.Goal
}

// Transcriber converts an audio file into text plus metadata.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error)
}

// Processor restructures a raw transcript into a JournalAnalysis.
type Processor interface {
	ProcessTranscript(ctx context.Context, transcript string, uc UserContext) (*JournalAnalysis, error)
}
