// Package pipeline orchestrates the transcribe-then-restructure flow and
// streams progress events to the caller.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mindspeak/mindspeak-backend/internal/ai"
	"github.com/mindspeak/mindspeak-backend/internal/model"
)

// Stage names carried on progress events.
const (
	StageTranscribing  = "transcribing"
	StageRestructuring = "restructuring"
	StageAnalyzing     = "analyzing"
	StageComplete      = "complete"
	StageError         = "error"
)

// Transcription is the metadata attached to the second transcribing event.
type Transcription struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Language   *string  `json:"language,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
}

// Result is the payload of the terminal complete event.
type Result struct {
	RawTranscript           string          `json:"raw_transcript"`
	Title                   string          `json:"title"`
	FormattedContent        string          `json:"formatted_content"`
	MoodScore               int             `json:"mood_score"`
	Emotions                []model.Emotion `json:"emotions"`
	Insights                []string        `json:"insights"`
	TranscriptionConfidence float64         `json:"transcription_confidence"`
}

// Event is one progress update. Exactly one terminal event (complete or
// error) ends every stream.
type Event struct {
	Status        string         `json:"status"`
	Progress      int            `json:"progress"`
	Message       string         `json:"message"`
	Transcription *Transcription `json:"transcription,omitempty"`
	Result        *Result        `json:"result,omitempty"`
	Err           string         `json:"error,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Status == StageComplete || e.Status == StageError
}

// Pipeline runs audio entries through transcription and restructuring.
type Pipeline struct {
	transcriber ai.Transcriber
	processor   ai.Processor
	log         zerolog.Logger
}

func New(transcriber ai.Transcriber, processor ai.Processor, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		processor:   processor,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// ProcessAudio starts the pipeline and returns a channel of progress
// events. The channel is closed after the terminal event; the caller
// must drain it. Cancelling ctx aborts the run with an error event.
func (p *Pipeline) ProcessAudio(ctx context.Context, audioPath string, uc ai.UserContext) <-chan Event {
	events := make(chan Event, 1)
	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				p.log.Error().Interface("panic", r).Msg("pipeline panicked")
				emit(ctx, events, errorEvent(fmt.Errorf("internal error: %v", r)))
			}
		}()
		p.run(ctx, events, audioPath, uc)
	}()
	return events
}

func (p *Pipeline) run(ctx context.Context, events chan<- Event, audioPath string, uc ai.UserContext) {
	if !emit(ctx, events, Event{
		Status:   StageTranscribing,
		Progress: 10,
		Message:  "Converting speech to text...",
	}) {
		return
	}

	tr, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		p.log.Error().Err(err).Str("file", audioPath).Msg("transcription failed")
		emit(ctx, events, errorEvent(err))
		return
	}

	if !emit(ctx, events, Event{
		Status:   StageTranscribing,
		Progress: 25,
		Message:  "Transcription complete",
		Transcription: &Transcription{
			Text:       tr.Text,
			Confidence: tr.Confidence,
			Language:   tr.Language,
			Duration:   tr.Duration,
		},
	}) {
		return
	}

	if !emit(ctx, events, Event{
		Status:   StageRestructuring,
		Progress: 40,
		Message:  "Analyzing and restructuring content...",
	}) {
		return
	}

	analysis, err := p.processor.ProcessTranscript(ctx, tr.Text, uc)
	if err != nil {
		p.log.Error().Err(err).Msg("restructuring failed")
		emit(ctx, events, errorEvent(err))
		return
	}

	if !emit(ctx, events, Event{
		Status:   StageAnalyzing,
		Progress: 75,
		Message:  "Generating insights and mood analysis...",
	}) {
		return
	}

	emit(ctx, events, Event{
		Status:   StageComplete,
		Progress: 100,
		Message:  "Processing complete!",
		Result: &Result{
			RawTranscript:           tr.Text,
			Title:                   analysis.Title,
			FormattedContent:        analysis.FormattedContent,
			MoodScore:               analysis.MoodScore,
			Emotions:                analysis.Emotions,
			Insights:                analysis.Insights,
			TranscriptionConfidence: tr.Confidence,
		},
	})
	p.log.Info().Msg("pipeline completed")
}

// ProcessText runs the restructuring stage only, for typed entries.
func (p *Pipeline) ProcessText(ctx context.Context, text string, uc ai.UserContext) (*Result, error) {
	analysis, err := p.processor.ProcessTranscript(ctx, text, uc)
	if err != nil {
		return nil, err
	}
	return &Result{
		RawTranscript:    text,
		Title:            analysis.Title,
		FormattedContent: analysis.FormattedContent,
		MoodScore:        analysis.MoodScore,
		Emotions:         analysis.Emotions,
		Insights:         analysis.Insights,
	}, nil
}

func errorEvent(err error) Event {
	return Event{
		Status:   StageError,
		Progress: 0,
		Message:  "Processing failed: " + err.Error(),
		Err:      err.Error(),
	}
}

// emit delivers ev unless the context is already gone. Returns false
// when the run should stop.
func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
