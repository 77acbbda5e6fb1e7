package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mindspeak/mindspeak-backend/internal/ai"
	"github.com/mindspeak/mindspeak-backend/internal/model"
)

type fakeTranscriber struct {
	result *ai.TranscriptionResult
	err    error
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (*ai.TranscriptionResult, error) {
	return f.result, f.err
}

type fakeProcessor struct {
	analysis *ai.JournalAnalysis
	err      error
	panics   bool
}

func (f *fakeProcessor) ProcessTranscript(context.Context, string, ai.UserContext) (*ai.JournalAnalysis, error) {
	if f.panics {
		panic("processor blew up")
	}
	return f.analysis, f.err
}

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var evs []Event
	for ev := range ch {
		evs = append(evs, ev)
	}
	return evs
}

func testPipeline(tr ai.Transcriber, pr ai.Processor) *Pipeline {
	return New(tr, pr, zerolog.Nop())
}

func TestProcessAudioHappyPath(t *testing.T) {
	tr := &fakeTranscriber{result: &ai.TranscriptionResult{Text: "today was good", Confidence: 0.85}}
	pr := &fakeProcessor{analysis: &ai.JournalAnalysis{
		Title:            "A Good Day",
		FormattedContent: "Today was good.",
		MoodScore:        8,
		Emotions:         []model.Emotion{{Name: "content", Confidence: 0.9}},
		Insights:         []string{"keep it up"},
	}}

	evs := collect(t, testPipeline(tr, pr).ProcessAudio(context.Background(), "a.wav", ai.UserContext{}))
	require.Len(t, evs, 5)

	require.Equal(t, StageTranscribing, evs[0].Status)
	require.Equal(t, 10, evs[0].Progress)

	require.Equal(t, StageTranscribing, evs[1].Status)
	require.Equal(t, 25, evs[1].Progress)
	require.NotNil(t, evs[1].Transcription)
	require.Equal(t, "today was good", evs[1].Transcription.Text)

	require.Equal(t, StageRestructuring, evs[2].Status)
	require.Equal(t, 40, evs[2].Progress)

	require.Equal(t, StageAnalyzing, evs[3].Status)
	require.Equal(t, 75, evs[3].Progress)

	last := evs[4]
	require.Equal(t, StageComplete, last.Status)
	require.Equal(t, 100, last.Progress)
	require.True(t, last.Terminal())
	require.NotNil(t, last.Result)
	require.Equal(t, "A Good Day", last.Result.Title)
	require.Equal(t, "today was good", last.Result.RawTranscript)
	require.InDelta(t, 0.85, last.Result.TranscriptionConfidence, 1e-9)
}

func TestProcessAudioTranscriptionFailure(t *testing.T) {
	tr := &fakeTranscriber{err: fmt.Errorf("%w: no speech detected", ai.ErrTranscription)}
	pr := &fakeProcessor{}

	evs := collect(t, testPipeline(tr, pr).ProcessAudio(context.Background(), "a.wav", ai.UserContext{}))
	require.Len(t, evs, 2)
	last := evs[1]
	require.Equal(t, StageError, last.Status)
	require.Equal(t, 0, last.Progress)
	require.Contains(t, last.Message, "Processing failed")
	require.Contains(t, last.Err, "no speech detected")
	require.True(t, last.Terminal())
}

func TestProcessAudioProcessorFailure(t *testing.T) {
	tr := &fakeTranscriber{result: &ai.TranscriptionResult{Text: "hello", Confidence: 0.75}}
	pr := &fakeProcessor{err: fmt.Errorf("%w: api status 500", ai.ErrProcessing)}

	evs := collect(t, testPipeline(tr, pr).ProcessAudio(context.Background(), "a.wav", ai.UserContext{}))
	require.Equal(t, StageError, evs[len(evs)-1].Status)
	// progress events before the failure still arrived
	require.Equal(t, 40, evs[len(evs)-2].Progress)
}

func TestProcessAudioPanicBecomesErrorEvent(t *testing.T) {
	tr := &fakeTranscriber{result: &ai.TranscriptionResult{Text: "hello", Confidence: 0.75}}
	pr := &fakeProcessor{panics: true}

	evs := collect(t, testPipeline(tr, pr).ProcessAudio(context.Background(), "a.wav", ai.UserContext{}))
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	require.Equal(t, StageError, last.Status)
	require.Contains(t, last.Err, "internal error")
}

func TestProcessAudioExactlyOneTerminalEvent(t *testing.T) {
	tr := &fakeTranscriber{result: &ai.TranscriptionResult{Text: "hi", Confidence: 0.5}}
	pr := &fakeProcessor{analysis: &ai.JournalAnalysis{Title: "t", FormattedContent: "c", MoodScore: 5}}

	evs := collect(t, testPipeline(tr, pr).ProcessAudio(context.Background(), "a.wav", ai.UserContext{}))
	terminals := 0
	for i, ev := range evs {
		if ev.Terminal() {
			terminals++
			require.Equal(t, len(evs)-1, i, "terminal event must be last")
		}
	}
	require.Equal(t, 1, terminals)
}

func TestProcessAudioContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &fakeTranscriber{err: errors.New("should not matter")}
	ch := testPipeline(tr, &fakeProcessor{}).ProcessAudio(ctx, "a.wav", ai.UserContext{})
	// stream must still end, even with nobody reading promptly
	for range ch {
	}
}

func TestProcessText(t *testing.T) {
	pr := &fakeProcessor{analysis: &ai.JournalAnalysis{
		Title:            "Typed",
		FormattedContent: "typed content",
		MoodScore:        6,
		Insights:         []string{"i"},
	}}
	res, err := testPipeline(&fakeTranscriber{}, pr).ProcessText(context.Background(), "typed content", ai.UserContext{})
	require.NoError(t, err)
	require.Equal(t, "Typed", res.Title)
	require.Equal(t, "typed content", res.RawTranscript)
	require.Zero(t, res.TranscriptionConfidence)
}

func TestProcessTextFailure(t *testing.T) {
	pr := &fakeProcessor{err: fmt.Errorf("%w: empty transcript provided", ai.ErrProcessing)}
	_, err := testPipeline(&fakeTranscriber{}, pr).ProcessText(context.Background(), "", ai.UserContext{})
	require.ErrorIs(t, err, ai.ErrProcessing)
}
