package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mindspeak/mindspeak-backend/internal/ai"
	"github.com/mindspeak/mindspeak-backend/internal/model"
	"github.com/mindspeak/mindspeak-backend/internal/pipeline"
	"github.com/mindspeak/mindspeak-backend/internal/store"
	"github.com/mindspeak/mindspeak-backend/internal/store/sqlite"
	"github.com/mindspeak/mindspeak-backend/internal/uploads"
	"github.com/mindspeak/mindspeak-backend/internal/usage"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(context.Context, string) (*ai.TranscriptionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.TranscriptionResult{Text: s.text, Confidence: 0.85}, nil
}

type stubProcessor struct {
	analysis *ai.JournalAnalysis
	err      error
}

func (s *stubProcessor) ProcessTranscript(context.Context, string, ai.UserContext) (*ai.JournalAnalysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.analysis, nil
}

type fixture struct {
	store   store.Store
	entries *EntryService
	users   *UserService
	files   *uploads.Dir
	userID  string
}

func newFixture(t *testing.T, tr ai.Transcriber, pr ai.Processor) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(ctx, db))
	st := sqlite.New(db)

	files, err := uploads.New(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	tracker := usage.NewTracker(st.Usage())
	pipe := pipeline.New(tr, pr, zerolog.Nop())
	entries := NewEntryService(st, pipe, tracker, files, zerolog.Nop())
	users := NewUserService(st, tracker)

	u, err := users.CreateUser(ctx, &model.User{Email: "journaler@example.com", TimeZone: "UTC"})
	require.NoError(t, err)

	return &fixture{store: st, entries: entries, users: users, files: files, userID: u.UserID}
}

func defaultAnalysis() *ai.JournalAnalysis {
	return &ai.JournalAnalysis{
		Title:            "Morning Pages",
		FormattedContent: "Wrote about the morning.",
		MoodScore:        7,
		Emotions:         []model.Emotion{{Name: "calm", Confidence: 0.8}},
		Insights:         []string{"mornings suit you"},
	}
}

func (f *fixture) uploadAudio(t *testing.T) *model.JournalEntry {
	t.Helper()
	name, _, err := f.files.SaveAudio(f.userID, "clip.webm", strings.NewReader("audio"))
	require.NoError(t, err)
	entry, err := f.entries.CreateAudioEntry(context.Background(), f.userID, name)
	require.NoError(t, err)
	return entry
}

func drain(ch <-chan pipeline.Event) []pipeline.Event {
	var evs []pipeline.Event
	for ev := range ch {
		evs = append(evs, ev)
	}
	return evs
}

func TestCreateAudioEntryConsumesQuota(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	for i := 0; i < usage.FreeTierLimit; i++ {
		f.uploadAudio(t)
	}
	name, _, err := f.files.SaveAudio(f.userID, "clip.webm", strings.NewReader("audio"))
	require.NoError(t, err)
	_, err = f.entries.CreateAudioEntry(ctx, f.userID, name)
	require.ErrorIs(t, err, model.ErrQuotaExceeded)

	status, err := f.users.UsageStatus(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, usage.FreeTierLimit, status.Used)
	require.False(t, status.CanCreate)
}

func TestProcessEntryPersistsAnalysisAndStreak(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "walked by the river"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	entry := f.uploadAudio(t)
	require.Equal(t, model.StatusPending, entry.ProcessingStatus)

	ch, err := f.entries.ProcessEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)
	evs := drain(ch)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	require.Equal(t, pipeline.StageComplete, last.Status)

	saved, err := f.entries.GetEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, saved.ProcessingStatus)
	require.Equal(t, "Morning Pages", saved.Title)
	require.Equal(t, "walked by the river", saved.RawTranscript)
	require.NotNil(t, saved.MoodScore)
	require.Equal(t, 7, *saved.MoodScore)

	prefs, err := f.users.GetPreferences(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, 1, prefs.CurrentStreak)
	require.Equal(t, 1, prefs.LongestStreak)
	require.NotNil(t, prefs.LastEntryDate)
}

func TestProcessEntryFailureMarksErrorAndKeepsQuota(t *testing.T) {
	f := newFixture(t,
		&stubTranscriber{err: fmt.Errorf("%w: no speech detected in audio", ai.ErrTranscription)},
		&stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	entry := f.uploadAudio(t)
	ch, err := f.entries.ProcessEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)
	evs := drain(ch)
	require.Equal(t, pipeline.StageError, evs[len(evs)-1].Status)

	saved, err := f.entries.GetEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)
	require.Equal(t, model.StatusError, saved.ProcessingStatus)

	// the failed run still counts against the month
	status, err := f.users.UsageStatus(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, 1, status.Used)
}

func TestProcessEntryRejectsCompletedEntry(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	entry := f.uploadAudio(t)
	ch, err := f.entries.ProcessEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)
	drain(ch)

	_, err = f.entries.ProcessEntry(ctx, f.userID, entry.EntryID)
	require.ErrorIs(t, err, model.ErrEntryBusy)
}

func TestProcessEntryRetryAfterError(t *testing.T) {
	trans := &stubTranscriber{err: fmt.Errorf("%w: transient", ai.ErrTranscription)}
	f := newFixture(t, trans, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	entry := f.uploadAudio(t)
	ch, err := f.entries.ProcessEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)
	drain(ch)

	trans.err = nil
	trans.text = "second try"
	ch, err = f.entries.ProcessEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)
	evs := drain(ch)
	require.Equal(t, pipeline.StageComplete, evs[len(evs)-1].Status)

	saved, err := f.entries.GetEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, saved.ProcessingStatus)
	require.Equal(t, "second try", saved.RawTranscript)
}

func TestCreateTextEntry(t *testing.T) {
	f := newFixture(t, &stubTranscriber{}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	entry, err := f.entries.CreateTextEntry(ctx, f.userID, "typed my thoughts today")
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, entry.ProcessingStatus)
	require.Equal(t, "Morning Pages", entry.Title)
	require.Equal(t, "typed my thoughts today", entry.RawTranscript)

	status, err := f.users.UsageStatus(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, 1, status.Used)
}

func TestTrashLifecycle(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	entry := f.uploadAudio(t)
	require.NoError(t, f.entries.DeleteEntry(ctx, f.userID, entry.EntryID))

	_, err := f.entries.GetEntry(ctx, f.userID, entry.EntryID)
	require.ErrorIs(t, err, model.ErrNotFound)

	trash, err := f.entries.ListTrash(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, trash, 1)

	require.NoError(t, f.entries.RestoreEntry(ctx, f.userID, entry.EntryID))
	_, err = f.entries.GetEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)

	require.NoError(t, f.entries.DeleteEntry(ctx, f.userID, entry.EntryID))
	removed, err := f.entries.EmptyTrash(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	trash, err = f.entries.ListTrash(ctx, f.userID)
	require.NoError(t, err)
	require.Empty(t, trash)
}

func TestStatsAndRecomputeStreak(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	entry := f.uploadAudio(t)
	ch, err := f.entries.ProcessEntry(ctx, f.userID, entry.EntryID)
	require.NoError(t, err)
	drain(ch)

	stats, err := f.entries.Stats(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalEntries)
	require.Equal(t, 1, stats.ThisMonth)
	require.NotNil(t, stats.MoodAverage)
	require.Equal(t, 1, stats.CurrentStreak)

	// deleting the only entry leaves a stale streak; recompute clears it
	require.NoError(t, f.entries.DeleteEntry(ctx, f.userID, entry.EntryID))
	prefs, err := f.entries.RecomputeStreak(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, 0, prefs.CurrentStreak)
	require.Equal(t, 0, prefs.LongestStreak)
	require.Nil(t, prefs.LastEntryDate)
}

func TestCreateAudioEntryUsesLocalCalendarDate(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	u, err := f.users.CreateUser(ctx, &model.User{Email: "east@example.com", TimeZone: "Pacific/Kiritimati"})
	require.NoError(t, err)

	// 22:00 UTC is already the next calendar day at UTC+14
	f.entries.now = func() time.Time {
		return time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	}

	name, _, err := f.files.SaveAudio(u.UserID, "clip.webm", strings.NewReader("audio"))
	require.NoError(t, err)
	entry, err := f.entries.CreateAudioEntry(ctx, u.UserID, name)
	require.NoError(t, err)
	require.Equal(t, "2026-03-02", entry.EntryDate.Format("2006-01-02"))
}
