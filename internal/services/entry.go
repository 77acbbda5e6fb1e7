package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindspeak/mindspeak-backend/internal/ai"
	"github.com/mindspeak/mindspeak-backend/internal/model"
	"github.com/mindspeak/mindspeak-backend/internal/pipeline"
	"github.com/mindspeak/mindspeak-backend/internal/store"
	"github.com/mindspeak/mindspeak-backend/internal/streak"
	"github.com/mindspeak/mindspeak-backend/internal/uploads"
	"github.com/mindspeak/mindspeak-backend/internal/usage"
)

// pendingTitle is shown until the pipeline writes the real one.
const pendingTitle = "Processing..."

// EntryService orchestrates journal entry use cases: uploads, the AI
// processing pipeline, streak bookkeeping and the trash lifecycle.
type EntryService struct {
	store   store.Store
	pipe    *pipeline.Pipeline
	tracker *usage.Tracker
	files   *uploads.Dir
	log     zerolog.Logger
	now     func() time.Time
}

func NewEntryService(s store.Store, pipe *pipeline.Pipeline, tracker *usage.Tracker, files *uploads.Dir, log zerolog.Logger) *EntryService {
	return &EntryService{
		store:   s,
		pipe:    pipe,
		tracker: tracker,
		files:   files,
		log:     log.With().Str("service", "entries").Logger(),
		now:     time.Now,
	}
}

// CreateAudioEntry registers an uploaded recording as a pending entry.
// The quota slot is consumed here, at upload time; a later processing
// failure does not refund it.
func (s *EntryService) CreateAudioEntry(ctx context.Context, userID, audioFilename string) (*model.JournalEntry, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.CheckCanCreate(ctx, userID, user.SubscriptionTier); err != nil {
		return nil, err
	}

	entry, err := s.store.Entries().Create(ctx, &model.JournalEntry{
		UserID:           userID,
		Title:            pendingTitle,
		AudioFilename:    &audioFilename,
		ProcessingStatus: model.StatusPending,
		EntryDate:        s.entryDate(user),
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.tracker.Record(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("userId", userID).Msg("usage increment failed")
	}
	_ = s.store.Users().TouchLastActive(ctx, userID, s.now().UTC())

	s.log.Info().Str("userId", userID).Str("entryId", entry.EntryID).Msg("audio entry created")
	return entry, nil
}

// ProcessEntry runs the AI pipeline for a pending (or errored) entry
// and streams progress events. The returned channel is closed after a
// single terminal event; persistence of the outcome happens here, not
// in the caller.
func (s *EntryService) ProcessEntry(ctx context.Context, userID, entryID string) (<-chan pipeline.Event, error) {
	entry, err := s.store.Entries().Get(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.AudioFilename == nil {
		return nil, fmt.Errorf("%w: entry has no audio recording", model.ErrValidation)
	}
	if err := s.store.Entries().ClaimForProcessing(ctx, userID, entryID); err != nil {
		return nil, err
	}

	audioPath, err := s.files.AudioPath(userID, *entry.AudioFilename)
	if err != nil {
		_ = s.store.Entries().MarkError(ctx, userID, entryID)
		return nil, err
	}

	uc, err := s.userContext(ctx, userID)
	if err != nil {
		_ = s.store.Entries().MarkError(ctx, userID, entryID)
		return nil, err
	}

	out := make(chan pipeline.Event, 1)
	go func() {
		defer close(out)
		for ev := range s.pipe.ProcessAudio(ctx, audioPath, uc) {
			switch ev.Status {
			case pipeline.StageComplete:
				if err := s.finishEntry(ctx, userID, entry, ev.Result); err != nil {
					s.log.Error().Err(err).Str("entryId", entryID).Msg("persisting analysis failed")
					_ = s.store.Entries().MarkError(ctx, userID, entryID)
					ev = pipeline.Event{
						Status:  pipeline.StageError,
						Message: "Processing failed: " + err.Error(),
						Err:     err.Error(),
					}
				}
			case pipeline.StageError:
				_ = s.store.Entries().MarkError(ctx, userID, entryID)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// finishEntry writes the pipeline result back and advances the streak.
func (s *EntryService) finishEntry(ctx context.Context, userID string, entry *model.JournalEntry, res *pipeline.Result) error {
	if res == nil {
		return errors.New("processing completed but no result returned")
	}
	if _, err := s.store.Entries().ApplyAnalysis(ctx, userID, entry.EntryID, store.Analysis{
		RawTranscript:    res.RawTranscript,
		Title:            res.Title,
		FormattedContent: res.FormattedContent,
		MoodScore:        res.MoodScore,
		Emotions:         res.Emotions,
		Insights:         res.Insights,
	}); err != nil {
		return err
	}
	if err := s.advanceStreak(ctx, userID, entry.EntryDate); err != nil {
		// the entry is saved; a streak hiccup is repairable via recompute
		s.log.Error().Err(err).Str("userId", userID).Msg("streak update failed")
	}
	return nil
}

// CreateTextEntry processes a typed entry synchronously. It consumes a
// quota slot the same way an upload does.
func (s *EntryService) CreateTextEntry(ctx context.Context, userID, text string) (*model.JournalEntry, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.CheckCanCreate(ctx, userID, user.SubscriptionTier); err != nil {
		return nil, err
	}

	uc, err := s.userContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	res, err := s.pipe.ProcessText(ctx, text, uc)
	if err != nil {
		return nil, err
	}

	entry, err := s.store.Entries().Create(ctx, &model.JournalEntry{
		UserID:           userID,
		Title:            pendingTitle,
		ProcessingStatus: model.StatusPending,
		EntryDate:        s.entryDate(user),
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.tracker.Record(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("userId", userID).Msg("usage increment failed")
	}

	if err := s.store.Entries().ClaimForProcessing(ctx, userID, entry.EntryID); err != nil {
		return nil, err
	}
	if err := s.finishEntry(ctx, userID, entry, res); err != nil {
		_ = s.store.Entries().MarkError(ctx, userID, entry.EntryID)
		return nil, err
	}
	return s.store.Entries().Get(ctx, userID, entry.EntryID)
}

func (s *EntryService) GetEntry(ctx context.Context, userID, entryID string) (*model.JournalEntry, error) {
	return s.store.Entries().Get(ctx, userID, entryID)
}

func (s *EntryService) ListEntries(ctx context.Context, req model.ListEntriesRequest) ([]*model.JournalEntry, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	return s.store.Entries().List(ctx, req)
}

func (s *EntryService) UpdateEntry(ctx context.Context, userID, entryID, title, formattedContent string) (*model.JournalEntry, error) {
	if title == "" && formattedContent == "" {
		return nil, fmt.Errorf("%w: nothing to update", model.ErrValidation)
	}
	current, err := s.store.Entries().Get(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = current.Title
	}
	if formattedContent == "" {
		formattedContent = current.FormattedContent
	}
	return s.store.Entries().UpdateContent(ctx, userID, entryID, title, formattedContent)
}

func (s *EntryService) DeleteEntry(ctx context.Context, userID, entryID string) error {
	return s.store.Entries().SoftDelete(ctx, userID, entryID)
}

func (s *EntryService) RestoreEntry(ctx context.Context, userID, entryID string) error {
	return s.store.Entries().Restore(ctx, userID, entryID)
}

func (s *EntryService) ListTrash(ctx context.Context, userID string) ([]*model.JournalEntry, error) {
	return s.store.Entries().ListTrash(ctx, userID)
}

// EmptyTrash permanently removes every trashed entry, deleting stored
// recordings along the way. Returns the number of entries removed.
func (s *EntryService) EmptyTrash(ctx context.Context, userID string) (int, error) {
	trash, err := s.store.Entries().ListTrash(ctx, userID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range trash {
		if err := s.store.Entries().HardDelete(ctx, userID, e.EntryID); err != nil {
			return removed, err
		}
		if e.AudioFilename != nil {
			if err := s.files.Remove(userID, *e.AudioFilename); err != nil {
				s.log.Error().Err(err).Str("entryId", e.EntryID).Msg("removing recording failed")
			}
		}
		removed++
	}
	s.log.Info().Str("userId", userID).Int("removed", removed).Msg("trash emptied")
	return removed, nil
}

// Stats assembles the dashboard summary, joining entry aggregates with
// the current streak from preferences.
func (s *EntryService) Stats(ctx context.Context, userID string) (*model.EntryStats, error) {
	stats, err := s.store.Entries().Stats(ctx, userID, usage.MonthKey(s.now()))
	if err != nil {
		return nil, err
	}
	prefs, err := s.store.Preferences().Get(ctx, userID)
	switch {
	case err == nil:
		stats.CurrentStreak = prefs.CurrentStreak
	case errors.Is(err, model.ErrNotFound):
		// no preferences yet means no streak
	default:
		return nil, err
	}
	return stats, nil
}

// RecomputeStreak rebuilds streak counters from the full entry history,
// repairing drift caused by deletions.
func (s *EntryService) RecomputeStreak(ctx context.Context, userID string) (*model.Preferences, error) {
	dates, err := s.store.Entries().CompletedDatesAsc(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := streak.Recompute(dates)

	prefs, err := s.loadOrInitPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs.CurrentStreak = st.Current
	prefs.LongestStreak = st.Longest
	if st.LastEntryDate != "" {
		d := st.LastEntryDate
		prefs.LastEntryDate = &d
	} else {
		prefs.LastEntryDate = nil
	}
	return s.store.Preferences().Put(ctx, prefs)
}

// advanceStreak folds one completed entry into the streak counters.
func (s *EntryService) advanceStreak(ctx context.Context, userID string, entryDate time.Time) error {
	prefs, err := s.loadOrInitPreferences(ctx, userID)
	if err != nil {
		return err
	}

	st := streak.State{
		Current: prefs.CurrentStreak,
		Longest: prefs.LongestStreak,
	}
	if prefs.LastEntryDate != nil {
		st.LastEntryDate = *prefs.LastEntryDate
	}
	st = streak.Update(st, entryDate.Format(streak.DateLayout))

	prefs.CurrentStreak = st.Current
	prefs.LongestStreak = st.Longest
	if st.LastEntryDate != "" {
		d := st.LastEntryDate
		prefs.LastEntryDate = &d
	}
	_, err = s.store.Preferences().Put(ctx, prefs)
	return err
}

func (s *EntryService) loadOrInitPreferences(ctx context.Context, userID string) (*model.Preferences, error) {
	prefs, err := s.store.Preferences().Get(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return &model.Preferences{UserID: userID}, nil
	}
	return prefs, err
}

// userContext collects goals and custom instructions for the prompt.
func (s *EntryService) userContext(ctx context.Context, userID string) (ai.UserContext, error) {
	prefs, err := s.loadOrInitPreferences(ctx, userID)
	if err != nil {
		return ai.UserContext{}, err
	}
	uc := ai.UserContext{Goals: prefs.Goals}
	if prefs.CustomAIInstructions != nil {
		uc.CustomInstructions = *prefs.CustomAIInstructions
	}
	return uc, nil
}

// entryDate resolves "today" in the user's time zone, falling back to
// UTC when the zone name is unknown.
func (s *EntryService) entryDate(user *model.User) time.Time {
	loc, err := time.LoadLocation(user.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	return s.now().In(loc)
}
