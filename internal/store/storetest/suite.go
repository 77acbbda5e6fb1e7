package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mindspeak/mindspeak-backend/internal/model"
	"github.com/mindspeak/mindspeak-backend/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Unique test identifiers
	userID := "u-" + uuid.New().String()
	email := userID + "@example.test"

	// Users
	u := &model.User{UserID: userID, Email: email, TimeZone: "UTC"}
	created, err := s.Users().Create(ctx, u)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.SubscriptionTier != "free" || created.Status != "ACTIVE" {
		t.Fatalf("CreateUser defaults: tier=%q status=%q", created.SubscriptionTier, created.Status)
	}
	if got, err := s.Users().Get(ctx, userID); err != nil || got == nil || got.Email != email {
		t.Fatalf("GetUser: got=%v err=%v", got, err)
	}
	if _, err := s.Users().Get(ctx, "missing-"+userID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetUser(missing): want ErrNotFound, got %v", err)
	}

	dn := "Journal Keeper"
	created.DisplayName = &dn
	created.SubscriptionTier = "premium"
	if got, err := s.Users().UpdateProfile(ctx, created); err != nil || got.DisplayName == nil || *got.DisplayName != dn || got.SubscriptionTier != "premium" {
		t.Fatalf("UpdateProfile: got=%v err=%v", got, err)
	}
	if err := s.Users().TouchLastActive(ctx, userID, time.Now()); err != nil {
		t.Fatalf("TouchLastActive: %v", err)
	}

	// Entries: create pending, claim, apply analysis
	audio := "rec-001.webm"
	e, err := s.Entries().Create(ctx, &model.JournalEntry{
		UserID:        userID,
		AudioFilename: &audio,
		EntryDate:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if e.EntryID == "" || e.ProcessingStatus != model.StatusPending {
		t.Fatalf("CreateEntry: id=%q status=%q", e.EntryID, e.ProcessingStatus)
	}

	if err := s.Entries().ClaimForProcessing(ctx, userID, e.EntryID); err != nil {
		t.Fatalf("ClaimForProcessing: %v", err)
	}
	// second claim loses
	if err := s.Entries().ClaimForProcessing(ctx, userID, e.EntryID); !errors.Is(err, model.ErrEntryBusy) {
		t.Fatalf("ClaimForProcessing(again): want ErrEntryBusy, got %v", err)
	}
	if err := s.Entries().ClaimForProcessing(ctx, userID, "missing-entry"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("ClaimForProcessing(missing): want ErrNotFound, got %v", err)
	}

	done, err := s.Entries().ApplyAnalysis(ctx, userID, e.EntryID, store.Analysis{
		RawTranscript:    "today I walked by the river",
		Title:            "River Walk",
		FormattedContent: "Today I walked by the river.",
		MoodScore:        7,
		Emotions:         []model.Emotion{{Name: "calm", Confidence: 0.8}},
		Insights:         []string{"walks improve your mood"},
	})
	if err != nil {
		t.Fatalf("ApplyAnalysis: %v", err)
	}
	if done.ProcessingStatus != model.StatusCompleted || done.Title != "River Walk" {
		t.Fatalf("ApplyAnalysis: status=%q title=%q", done.ProcessingStatus, done.Title)
	}
	if done.MoodScore == nil || *done.MoodScore != 7 {
		t.Fatalf("ApplyAnalysis: mood=%v", done.MoodScore)
	}
	if len(done.Emotions) != 1 || done.Emotions[0].Name != "calm" {
		t.Fatalf("ApplyAnalysis: emotions=%v", done.Emotions)
	}
	if done.LastUpdateTime == nil {
		t.Fatalf("ApplyAnalysis: last_update_time not set")
	}
	if got := done.EntryDate.Format("2006-01-02"); got != "2026-03-10" {
		t.Fatalf("ApplyAnalysis: entry_date=%q", got)
	}

	// MarkError on a second entry
	e2, err := s.Entries().Create(ctx, &model.JournalEntry{
		UserID:    userID,
		EntryDate: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateEntry2: %v", err)
	}
	if err := s.Entries().ClaimForProcessing(ctx, userID, e2.EntryID); err != nil {
		t.Fatalf("Claim2: %v", err)
	}
	if err := s.Entries().MarkError(ctx, userID, e2.EntryID); err != nil {
		t.Fatalf("MarkError: %v", err)
	}
	if got, _ := s.Entries().Get(ctx, userID, e2.EntryID); got.ProcessingStatus != model.StatusError {
		t.Fatalf("MarkError: status=%q", got.ProcessingStatus)
	}
	// errored entries can be claimed again for a retry
	if err := s.Entries().ClaimForProcessing(ctx, userID, e2.EntryID); err != nil {
		t.Fatalf("ClaimForProcessing(retry): %v", err)
	}
	if err := s.Entries().MarkError(ctx, userID, e2.EntryID); err != nil {
		t.Fatalf("MarkError(retry): %v", err)
	}

	// entry_date keeps the calendar date of the value's own zone; a
	// morning east of UTC must not store the previous UTC day
	plus14 := time.FixedZone("+14", 14*3600)
	e3, err := s.Entries().Create(ctx, &model.JournalEntry{
		UserID:    userID,
		EntryDate: time.Date(2026, 3, 12, 8, 0, 0, 0, plus14),
	})
	if err != nil {
		t.Fatalf("CreateEntry3: %v", err)
	}
	if got := e3.EntryDate.Format("2006-01-02"); got != "2026-03-12" {
		t.Fatalf("CreateEntry3: entry_date=%q, want local calendar date", got)
	}
	if err := s.Entries().SoftDelete(ctx, userID, e3.EntryID); err != nil {
		t.Fatalf("SoftDelete(e3): %v", err)
	}
	if err := s.Entries().HardDelete(ctx, userID, e3.EntryID); err != nil {
		t.Fatalf("HardDelete(e3): %v", err)
	}

	// List newest first
	lst, err := s.Entries().List(ctx, model.ListEntriesRequest{UserID: userID})
	if err != nil || len(lst) != 2 {
		t.Fatalf("ListEntries: n=%d err=%v", len(lst), err)
	}
	if !lst[0].CreationTime.After(lst[1].CreationTime) && !lst[0].CreationTime.Equal(lst[1].CreationTime) {
		t.Fatalf("ListEntries: not newest-first")
	}
	if lim, err := s.Entries().List(ctx, model.ListEntriesRequest{UserID: userID, Limit: 1}); err != nil || len(lim) != 1 {
		t.Fatalf("ListEntries(limit): n=%d err=%v", len(lim), err)
	}

	// UpdateContent
	upd, err := s.Entries().UpdateContent(ctx, userID, e.EntryID, "River Walk, Revised", "Edited content.")
	if err != nil || upd.Title != "River Walk, Revised" || upd.FormattedContent != "Edited content." {
		t.Fatalf("UpdateContent: got=%v err=%v", upd, err)
	}

	// Soft delete, trash, restore, hard delete
	if err := s.Entries().SoftDelete(ctx, userID, e2.EntryID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := s.Entries().Get(ctx, userID, e2.EntryID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get after SoftDelete: want ErrNotFound, got %v", err)
	}
	trash, err := s.Entries().ListTrash(ctx, userID)
	if err != nil || len(trash) != 1 || trash[0].EntryID != e2.EntryID {
		t.Fatalf("ListTrash: n=%d err=%v", len(trash), err)
	}
	if !trash[0].Deleted || trash[0].DeletionTime == nil {
		t.Fatalf("ListTrash: deleted flags not set")
	}
	if err := s.Entries().Restore(ctx, userID, e2.EntryID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := s.Entries().Get(ctx, userID, e2.EntryID); err != nil {
		t.Fatalf("Get after Restore: %v", err)
	}
	if err := s.Entries().SoftDelete(ctx, userID, e2.EntryID); err != nil {
		t.Fatalf("SoftDelete again: %v", err)
	}
	if err := s.Entries().HardDelete(ctx, userID, e2.EntryID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if trash, _ := s.Entries().ListTrash(ctx, userID); len(trash) != 0 {
		t.Fatalf("ListTrash after HardDelete: n=%d", len(trash))
	}
	// hard delete only applies to trashed entries
	if err := s.Entries().HardDelete(ctx, userID, e.EntryID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("HardDelete(live entry): want ErrNotFound, got %v", err)
	}

	// Stats
	stats, err := s.Entries().Stats(ctx, userID, "2026-03")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEntries != 1 || stats.ThisMonth != 1 {
		t.Fatalf("Stats: total=%d month=%d", stats.TotalEntries, stats.ThisMonth)
	}
	if stats.MoodAverage == nil || *stats.MoodAverage != 7 {
		t.Fatalf("Stats: moodAvg=%v", stats.MoodAverage)
	}

	// CompletedDatesAsc
	dates, err := s.Entries().CompletedDatesAsc(ctx, userID)
	if err != nil || len(dates) != 1 || dates[0] != "2026-03-10" {
		t.Fatalf("CompletedDatesAsc: %v err=%v", dates, err)
	}

	// Preferences
	if _, err := s.Preferences().Get(ctx, userID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetPreferences(none): want ErrNotFound, got %v", err)
	}
	instr := "be gentle"
	led := "2026-03-10"
	prefs, err := s.Preferences().Put(ctx, &model.Preferences{
		UserID:               userID,
		CustomAIInstructions: &instr,
		Goals:                []model.Goal{{ID: 1, Text: "exercise more", CreationTime: time.Now().UTC()}},
		ReminderEnabled:      true,
		ReminderDays:         []string{"mon", "wed"},
		CurrentStreak:        2,
		LongestStreak:        4,
		LastEntryDate:        &led,
	})
	if err != nil {
		t.Fatalf("PutPreferences: %v", err)
	}
	if prefs.Theme != "light" {
		t.Fatalf("PutPreferences: default theme=%q", prefs.Theme)
	}
	if len(prefs.Goals) != 1 || prefs.Goals[0].Text != "exercise more" {
		t.Fatalf("PutPreferences: goals=%v", prefs.Goals)
	}
	prefs.CurrentStreak = 3
	prefs.Theme = "dark"
	if got, err := s.Preferences().Put(ctx, prefs); err != nil || got.CurrentStreak != 3 || got.Theme != "dark" {
		t.Fatalf("PutPreferences(upsert): got=%v err=%v", got, err)
	}

	// Usage
	if _, err := s.Usage().Get(ctx, userID, "2026-03"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetUsage(none): want ErrNotFound, got %v", err)
	}
	if n, err := s.Usage().Increment(ctx, userID, "2026-03", time.Now()); err != nil || n != 1 {
		t.Fatalf("IncrementUsage: n=%d err=%v", n, err)
	}
	if n, err := s.Usage().Increment(ctx, userID, "2026-03", time.Now()); err != nil || n != 2 {
		t.Fatalf("IncrementUsage(2): n=%d err=%v", n, err)
	}
	rec, err := s.Usage().Get(ctx, userID, "2026-03")
	if err != nil || rec.EntryCount != 2 || rec.LastEntryAt == nil {
		t.Fatalf("GetUsage: rec=%v err=%v", rec, err)
	}
	// a new month starts from zero
	if n, err := s.Usage().Increment(ctx, userID, "2026-04", time.Now()); err != nil || n != 1 {
		t.Fatalf("IncrementUsage(new month): n=%d err=%v", n, err)
	}
}
