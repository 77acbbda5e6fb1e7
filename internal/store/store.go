package store

import (
	"context"
	"time"

	"github.com/mindspeak/mindspeak-backend/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
// Lookups for missing rows return model.ErrNotFound.
type Store interface {
	Users() Users
	Entries() Entries
	Preferences() Preferences
	Usage() Usage
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) (*model.User, error)
	TouchLastActive(ctx context.Context, userID string, at time.Time) error
	Delete(ctx context.Context, userID string) error
}

// Analysis is the processed payload written back to an entry when the
// pipeline completes.
type Analysis struct {
	RawTranscript    string
	Title            string
	FormattedContent string
	MoodScore        int
	Emotions         []model.Emotion
	Insights         []string
}

type Entries interface {
	Create(ctx context.Context, e *model.JournalEntry) (*model.JournalEntry, error)
	Get(ctx context.Context, userID, entryID string) (*model.JournalEntry, error)
	List(ctx context.Context, req model.ListEntriesRequest) ([]*model.JournalEntry, error)

	// ClaimForProcessing flips a pending or errored entry to
	// processing. Returns model.ErrEntryBusy when the entry is in any
	// other state, so a second concurrent claim loses and a failed run
	// can be retried.
	ClaimForProcessing(ctx context.Context, userID, entryID string) error
	ApplyAnalysis(ctx context.Context, userID, entryID string, a Analysis) (*model.JournalEntry, error)
	MarkError(ctx context.Context, userID, entryID string) error

	UpdateContent(ctx context.Context, userID, entryID, title, formattedContent string) (*model.JournalEntry, error)

	SoftDelete(ctx context.Context, userID, entryID string) error
	Restore(ctx context.Context, userID, entryID string) error
	ListTrash(ctx context.Context, userID string) ([]*model.JournalEntry, error)
	HardDelete(ctx context.Context, userID, entryID string) error

	// Stats aggregates non-deleted entries; monthPrefix is YYYY-MM.
	Stats(ctx context.Context, userID, monthPrefix string) (*model.EntryStats, error)
	// CompletedDatesAsc returns the distinct entry dates of completed,
	// non-deleted entries in ascending order, for streak recomputation.
	CompletedDatesAsc(ctx context.Context, userID string) ([]string, error)
}

type Preferences interface {
	Get(ctx context.Context, userID string) (*model.Preferences, error)
	Put(ctx context.Context, p *model.Preferences) (*model.Preferences, error)
}

type Usage interface {
	Get(ctx context.Context, userID, month string) (*model.UsageRecord, error)
	// Increment upserts the month row atomically and returns the new count.
	Increment(ctx context.Context, userID, month string, at time.Time) (int, error)
}
