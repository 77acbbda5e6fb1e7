// Package sqlite implements store.Store on an embedded SQLite database,
// used for local single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindspeak/mindspeak-backend/internal/model"
	"github.com/mindspeak/mindspeak-backend/internal/store"
)

const dateLayout = "2006-01-02"

// New constructs a SQLite-backed store over an opened database.
func New(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Users() store.Users             { return &users{db: s.db} }
func (s *sqliteStore) Entries() store.Entries         { return &entries{db: s.db} }
func (s *sqliteStore) Preferences() store.Preferences { return &preferences{db: s.db} }
func (s *sqliteStore) Usage() store.Usage             { return &usage{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	out := *m
	if out.UserID == "" {
		out.UserID = uuid.New().String()
	}
	if out.TimeZone == "" {
		out.TimeZone = "UTC"
	}
	if out.Locale == "" {
		out.Locale = "en"
	}
	if out.SubscriptionTier == "" {
		out.SubscriptionTier = "free"
	}
	out.Status = "ACTIVE"
	out.CreationTime = time.Now().UTC()

	_, err := u.db.ExecContext(ctx, `
        INSERT INTO users (user_id, email, display_name, time_zone, locale, subscription_tier, status, creation_time)
        VALUES (?,?,?,?,?,?,?,?)
    `, out.UserID, out.Email, out.DisplayName, out.TimeZone, out.Locale, out.SubscriptionTier, out.Status, out.CreationTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, display_name, time_zone, locale, subscription_tier, status, creation_time, last_active_time
        FROM users WHERE user_id=?
    `, userID)
	if err := row.Scan(&out.UserID, &out.Email, &out.DisplayName, &out.TimeZone, &out.Locale,
		&out.SubscriptionTier, &out.Status, &out.CreationTime, &out.LastActiveTime); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (u *users) UpdateProfile(ctx context.Context, m *model.User) (*model.User, error) {
	res, err := u.db.ExecContext(ctx, `
        UPDATE users SET display_name=?, time_zone=?, locale=?, subscription_tier=?
        WHERE user_id=?
    `, m.DisplayName, m.TimeZone, m.Locale, m.SubscriptionTier, m.UserID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return u.Get(ctx, m.UserID)
}

func (u *users) TouchLastActive(ctx context.Context, userID string, at time.Time) error {
	_, err := u.db.ExecContext(ctx, `UPDATE users SET last_active_time=? WHERE user_id=?`, at.UTC(), userID)
	return err
}

func (u *users) Delete(ctx context.Context, userID string) error {
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE user_id=?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Entries ---

type entries struct{ db *sql.DB }

const entryColumns = `entry_id, user_id, title, raw_transcript, formatted_content, mood_score,
        emotions, insights, audio_filename, processing_status, creation_time, last_update_time,
        entry_date, deleted, deletion_time`

func scanEntry(row interface{ Scan(...interface{}) error }) (*model.JournalEntry, error) {
	var e model.JournalEntry
	var emotionsJSON, insightsJSON, entryDate string
	if err := row.Scan(&e.EntryID, &e.UserID, &e.Title, &e.RawTranscript, &e.FormattedContent,
		&e.MoodScore, &emotionsJSON, &insightsJSON, &e.AudioFilename, &e.ProcessingStatus,
		&e.CreationTime, &e.LastUpdateTime, &entryDate, &e.Deleted, &e.DeletionTime); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal([]byte(emotionsJSON), &e.Emotions); err != nil {
		return nil, fmt.Errorf("decode emotions: %w", err)
	}
	if err := json.Unmarshal([]byte(insightsJSON), &e.Insights); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	d, err := time.Parse(dateLayout, entryDate)
	if err != nil {
		return nil, fmt.Errorf("decode entry_date: %w", err)
	}
	e.EntryDate = d
	return &e, nil
}

func encodeJSON(v interface{}) (string, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (e *entries) Create(ctx context.Context, m *model.JournalEntry) (*model.JournalEntry, error) {
	out := *m
	if out.EntryID == "" {
		out.EntryID = uuid.New().String()
	}
	if out.ProcessingStatus == "" {
		out.ProcessingStatus = model.StatusPending
	}
	out.CreationTime = time.Now().UTC()
	if out.EntryDate.IsZero() {
		out.EntryDate = out.CreationTime
	}

	emotionsJSON, err := encodeJSON(out.Emotions)
	if err != nil {
		return nil, err
	}
	insightsJSON, err := encodeJSON(out.Insights)
	if err != nil {
		return nil, err
	}

	_, err = e.db.ExecContext(ctx, `
        INSERT INTO entries (entry_id, user_id, title, raw_transcript, formatted_content, mood_score,
            emotions, insights, audio_filename, processing_status, creation_time, entry_date)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
    `, out.EntryID, out.UserID, out.Title, out.RawTranscript, out.FormattedContent, out.MoodScore,
		emotionsJSON, insightsJSON, out.AudioFilename, string(out.ProcessingStatus),
		out.CreationTime, out.EntryDate.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, out.UserID, out.EntryID)
}

func (e *entries) Get(ctx context.Context, userID, entryID string) (*model.JournalEntry, error) {
	row := e.db.QueryRowContext(ctx, `
        SELECT `+entryColumns+` FROM entries
        WHERE user_id=? AND entry_id=? AND deleted=0
    `, userID, entryID)
	return scanEntry(row)
}

func (e *entries) List(ctx context.Context, req model.ListEntriesRequest) ([]*model.JournalEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM entries WHERE user_id=? AND deleted=0`
	args := []interface{}{req.UserID}
	if req.Before != nil {
		q += ` AND creation_time < ?`
		args = append(args, req.Before.UTC())
	}
	if req.After != nil {
		q += ` AND creation_time > ?`
		args = append(args, req.After.UTC())
	}
	q += ` ORDER BY creation_time DESC`
	if req.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, req.Limit)
	}
	if req.Offset > 0 {
		if req.Limit <= 0 {
			q += ` LIMIT -1`
		}
		q += ` OFFSET ?`
		args = append(args, req.Offset)
	}

	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (e *entries) ClaimForProcessing(ctx context.Context, userID, entryID string) error {
	res, err := e.db.ExecContext(ctx, `
        UPDATE entries SET processing_status=?
        WHERE user_id=? AND entry_id=? AND processing_status IN (?,?) AND deleted=0
    `, string(model.StatusProcessing), userID, entryID,
		string(model.StatusPending), string(model.StatusError))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	// distinguish a missing entry from one already claimed
	if _, err := e.Get(ctx, userID, entryID); err != nil {
		return err
	}
	return model.ErrEntryBusy
}

func (e *entries) ApplyAnalysis(ctx context.Context, userID, entryID string, a store.Analysis) (*model.JournalEntry, error) {
	emotionsJSON, err := encodeJSON(a.Emotions)
	if err != nil {
		return nil, err
	}
	insightsJSON, err := encodeJSON(a.Insights)
	if err != nil {
		return nil, err
	}

	res, err := e.db.ExecContext(ctx, `
        UPDATE entries SET title=?, raw_transcript=?, formatted_content=?, mood_score=?,
            emotions=?, insights=?, processing_status=?, last_update_time=?
        WHERE user_id=? AND entry_id=? AND deleted=0
    `, a.Title, a.RawTranscript, a.FormattedContent, a.MoodScore, emotionsJSON, insightsJSON,
		string(model.StatusCompleted), time.Now().UTC(), userID, entryID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return e.Get(ctx, userID, entryID)
}

func (e *entries) MarkError(ctx context.Context, userID, entryID string) error {
	res, err := e.db.ExecContext(ctx, `
        UPDATE entries SET processing_status=?, last_update_time=?
        WHERE user_id=? AND entry_id=? AND deleted=0
    `, string(model.StatusError), time.Now().UTC(), userID, entryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (e *entries) UpdateContent(ctx context.Context, userID, entryID, title, formattedContent string) (*model.JournalEntry, error) {
	res, err := e.db.ExecContext(ctx, `
        UPDATE entries SET title=?, formatted_content=?, last_update_time=?
        WHERE user_id=? AND entry_id=? AND deleted=0
    `, title, formattedContent, time.Now().UTC(), userID, entryID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return e.Get(ctx, userID, entryID)
}

func (e *entries) SoftDelete(ctx context.Context, userID, entryID string) error {
	res, err := e.db.ExecContext(ctx, `
        UPDATE entries SET deleted=1, deletion_time=?
        WHERE user_id=? AND entry_id=? AND deleted=0
    `, time.Now().UTC(), userID, entryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (e *entries) Restore(ctx context.Context, userID, entryID string) error {
	res, err := e.db.ExecContext(ctx, `
        UPDATE entries SET deleted=0, deletion_time=NULL
        WHERE user_id=? AND entry_id=? AND deleted=1
    `, userID, entryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (e *entries) ListTrash(ctx context.Context, userID string) ([]*model.JournalEntry, error) {
	rows, err := e.db.QueryContext(ctx, `
        SELECT `+entryColumns+` FROM entries
        WHERE user_id=? AND deleted=1
        ORDER BY deletion_time DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (e *entries) HardDelete(ctx context.Context, userID, entryID string) error {
	res, err := e.db.ExecContext(ctx, `
        DELETE FROM entries WHERE user_id=? AND entry_id=? AND deleted=1
    `, userID, entryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (e *entries) Stats(ctx context.Context, userID, monthPrefix string) (*model.EntryStats, error) {
	var stats model.EntryStats
	var avg sql.NullFloat64
	row := e.db.QueryRowContext(ctx, `
        SELECT COUNT(*), AVG(mood_score) FROM entries WHERE user_id=? AND deleted=0
    `, userID)
	if err := row.Scan(&stats.TotalEntries, &avg); err != nil {
		return nil, err
	}
	if avg.Valid {
		stats.MoodAverage = &avg.Float64
	}

	row = e.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM entries
        WHERE user_id=? AND deleted=0 AND entry_date LIKE ? || '%'
    `, userID, monthPrefix)
	if err := row.Scan(&stats.ThisMonth); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (e *entries) CompletedDatesAsc(ctx context.Context, userID string) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `
        SELECT DISTINCT entry_date FROM entries
        WHERE user_id=? AND deleted=0 AND processing_status=?
        ORDER BY entry_date ASC
    `, userID, string(model.StatusCompleted))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- Preferences ---

type preferences struct{ db *sql.DB }

func (p *preferences) Get(ctx context.Context, userID string) (*model.Preferences, error) {
	var out model.Preferences
	var goalsJSON, daysJSON string
	row := p.db.QueryRowContext(ctx, `
        SELECT user_id, custom_ai_instructions, goals, reminder_enabled, reminder_time,
               reminder_days, theme, current_streak, longest_streak, last_entry_date
        FROM preferences WHERE user_id=?
    `, userID)
	if err := row.Scan(&out.UserID, &out.CustomAIInstructions, &goalsJSON, &out.ReminderEnabled,
		&out.ReminderTime, &daysJSON, &out.Theme, &out.CurrentStreak, &out.LongestStreak,
		&out.LastEntryDate); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal([]byte(goalsJSON), &out.Goals); err != nil {
		return nil, fmt.Errorf("decode goals: %w", err)
	}
	if err := json.Unmarshal([]byte(daysJSON), &out.ReminderDays); err != nil {
		return nil, fmt.Errorf("decode reminder_days: %w", err)
	}
	return &out, nil
}

func (p *preferences) Put(ctx context.Context, m *model.Preferences) (*model.Preferences, error) {
	goalsJSON, err := encodeJSON(m.Goals)
	if err != nil {
		return nil, err
	}
	daysJSON, err := encodeJSON(m.ReminderDays)
	if err != nil {
		return nil, err
	}
	theme := m.Theme
	if theme == "" {
		theme = "light"
	}

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO preferences (user_id, custom_ai_instructions, goals, reminder_enabled,
            reminder_time, reminder_days, theme, current_streak, longest_streak, last_entry_date)
        VALUES (?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(user_id) DO UPDATE SET
            custom_ai_instructions=excluded.custom_ai_instructions,
            goals=excluded.goals,
            reminder_enabled=excluded.reminder_enabled,
            reminder_time=excluded.reminder_time,
            reminder_days=excluded.reminder_days,
            theme=excluded.theme,
            current_streak=excluded.current_streak,
            longest_streak=excluded.longest_streak,
            last_entry_date=excluded.last_entry_date
    `, m.UserID, m.CustomAIInstructions, goalsJSON, m.ReminderEnabled, m.ReminderTime,
		daysJSON, theme, m.CurrentStreak, m.LongestStreak, m.LastEntryDate)
	if err != nil {
		return nil, err
	}
	return p.Get(ctx, m.UserID)
}

// --- Usage ---

type usage struct{ db *sql.DB }

func (u *usage) Get(ctx context.Context, userID, month string) (*model.UsageRecord, error) {
	var out model.UsageRecord
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, month, entry_count, last_entry_at
        FROM usage_tracking WHERE user_id=? AND month=?
    `, userID, month)
	if err := row.Scan(&out.UserID, &out.Month, &out.EntryCount, &out.LastEntryAt); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (u *usage) Increment(ctx context.Context, userID, month string, at time.Time) (int, error) {
	var count int
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO usage_tracking (user_id, month, entry_count, last_entry_at)
        VALUES (?,?,1,?)
        ON CONFLICT(user_id, month) DO UPDATE SET
            entry_count = entry_count + 1,
            last_entry_at = excluded.last_entry_at
        RETURNING entry_count
    `, userID, month, at.UTC())
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
