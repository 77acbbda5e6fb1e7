package usage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mindspeak/mindspeak-backend/internal/model"
)

type fakeStore struct {
	counts map[string]int
}

func (f *fakeStore) key(userID, month string) string { return userID + "/" + month }

func (f *fakeStore) Get(_ context.Context, userID, month string) (*model.UsageRecord, error) {
	n, ok := f.counts[f.key(userID, month)]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &model.UsageRecord{UserID: userID, Month: month, EntryCount: n}, nil
}

func (f *fakeStore) Increment(_ context.Context, userID, month string, _ time.Time) (int, error) {
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[f.key(userID, month)]++
	return f.counts[f.key(userID, month)], nil
}

func fixedTracker(store Store) *Tracker {
	tr := NewTracker(store)
	tr.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return tr
}

func TestMonthKey(t *testing.T) {
	require.Equal(t, "2026-03", MonthKey(time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC)))
}

func TestLimitFor(t *testing.T) {
	require.Equal(t, Limit(5), LimitFor("free"))
	require.True(t, LimitFor("premium").Unbounded())
	require.True(t, LimitFor("pro").Unbounded())
	require.Equal(t, Limit(5), LimitFor("enterprise"))
}

func TestStatusNoUsageYet(t *testing.T) {
	tr := fixedTracker(&fakeStore{})
	st, err := tr.Status(context.Background(), "u1", "free")
	require.NoError(t, err)
	require.Equal(t, "2026-03", st.Month)
	require.Equal(t, 0, st.Used)
	require.Equal(t, Limit(5), st.Remaining)
	require.True(t, st.CanCreate)
}

func TestFreeTierExhausted(t *testing.T) {
	fs := &fakeStore{}
	tr := fixedTracker(fs)
	ctx := context.Background()
	for i := 0; i < FreeTierLimit; i++ {
		require.NoError(t, tr.CheckCanCreate(ctx, "u1", "free"))
		_, err := tr.Record(ctx, "u1")
		require.NoError(t, err)
	}
	err := tr.CheckCanCreate(ctx, "u1", "free")
	require.ErrorIs(t, err, model.ErrQuotaExceeded)

	st, err := tr.Status(ctx, "u1", "free")
	require.NoError(t, err)
	require.Equal(t, Limit(0), st.Remaining)
	require.False(t, st.CanCreate)
}

func TestPremiumNeverExhausted(t *testing.T) {
	fs := &fakeStore{counts: map[string]int{"u1/2026-03": 100}}
	tr := fixedTracker(fs)
	st, err := tr.Status(context.Background(), "u1", "premium")
	require.NoError(t, err)
	require.True(t, st.CanCreate)
	require.True(t, st.Remaining.Unbounded())
	require.NoError(t, tr.CheckCanCreate(context.Background(), "u1", "premium"))
}

func TestUsageResetsAcrossMonths(t *testing.T) {
	fs := &fakeStore{counts: map[string]int{"u1/2026-02": 5}}
	tr := fixedTracker(fs)
	st, err := tr.Status(context.Background(), "u1", "free")
	require.NoError(t, err)
	require.Equal(t, 0, st.Used)
	require.True(t, st.CanCreate)
}

func TestLimitJSON(t *testing.T) {
	b, err := json.Marshal(Status{Month: "2026-03", Used: 2, Limit: 5, Remaining: 3, CanCreate: true})
	require.NoError(t, err)
	require.JSONEq(t, `{"month":"2026-03","entriesUsed":2,"entriesLimit":5,"entriesRemaining":3,"canCreateEntry":true}`, string(b))

	b, err = json.Marshal(Limit(Unlimited))
	require.NoError(t, err)
	require.Equal(t, `"unlimited"`, string(b))
}
