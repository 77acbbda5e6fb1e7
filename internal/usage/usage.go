// Package usage enforces per-tier monthly entry quotas. Counts are
// persisted per (user, calendar month) and incremented atomically when
// an upload is accepted. A failed processing run does not refund the
// slot it consumed.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/mindspeak/mindspeak-backend/internal/model"
)

// Unlimited marks tiers without a monthly cap.
const Unlimited = -1

// FreeTierLimit is the monthly entry allowance for free accounts.
const FreeTierLimit = 5

// tierLimits maps subscription tiers to their monthly allowance.
// Unknown tiers fall back to the free limit.
var tierLimits = map[string]int{
	"free":    FreeTierLimit,
	"premium": Unlimited,
	"pro":     Unlimited,
}

// Limit carries a quota that may be unbounded. Unbounded limits
// serialize as the string "unlimited" rather than a sentinel number.
type Limit int

func (l Limit) MarshalJSON() ([]byte, error) {
	if l == Unlimited {
		return json.Marshal("unlimited")
	}
	return []byte(strconv.Itoa(int(l))), nil
}

// Unbounded reports whether the limit places no cap.
func (l Limit) Unbounded() bool { return l == Unlimited }

// LimitFor returns the monthly allowance for a subscription tier.
func LimitFor(tier string) Limit {
	if n, ok := tierLimits[tier]; ok {
		return Limit(n)
	}
	return Limit(FreeTierLimit)
}

// MonthKey formats t as the YYYY-MM bucket usage is counted in.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Store is the persistence surface the tracker needs, satisfied by
// store.Usage. Get returns model.ErrNotFound when no record exists for
// the month yet; Increment upserts atomically and returns the new count.
type Store interface {
	Get(ctx context.Context, userID, month string) (*model.UsageRecord, error)
	Increment(ctx context.Context, userID, month string, at time.Time) (int, error)
}

// Status is a user's quota position for the current month.
type Status struct {
	Month     string `json:"month"`
	Used      int    `json:"entriesUsed"`
	Limit     Limit  `json:"entriesLimit"`
	Remaining Limit  `json:"entriesRemaining"`
	CanCreate bool   `json:"canCreateEntry"`
}

// Tracker answers quota questions and records consumption.
type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Status reports the user's position against this month's allowance.
func (t *Tracker) Status(ctx context.Context, userID, tier string) (*Status, error) {
	month := MonthKey(t.now())
	used := 0
	rec, err := t.store.Get(ctx, userID, month)
	switch {
	case err == nil:
		used = rec.EntryCount
	case errors.Is(err, model.ErrNotFound):
		// no entries this month yet
	default:
		return nil, err
	}

	limit := LimitFor(tier)
	st := &Status{Month: month, Used: used, Limit: limit}
	if limit.Unbounded() {
		st.Remaining = Unlimited
		st.CanCreate = true
	} else {
		rem := int(limit) - used
		if rem < 0 {
			rem = 0
		}
		st.Remaining = Limit(rem)
		st.CanCreate = rem > 0
	}
	return st, nil
}

// CheckCanCreate returns model.ErrQuotaExceeded when the user has
// exhausted this month's allowance.
func (t *Tracker) CheckCanCreate(ctx context.Context, userID, tier string) error {
	st, err := t.Status(ctx, userID, tier)
	if err != nil {
		return err
	}
	if !st.CanCreate {
		return model.ErrQuotaExceeded
	}
	return nil
}

// Record consumes one entry slot for the current month. Called exactly
// once per accepted upload, before processing starts.
func (t *Tracker) Record(ctx context.Context, userID string) (int, error) {
	at := t.now()
	return t.store.Increment(ctx, userID, MonthKey(at), at)
}
