// Package streak maintains consecutive-day journaling streaks. All
// computations are pure functions over calendar dates in the user's
// local day; callers resolve time zones before calling in.
package streak

import (
	"sort"
	"time"
)

// DateLayout is the canonical wire format for entry dates.
const DateLayout = "2006-01-02"

// State is a user's streak bookkeeping as persisted in preferences.
type State struct {
	Current       int
	Longest       int
	LastEntryDate string // YYYY-MM-DD, empty when no entries yet
}

// Update folds a new entry date into the state. Rules:
//   - first ever entry starts a streak of 1
//   - a second entry on the same day leaves the streak unchanged
//   - an entry on the day after the last one extends the streak
//   - any longer gap resets the streak to 1
//   - an entry dated before the last recorded day is a no-op
//
// Longest never decreases. Invalid dates are ignored.
func Update(s State, entryDate string) State {
	d, err := time.Parse(DateLayout, entryDate)
	if err != nil {
		return s
	}

	if s.LastEntryDate == "" {
		s.Current = 1
		s.LastEntryDate = entryDate
	} else {
		last, err := time.Parse(DateLayout, s.LastEntryDate)
		if err != nil {
			// recorded date is garbage, restart from here
			s.Current = 1
			s.LastEntryDate = entryDate
		} else {
			switch days := daysBetween(last, d); {
			case days < 0:
				// backdated entry, keep the state as is
				return s
			case days == 0:
				// same day, nothing to do
			case days == 1:
				s.Current++
				s.LastEntryDate = entryDate
			default:
				s.Current = 1
				s.LastEntryDate = entryDate
			}
		}
	}

	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	return s
}

// Recompute rebuilds the full state from every entry date a user has,
// used to repair drift after deletions or historical imports. Dates
// that fail to parse are skipped; duplicates collapse to one day.
func Recompute(entryDates []string) State {
	days := make([]time.Time, 0, len(entryDates))
	seen := make(map[string]struct{}, len(entryDates))
	for _, ds := range entryDates {
		d, err := time.Parse(DateLayout, ds)
		if err != nil {
			continue
		}
		key := d.Format(DateLayout)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, d)
	}
	if len(days) == 0 {
		return State{}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var st State
	run := 1
	st.Longest = 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i-1], days[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > st.Longest {
			st.Longest = run
		}
	}
	st.Current = run
	st.LastEntryDate = days[len(days)-1].Format(DateLayout)
	return st
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
