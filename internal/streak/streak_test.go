package streak

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateFirstEntry(t *testing.T) {
	st := Update(State{}, "2026-03-01")
	require.Equal(t, State{Current: 1, Longest: 1, LastEntryDate: "2026-03-01"}, st)
}

func TestUpdateSameDay(t *testing.T) {
	st := State{Current: 3, Longest: 5, LastEntryDate: "2026-03-01"}
	require.Equal(t, st, Update(st, "2026-03-01"))
}

func TestUpdateConsecutiveDay(t *testing.T) {
	st := Update(State{Current: 3, Longest: 3, LastEntryDate: "2026-03-01"}, "2026-03-02")
	require.Equal(t, State{Current: 4, Longest: 4, LastEntryDate: "2026-03-02"}, st)
}

func TestUpdateGapResets(t *testing.T) {
	st := Update(State{Current: 7, Longest: 7, LastEntryDate: "2026-03-01"}, "2026-03-05")
	require.Equal(t, State{Current: 1, Longest: 7, LastEntryDate: "2026-03-05"}, st)
}

func TestUpdateBackdatedNoOp(t *testing.T) {
	st := State{Current: 2, Longest: 4, LastEntryDate: "2026-03-10"}
	require.Equal(t, st, Update(st, "2026-03-08"))
}

func TestUpdateLongestNeverDecreases(t *testing.T) {
	st := State{Current: 1, Longest: 9, LastEntryDate: "2026-03-01"}
	st = Update(st, "2026-03-02")
	require.Equal(t, 2, st.Current)
	require.Equal(t, 9, st.Longest)
}

func TestUpdateInvalidDateIgnored(t *testing.T) {
	st := State{Current: 2, Longest: 2, LastEntryDate: "2026-03-01"}
	require.Equal(t, st, Update(st, "not-a-date"))
}

func TestUpdateMonthBoundary(t *testing.T) {
	st := Update(State{Current: 1, Longest: 1, LastEntryDate: "2026-02-28"}, "2026-03-01")
	require.Equal(t, 2, st.Current)
}

func TestRecomputeEmpty(t *testing.T) {
	require.Equal(t, State{}, Recompute(nil))
}

func TestRecomputeSingleRun(t *testing.T) {
	st := Recompute([]string{"2026-03-01", "2026-03-02", "2026-03-03"})
	require.Equal(t, State{Current: 3, Longest: 3, LastEntryDate: "2026-03-03"}, st)
}

func TestRecomputeGapAndDuplicates(t *testing.T) {
	dates := []string{
		"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-03",
		"2026-03-07", "2026-03-08",
	}
	st := Recompute(dates)
	require.Equal(t, State{Current: 2, Longest: 3, LastEntryDate: "2026-03-08"}, st)
}

func TestRecomputeUnsortedInput(t *testing.T) {
	st := Recompute([]string{"2026-03-03", "2026-03-01", "2026-03-02"})
	require.Equal(t, 3, st.Current)
	require.Equal(t, 3, st.Longest)
}

func TestRecomputeSkipsInvalidDates(t *testing.T) {
	st := Recompute([]string{"garbage", "2026-03-01"})
	require.Equal(t, State{Current: 1, Longest: 1, LastEntryDate: "2026-03-01"}, st)
}
