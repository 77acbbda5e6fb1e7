package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mindspeak/mindspeak-backend/internal/model"
)

func TestEmail(t *testing.T) {
	require.NoError(t, Email("user@example.com"))
	require.ErrorIs(t, Email(""), model.ErrValidation)
	require.ErrorIs(t, Email("not-an-email"), model.ErrValidation)
	require.ErrorIs(t, Email("two@@example.com"), model.ErrValidation)
}

func TestSubscriptionTier(t *testing.T) {
	require.NoError(t, SubscriptionTier("free"))
	require.NoError(t, SubscriptionTier("premium"))
	require.NoError(t, SubscriptionTier("pro"))
	require.ErrorIs(t, SubscriptionTier("enterprise"), model.ErrValidation)
}

func TestClockTime(t *testing.T) {
	require.NoError(t, ClockTime("09:30"))
	require.NoError(t, ClockTime("23:59"))
	require.ErrorIs(t, ClockTime("24:00"), model.ErrValidation)
	require.ErrorIs(t, ClockTime("9:30"), model.ErrValidation)
	require.ErrorIs(t, ClockTime("nope"), model.ErrValidation)
}

func TestGoalText(t *testing.T) {
	require.NoError(t, GoalText("run every morning"))
	require.ErrorIs(t, GoalText("   "), model.ErrValidation)
}

func TestDuration(t *testing.T) {
	require.NoError(t, Duration(30, 5, 125))
	require.ErrorIs(t, Duration(2, 5, 125), model.ErrValidation)
	require.ErrorIs(t, Duration(200, 5, 125), model.ErrValidation)
}
