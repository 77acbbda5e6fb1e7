package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mindspeak/mindspeak-backend/internal/model"
)

func strPtr(s string) *string { return &s }

func TestCreateUserRejectsBadInput(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	_, err := f.users.CreateUser(ctx, &model.User{Email: "not-an-email"})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = f.users.CreateUser(ctx, &model.User{Email: "ok@example.com", SubscriptionTier: "platinum"})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestUpdateProfilePartial(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	updated, err := f.users.UpdateProfile(ctx, f.userID, UpdateProfileRequest{
		DisplayName:      strPtr("Jo"),
		SubscriptionTier: strPtr("premium"),
	})
	require.NoError(t, err)
	require.Equal(t, "Jo", *updated.DisplayName)
	require.Equal(t, "premium", updated.SubscriptionTier)
	require.Equal(t, "UTC", updated.TimeZone)

	_, err = f.users.UpdateProfile(ctx, f.userID, UpdateProfileRequest{TimeZone: strPtr("Mars/Olympus")})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = f.users.UpdateProfile(ctx, "missing", UpdateProfileRequest{})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetPreferencesDefaults(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	prefs, err := f.users.GetPreferences(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, "light", prefs.Theme)
	require.Empty(t, prefs.Goals)
	require.Zero(t, prefs.CurrentStreak)

	_, err = f.users.GetPreferences(ctx, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdatePreferencesPartial(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	enabled := true
	prefs, err := f.users.UpdatePreferences(ctx, f.userID, UpdatePreferencesRequest{
		CustomAIInstructions: strPtr("keep it short"),
		ReminderEnabled:      &enabled,
		ReminderTime:         strPtr("21:30"),
		ReminderDays:         &[]string{"mon", "wed"},
	})
	require.NoError(t, err)
	require.Equal(t, "keep it short", *prefs.CustomAIInstructions)
	require.True(t, prefs.ReminderEnabled)
	require.Equal(t, "21:30", *prefs.ReminderTime)

	// untouched fields survive a later partial update
	prefs, err = f.users.UpdatePreferences(ctx, f.userID, UpdatePreferencesRequest{Theme: strPtr("dark")})
	require.NoError(t, err)
	require.Equal(t, "dark", prefs.Theme)
	require.Equal(t, "keep it short", *prefs.CustomAIInstructions)

	_, err = f.users.UpdatePreferences(ctx, f.userID, UpdatePreferencesRequest{ReminderTime: strPtr("25:00")})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestGoalLifecycle(t *testing.T) {
	f := newFixture(t, &stubTranscriber{text: "hi"}, &stubProcessor{analysis: defaultAnalysis()})
	ctx := context.Background()

	goals, err := f.users.AddGoal(ctx, f.userID, "meditate daily")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Equal(t, 1, goals[0].ID)

	goals, err = f.users.AddGoal(ctx, f.userID, "read more")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	require.Equal(t, 2, goals[1].ID)

	goals, err = f.users.RemoveGoal(ctx, f.userID, 1)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Equal(t, "read more", goals[0].Text)

	// ids never collide with a surviving goal
	goals, err = f.users.AddGoal(ctx, f.userID, "sleep earlier")
	require.NoError(t, err)
	require.Equal(t, 3, goals[1].ID)

	_, err = f.users.AddGoal(ctx, f.userID, "   ")
	require.ErrorIs(t, err, model.ErrValidation)
}
