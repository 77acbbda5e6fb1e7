package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mindspeak/mindspeak-backend/internal/model"
	"github.com/mindspeak/mindspeak-backend/internal/store"
	"github.com/mindspeak/mindspeak-backend/internal/usage"
	"github.com/mindspeak/mindspeak-backend/internal/validate"
)

// UserService handles accounts, profiles and preferences.
type UserService struct {
	store   store.Store
	tracker *usage.Tracker
}

func NewUserService(s store.Store, tracker *usage.Tracker) *UserService {
	return &UserService{store: s, tracker: tracker}
}

func (s *UserService) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	if err := validate.Email(u.Email); err != nil {
		return nil, err
	}
	if u.SubscriptionTier != "" {
		if err := validate.SubscriptionTier(u.SubscriptionTier); err != nil {
			return nil, err
		}
	}
	return s.store.Users().Create(ctx, u)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.store.Users().Get(ctx, userID)
}

// UpdateProfileRequest carries partial profile changes; nil fields are
// left untouched.
type UpdateProfileRequest struct {
	DisplayName      *string `json:"displayName"`
	TimeZone         *string `json:"timeZone"`
	Locale           *string `json:"locale"`
	SubscriptionTier *string `json:"subscriptionTier"`
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*model.User, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		user.DisplayName = req.DisplayName
	}
	if req.TimeZone != nil {
		if _, err := time.LoadLocation(*req.TimeZone); err != nil {
			return nil, fmt.Errorf("%w: unknown time zone %q", model.ErrValidation, *req.TimeZone)
		}
		user.TimeZone = *req.TimeZone
	}
	if req.Locale != nil {
		user.Locale = *req.Locale
	}
	if req.SubscriptionTier != nil {
		if err := validate.SubscriptionTier(*req.SubscriptionTier); err != nil {
			return nil, err
		}
		user.SubscriptionTier = *req.SubscriptionTier
	}
	return s.store.Users().UpdateProfile(ctx, user)
}

func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.store.Users().Delete(ctx, userID)
}

// GetPreferences returns stored preferences, or zero-valued defaults
// when the user has never saved any.
func (s *UserService) GetPreferences(ctx context.Context, userID string) (*model.Preferences, error) {
	prefs, err := s.store.Preferences().Get(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		if _, uerr := s.store.Users().Get(ctx, userID); uerr != nil {
			return nil, uerr
		}
		return &model.Preferences{UserID: userID, Theme: "light", Goals: []model.Goal{}, ReminderDays: []string{}}, nil
	}
	return prefs, err
}

// UpdatePreferencesRequest carries partial preference changes; nil
// fields are left untouched.
type UpdatePreferencesRequest struct {
	CustomAIInstructions *string       `json:"customAiInstructions"`
	Goals                *[]model.Goal `json:"goals"`
	ReminderEnabled      *bool         `json:"reminderEnabled"`
	ReminderTime         *string       `json:"reminderTime"`
	ReminderDays         *[]string     `json:"reminderDays"`
	Theme                *string       `json:"theme"`
}

func (s *UserService) UpdatePreferences(ctx context.Context, userID string, req UpdatePreferencesRequest) (*model.Preferences, error) {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.CustomAIInstructions != nil {
		prefs.CustomAIInstructions = req.CustomAIInstructions
	}
	if req.Goals != nil {
		prefs.Goals = *req.Goals
	}
	if req.ReminderEnabled != nil {
		prefs.ReminderEnabled = *req.ReminderEnabled
	}
	if req.ReminderTime != nil {
		if err := validate.ClockTime(*req.ReminderTime); err != nil {
			return nil, err
		}
		prefs.ReminderTime = req.ReminderTime
	}
	if req.ReminderDays != nil {
		prefs.ReminderDays = *req.ReminderDays
	}
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	return s.store.Preferences().Put(ctx, prefs)
}

// AddGoal appends a goal and returns the updated list.
func (s *UserService) AddGoal(ctx context.Context, userID, text string) ([]model.Goal, error) {
	if err := validate.GoalText(text); err != nil {
		return nil, err
	}
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	nextID := 1
	for _, g := range prefs.Goals {
		if g.ID >= nextID {
			nextID = g.ID + 1
		}
	}
	prefs.Goals = append(prefs.Goals, model.Goal{
		ID:           nextID,
		Text:         text,
		CreationTime: time.Now().UTC(),
	})

	saved, err := s.store.Preferences().Put(ctx, prefs)
	if err != nil {
		return nil, err
	}
	return saved.Goals, nil
}

// RemoveGoal deletes a goal by id and returns the remaining list.
func (s *UserService) RemoveGoal(ctx context.Context, userID string, goalID int) ([]model.Goal, error) {
	prefs, err := s.store.Preferences().Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := prefs.Goals[:0]
	for _, g := range prefs.Goals {
		if g.ID != goalID {
			kept = append(kept, g)
		}
	}
	prefs.Goals = kept

	saved, err := s.store.Preferences().Put(ctx, prefs)
	if err != nil {
		return nil, err
	}
	return saved.Goals, nil
}

// UsageStatus reports the user's quota position for the current month.
func (s *UserService) UsageStatus(ctx context.Context, userID string) (*usage.Status, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.tracker.Status(ctx, userID, user.SubscriptionTier)
}
