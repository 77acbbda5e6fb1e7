// Package validate holds small field validators shared by the API
// handlers and services. Errors wrap model.ErrValidation so transports
// can map them to 400 responses.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mindspeak/mindspeak-backend/internal/model"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var clockRx = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var subscriptionTiers = map[string]bool{
	"free":    true,
	"premium": true,
	"pro":     true,
}

func Email(v string) error {
	if v == "" {
		return fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return fmt.Errorf("%w: invalid email", model.ErrValidation)
	}
	return nil
}

func SubscriptionTier(v string) error {
	if !subscriptionTiers[v] {
		return fmt.Errorf("%w: unknown subscription tier %q", model.ErrValidation, v)
	}
	return nil
}

// ClockTime validates an HH:MM reminder time.
func ClockTime(v string) error {
	if !clockRx.MatchString(v) {
		return fmt.Errorf("%w: invalid time format, use HH:MM", model.ErrValidation)
	}
	return nil
}

func GoalText(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: goal text is required", model.ErrValidation)
	}
	if len(v) > 500 {
		return fmt.Errorf("%w: goal text exceeds 500 characters", model.ErrValidation)
	}
	return nil
}

func NonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", model.ErrValidation, field)
	}
	return nil
}

// Duration checks a recording length in seconds against upload bounds.
func Duration(seconds float64, min, max float64) error {
	if seconds < min {
		return fmt.Errorf("%w: recording too short", model.ErrValidation)
	}
	if seconds > max {
		return fmt.Errorf("%w: recording too long (max 2 minutes)", model.ErrValidation)
	}
	return nil
}
