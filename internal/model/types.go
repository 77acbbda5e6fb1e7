package model

import "time"

// ProcessingStatus tracks an entry through the AI pipeline.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusError      ProcessingStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	UserID           string     `json:"userId"`
	Email            string     `json:"email"`
	DisplayName      *string    `json:"displayName,omitempty"`
	TimeZone         string     `json:"timeZone"`
	Locale           string     `json:"locale"`
	SubscriptionTier string     `json:"subscriptionTier"`
	Status           string     `json:"status"`
	CreationTime     time.Time  `json:"creationTime"`
	LastActiveTime   *time.Time `json:"lastActiveTime,omitempty"`
}

// Emotion is one detected emotion with a provider confidence in [0,1].
type Emotion struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// JournalEntry is one journaled session, from raw audio to structured analysis.
type JournalEntry struct {
	EntryID          string           `json:"entryId"`
	UserID           string           `json:"userId"`
	Title            string           `json:"title"`
	RawTranscript    string           `json:"rawTranscript,omitempty"`
	FormattedContent string           `json:"formattedContent,omitempty"`
	MoodScore        *int             `json:"moodScore,omitempty"`
	Emotions         []Emotion        `json:"emotions,omitempty"`
	Insights         []string         `json:"insights,omitempty"`
	AudioFilename    *string          `json:"audioFilename,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
	CreationTime     time.Time        `json:"creationTime"`
	LastUpdateTime   *time.Time       `json:"lastUpdateTime,omitempty"`
	// EntryDate carries the calendar date in the user's time zone; stores
	// persist its local date, not the UTC one.
	EntryDate    time.Time  `json:"entryDate"`
	Deleted      bool       `json:"-"`
	DeletionTime *time.Time `json:"deletionTime,omitempty"`
}

// TopEmotions returns up to limit emotions ordered by descending confidence.
func (e *JournalEntry) TopEmotions(limit int) []Emotion {
	if len(e.Emotions) == 0 || limit <= 0 {
		return nil
	}
	out := make([]Emotion, len(e.Emotions))
	copy(out, e.Emotions)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Confidence > out[j-1].Confidence; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

var moodEmojis = map[int]string{
	1: "😢", 2: "😔", 3: "😕", 4: "😐", 5: "🙂",
	6: "😊", 7: "😄", 8: "😃", 9: "😁", 10: "🤗",
}

// MoodEmoji maps the mood score to an emoji, neutral when unscored.
func (e *JournalEntry) MoodEmoji() string {
	if e.MoodScore == nil {
		return "😐"
	}
	if emoji, ok := moodEmojis[*e.MoodScore]; ok {
		return emoji
	}
	return "😐"
}

// WordCount counts whitespace-separated words in the formatted content.
func (e *JournalEntry) WordCount() int {
	n := 0
	inWord := false
	for _, r := range e.FormattedContent {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				n++
			}
			inWord = true
		}
	}
	return n
}

// Goal is one user goal surfaced to the restructuring prompt.
type Goal struct {
	ID           int       `json:"id"`
	Text         string    `json:"text"`
	CreationTime time.Time `json:"createdAt"`
}

// Preferences holds per-user settings, including the journaling streak.
type Preferences struct {
	UserID               string   `json:"userId"`
	CustomAIInstructions *string  `json:"customAiInstructions,omitempty"`
	Goals                []Goal   `json:"goals"`
	ReminderEnabled      bool     `json:"reminderEnabled"`
	ReminderTime         *string  `json:"reminderTime,omitempty"` // HH:MM
	ReminderDays         []string `json:"reminderDays"`
	Theme                string   `json:"theme"`
	CurrentStreak        int      `json:"currentStreak"`
	LongestStreak        int      `json:"longestStreak"`
	LastEntryDate        *string  `json:"lastEntryDate,omitempty"` // YYYY-MM-DD
}

// UsageRecord counts entries for one (user, calendar month).
// Month is formatted YYYY-MM; at most one record exists per pair.
type UsageRecord struct {
	UserID      string     `json:"userId"`
	Month       string     `json:"month"`
	EntryCount  int        `json:"entryCount"`
	LastEntryAt *time.Time `json:"lastEntryAt,omitempty"`
}

// ListEntriesRequest captures filters used when listing entries.
type ListEntriesRequest struct {
	UserID string
	Limit  int
	Offset int
	Before *time.Time
	After  *time.Time
}

// EntryStats is the dashboard summary for one user.
type EntryStats struct {
	TotalEntries  int      `json:"totalEntries"`
	ThisMonth     int      `json:"thisMonth"`
	MoodAverage   *float64 `json:"moodAverage,omitempty"`
	CurrentStreak int      `json:"currentStreak"`
}
