package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopEmotions(t *testing.T) {
	e := &JournalEntry{Emotions: []Emotion{
		{Name: "calm", Confidence: 0.4},
		{Name: "joy", Confidence: 0.9},
		{Name: "tired", Confidence: 0.6},
		{Name: "anxious", Confidence: 0.5},
	}}
	top := e.TopEmotions(3)
	require.Len(t, top, 3)
	require.Equal(t, "joy", top[0].Name)
	require.Equal(t, "tired", top[1].Name)
	require.Equal(t, "anxious", top[2].Name)
	// the entry's own order is untouched
	require.Equal(t, "calm", e.Emotions[0].Name)
	require.Nil(t, (&JournalEntry{}).TopEmotions(3))
}

func TestWordCount(t *testing.T) {
	require.Equal(t, 0, (&JournalEntry{}).WordCount())
	require.Equal(t, 4, (&JournalEntry{FormattedContent: "four words in here"}).WordCount())
	require.Equal(t, 2, (&JournalEntry{FormattedContent: "  spaced\n\nout  "}).WordCount())
}

func TestMoodEmoji(t *testing.T) {
	require.Equal(t, "😐", (&JournalEntry{}).MoodEmoji())
	seven := 7
	require.Equal(t, "😄", (&JournalEntry{MoodScore: &seven}).MoodEmoji())
	weird := 42
	require.Equal(t, "😐", (&JournalEntry{MoodScore: &weird}).MoodEmoji())
}

func TestProcessingStatusValid(t *testing.T) {
	require.True(t, StatusPending.Valid())
	require.True(t, StatusError.Valid())
	require.False(t, ProcessingStatus("done").Valid())
}
