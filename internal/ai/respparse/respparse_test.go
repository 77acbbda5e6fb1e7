package respparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const wellFormed = `Here is the structured entry:
{
    "title": "A Quiet Morning of Progress",
    "formatted_content": "Today started slowly.\n\nBut by noon things picked up.",
    "mood_score": 7,
    "emotions": [
        {"name": "hopeful", "confidence": 0.8},
        {"name": "anxious", "confidence": 0.6},
        {"name": "determined", "confidence": 0.5}
    ],
    "insights": [
        "You tend to gain momentum after a slow start",
        "Consider scheduling hard tasks for the afternoon"
    ]
}`

func TestParseWellFormed(t *testing.T) {
	a := Parse(wellFormed)
	require.NotNil(t, a)
	require.Equal(t, "A Quiet Morning of Progress", a.Title)
	require.Equal(t, 7, a.MoodScore)
	require.Len(t, a.Emotions, 3)
	require.Equal(t, "hopeful", a.Emotions[0].Name)
	require.InDelta(t, 0.8, a.Emotions[0].Confidence, 1e-9)
	require.Len(t, a.Insights, 2)
	require.Contains(t, a.FormattedContent, "picked up")
}

func TestParseLiteralNewlineInContent(t *testing.T) {
	raw := `{
    "title": "Two Paragraphs",
    "formatted_content": "First paragraph.
Second paragraph after a literal newline.",
    "mood_score": 6,
    "emotions": [{"name": "calm", "confidence": 0.7}],
    "insights": ["Keep writing"]
}`
	a := Parse(raw)
	require.Equal(t, "Two Paragraphs", a.Title)
	// the literal newline survives into the decoded content
	require.Contains(t, a.FormattedContent, "First paragraph.\nSecond paragraph")
	require.Equal(t, 6, a.MoodScore)
}

func TestParseControlCharactersStripped(t *testing.T) {
	raw := "{\x01\x02\"title\": \"Clean\", \"formatted_content\": \"ok\", \"mood_score\": 5, \"emotions\": [], \"insights\": []}"
	a := Parse(raw)
	require.Equal(t, "Clean", a.Title)
}

func TestParseSingleQuotedFallback(t *testing.T) {
	raw := `{'title': 'Single Quoted', 'formatted_content': 'body text', 'mood_score': 4, 'emotions': [{'name': 'tired', 'confidence': 0.9}], 'insights': ['rest more']}`
	a := Parse(raw)
	require.Equal(t, "Single Quoted", a.Title)
	require.Equal(t, "body text", a.FormattedContent)
	require.Equal(t, 4, a.MoodScore)
	require.Len(t, a.Emotions, 1)
	require.Equal(t, []string{"rest more"}, a.Insights)
}

func TestParseSingleQuotedKeepsLiteralWordsInValues(t *testing.T) {
	// python literals get rewritten, but the same words inside a string
	// value must survive untouched
	raw := `{'title': 'Staying True', 'formatted_content': 'I stayed True to myself and None of it hurt.', 'mood_score': 8, 'emotions': [{'name': 'proud', 'confidence': 0.9}], 'insights': ['None of the worry was real'],}`
	a := Parse(raw)
	require.Equal(t, "Staying True", a.Title)
	require.Equal(t, "I stayed True to myself and None of it hurt.", a.FormattedContent)
	require.Equal(t, []string{"None of the worry was real"}, a.Insights)
	require.Equal(t, 8, a.MoodScore)
}

func TestParseMissingFieldFallsThrough(t *testing.T) {
	// valid JSON but no insights field: strict path must reject it and
	// field extraction takes over
	raw := `{"title": "No Insights", "formatted_content": "text", "mood_score": 3, "emotions": []}`
	a := Parse(raw)
	require.NotNil(t, a)
	require.Equal(t, "No Insights", a.Title)
	require.Equal(t, 3, a.MoodScore)
	require.Equal(t, []string{"Manual extraction completed"}, a.Insights)
}

func TestParseBrokenJSONFieldExtraction(t *testing.T) {
	raw := `{"title": "Broken", "formatted_content": "some content", "mood_score": 8, "emotions": [{"name": "joy", "confidence": }], "insights": ["a", "b"`
	a := Parse(raw)
	require.Equal(t, "Broken", a.Title)
	require.Equal(t, 8, a.MoodScore)
}

func TestParsePlainProse(t *testing.T) {
	a := Parse("I could not produce JSON today, sorry about that.")
	require.NotNil(t, a)
	require.Equal(t, "Untitled Entry", a.Title)
	require.Equal(t, 5, a.MoodScore)
	require.NotEmpty(t, a.Insights)
}

func TestParseEmptyInput(t *testing.T) {
	a := Parse("")
	require.NotNil(t, a)
	require.GreaterOrEqual(t, a.MoodScore, 1)
	require.LessOrEqual(t, a.MoodScore, 10)
}

func TestMoodScoreClamped(t *testing.T) {
	low := Parse(`{"title": "t", "formatted_content": "c", "mood_score": 0, "emotions": [], "insights": ["i"]}`)
	require.Equal(t, 1, low.MoodScore)

	high := Parse(`{"title": "t", "formatted_content": "c", "mood_score": 15, "emotions": [], "insights": ["i"]}`)
	require.Equal(t, 10, high.MoodScore)
}

func TestTitleTruncated(t *testing.T) {
	long := strings.Repeat("x", 120)
	a := Parse(`{"title": "` + long + `", "formatted_content": "c", "mood_score": 5, "emotions": [], "insights": ["i"]}`)
	require.Len(t, a.Title, 50)
}

func TestInsightsStringWrapped(t *testing.T) {
	a := Parse(`{"title": "t", "formatted_content": "c", "mood_score": 5, "emotions": [], "insights": "just one observation"}`)
	require.Equal(t, []string{"just one observation"}, a.Insights)
}

func TestMalformedEmotionsDropped(t *testing.T) {
	a := Parse(`{"title": "t", "formatted_content": "c", "mood_score": 5,
		"emotions": [{"name": "ok", "confidence": 0.4}, {"name": "missing confidence"}, {"confidence": 0.2}, "not an object"],
		"insights": ["i"]}`)
	require.Len(t, a.Emotions, 1)
	require.Equal(t, "ok", a.Emotions[0].Name)
}

func TestEmotionExtractionCapped(t *testing.T) {
	raw := `broken { "mood_score": bad,
	"emotions": [{"name": "a"}, {"name": "b"}, {"name": "c"}, {"name": "d"}],
	"insights": ["one", "two", "three", "four"] }`
	a := Parse(raw)
	require.LessOrEqual(t, len(a.Emotions), 3)
	require.LessOrEqual(t, len(a.Insights), 3)
	for _, em := range a.Emotions {
		require.InDelta(t, 0.5, em.Confidence, 1e-9)
	}
}
