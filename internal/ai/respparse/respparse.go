// Package respparse extracts a JournalAnalysis from raw language-model
// output. Model responses are not contractually structured, so Parse is
// total: it degrades through progressively looser strategies and always
// returns a usable analysis.
package respparse

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/mindspeak/mindspeak-backend/internal/ai"
	"github.com/mindspeak/mindspeak-backend/internal/model"
)

const (
	maxTitleLen    = 50
	defaultMood    = 5
	maxEmotions    = 3
	maxInsights    = 3
	fallbackTitle  = "Untitled Entry"
	emotionDefConf = 0.5
)

var requiredFields = []string{"title", "formatted_content", "mood_score", "emotions", "insights"}

// Parse decodes a model response into a JournalAnalysis. It never fails:
// strict JSON decoding of the outermost object span is tried first, then a
// permissive re-quoting decode, then per-field pattern extraction, and
// finally a fixed placeholder.
func Parse(raw string) *ai.JournalAnalysis {
	if span, ok := objectSpan(raw); ok {
		span = sanitize(span)
		if a, ok := decodeObject(span); ok {
			return normalize(a)
		}
		if a, ok := decodeObject(requote(span)); ok {
			return normalize(a)
		}
	}
	return normalize(extractFields(raw))
}

// objectSpan returns the text between the first '{' and the last '}'.
func objectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// sanitize strips raw C0 control characters (keeping tab, newline and
// carriage return) and escapes literal newlines and quotes inside the
// formatted_content value, which frequently carries multi-paragraph text
// that would break strict decoding. No other field is altered.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\t' && r != '\n' && r != '\r') || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return repairFormattedContent(b.String())
}

var nextKeyRx = regexp.MustCompile(`^\s*,\s*"\w+"\s*:`)

// repairFormattedContent locates the formatted_content string value and
// escapes any unescaped newline or quote inside it. The value is bounded by
// the quote that precedes the next `"key":`. If that boundary cannot be
// found the text is returned unchanged and a later strategy takes over.
func repairFormattedContent(s string) string {
	start, end, ok := contentValueSpan(s)
	if !ok {
		return s
	}
	return s[:start] + escapeInner(s[start:end]) + s[end:]
}

// contentValueSpan returns the [start,end) byte span of the raw value of
// the formatted_content field, excluding its surrounding quotes.
func contentValueSpan(s string) (int, int, bool) {
	key := strings.Index(s, `"formatted_content"`)
	if key == -1 {
		return 0, 0, false
	}
	i := key + len(`"formatted_content"`)
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	if i >= len(s) || s[i] != ':' {
		return 0, 0, false
	}
	i++
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	if i >= len(s) || s[i] != '"' {
		return 0, 0, false
	}
	start := i + 1
	for j := start; j < len(s); j++ {
		if s[j] != '"' || s[j-1] == '\\' {
			continue
		}
		if nextKeyRx.MatchString(s[j+1:]) {
			return start, j, true
		}
	}
	return 0, 0, false
}

// escapeInner escapes unescaped newlines and quotes in a string value body.
func escapeInner(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	escaped := false
	for _, r := range v {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '\n':
			b.WriteString(`\n`)
		case r == '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeObject unmarshals an object span and validates that the five
// required fields are present with usable types.
func decodeObject(span string) (*ai.JournalAnalysis, bool) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(span), &m); err != nil {
		return nil, false
	}
	for _, f := range requiredFields {
		if _, ok := m[f]; !ok {
			return nil, false
		}
	}
	return fromMap(m)
}

func fromMap(m map[string]interface{}) (*ai.JournalAnalysis, bool) {
	title, ok := m["title"].(string)
	if !ok {
		return nil, false
	}
	content, ok := m["formatted_content"].(string)
	if !ok {
		return nil, false
	}
	mood, ok := asInt(m["mood_score"])
	if !ok {
		return nil, false
	}

	var emotions []model.Emotion
	if list, ok := m["emotions"].([]interface{}); ok {
		for _, item := range list {
			em, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			name, nok := em["name"].(string)
			conf, cok := asFloat(em["confidence"])
			if !nok || !cok {
				// malformed entries are dropped, not fatal
				continue
			}
			emotions = append(emotions, model.Emotion{Name: name, Confidence: conf})
		}
	}

	var insights []string
	switch v := m["insights"].(type) {
	case string:
		insights = []string{v}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				insights = append(insights, s)
			}
		}
	}

	return &ai.JournalAnalysis{
		Title:            title,
		FormattedContent: content,
		MoodScore:        mood,
		Emotions:         emotions,
		Insights:         insights,
	}, true
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// requote rewrites a python-literal-flavored object (single-quoted strings,
// True/False/None, trailing commas) into strict JSON. Literal rewriting only
// touches text outside string values, so a transcript mentioning "True" or
// "None" survives intact.
func requote(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var plain strings.Builder
	flush := func() {
		if plain.Len() == 0 {
			return
		}
		seg := pyLiteralReplacer.Replace(plain.String())
		b.WriteString(trailingCommaRx.ReplaceAllString(seg, "$1"))
		plain.Reset()
	}
	inDouble, inSingle, escaped := false, false, false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\' && (inDouble || inSingle):
			b.WriteRune(r)
			escaped = true
		case inDouble:
			b.WriteRune(r)
			if r == '"' {
				inDouble = false
			}
		case inSingle:
			switch r {
			case '\'':
				b.WriteByte('"')
				inSingle = false
			case '"':
				b.WriteString(`\"`)
			default:
				b.WriteRune(r)
			}
		case r == '"':
			flush()
			b.WriteRune(r)
			inDouble = true
		case r == '\'':
			flush()
			b.WriteByte('"')
			inSingle = true
		default:
			plain.WriteRune(r)
		}
	}
	flush()
	return b.String()
}

var (
	pyLiteralReplacer = strings.NewReplacer("True", "true", "False", "false", "None", "null")
	trailingCommaRx   = regexp.MustCompile(`,\s*([}\]])`)
)

var (
	titleRx       = regexp.MustCompile(`"title"\s*:\s*"([^"]*)"`)
	contentRx     = regexp.MustCompile(`(?s)"formatted_content"\s*:\s*"(.*?)",\s*"\w+"\s*:`)
	moodRx        = regexp.MustCompile(`"mood_score"\s*:\s*(\d+)`)
	emotionsRx    = regexp.MustCompile(`(?s)"emotions"\s*:\s*\[(.*?)\]`)
	emotionNameRx = regexp.MustCompile(`"name"\s*:\s*"([^"]*)"`)
	insightsRx    = regexp.MustCompile(`(?s)"insights"\s*:\s*\[(.*?)\]`)
	quotedRx      = regexp.MustCompile(`"([^"]*)"`)
)

// extractFields is the last-resort strategy: independent pattern searches
// per field against the raw response. A panic here (which should not
// happen) yields the fixed placeholder so Parse stays total.
func extractFields(raw string) (a *ai.JournalAnalysis) {
	defer func() {
		if recover() != nil {
			a = placeholder()
		}
	}()

	title := fallbackTitle
	if m := titleRx.FindStringSubmatch(raw); m != nil {
		title = m[1]
	}

	content := extractContent(raw)

	mood := defaultMood
	if m := moodRx.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			mood = n
		}
	}

	var emotions []model.Emotion
	if sec := emotionsRx.FindStringSubmatch(raw); sec != nil {
		for _, nm := range emotionNameRx.FindAllStringSubmatch(sec[1], maxEmotions) {
			emotions = append(emotions, model.Emotion{Name: nm[1], Confidence: emotionDefConf})
		}
	}

	insights := []string{"Manual extraction completed"}
	if sec := insightsRx.FindStringSubmatch(raw); sec != nil {
		var found []string
		for _, q := range quotedRx.FindAllStringSubmatch(sec[1], maxInsights) {
			found = append(found, q[1])
		}
		if len(found) > 0 {
			insights = found
		}
	}

	return &ai.JournalAnalysis{
		Title:            title,
		FormattedContent: content,
		MoodScore:        mood,
		Emotions:         emotions,
		Insights:         insights,
	}
}

// extractContent pulls the formatted_content value out of the raw text,
// first with the span-bounded pattern, then with a marker search over known
// terminators. Escapes are undone so the stored content reads naturally.
func extractContent(raw string) string {
	if m := contentRx.FindStringSubmatch(raw); m != nil {
		return unescape(m[1])
	}
	const marker = `"formatted_content": "`
	start := strings.Index(raw, marker)
	if start == -1 {
		return "Content start marker not found"
	}
	start += len(marker)
	terminators := []string{
		"\",\n    \"mood_score\"",
		"\",\n        \"mood_score\"",
		"\",\n\"mood_score\"",
		"\",\n\t\"mood_score\"",
		"\",",
	}
	for _, term := range terminators {
		if end := strings.Index(raw[start:], term); end != -1 {
			return unescape(raw[start : start+end])
		}
	}
	return "Could not extract content properly"
}

func unescape(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\"`, `"`, `\\`, `\`).Replace(s)
}

// placeholder is the terminal fallback; it always succeeds.
func placeholder() *ai.JournalAnalysis {
	return &ai.JournalAnalysis{
		Title:            "Processing Completed",
		FormattedContent: "Entry was processed but formatting failed. Please check the original transcript.",
		MoodScore:        defaultMood,
		Emotions:         nil,
		Insights:         []string{"Processing completed with errors - please review manually"},
	}
}

// normalize applies the post-decode rules shared by every strategy: mood
// clamped to [1,10], title capped at 50 characters, nil insight lists
// preserved as empty.
func normalize(a *ai.JournalAnalysis) *ai.JournalAnalysis {
	if a.MoodScore < 1 {
		a.MoodScore = 1
	}
	if a.MoodScore > 10 {
		a.MoodScore = 10
	}
	if r := []rune(a.Title); len(r) > maxTitleLen {
		a.Title = string(r[:maxTitleLen])
	}
	if a.Insights == nil {
		a.Insights = []string{}
	}
	return a
}
