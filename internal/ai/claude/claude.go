// Package claude restructures journal transcripts through the Anthropic
// Messages API. Raw completions are parsed by respparse, which never
// fails outright, so a processor error here always means the API call
// itself went wrong.
package claude

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/mindspeak/mindspeak-backend/internal/ai"
	"github.com/mindspeak/mindspeak-backend/internal/ai/respparse"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-5-sonnet-20241022"
	maxTokens      = 4000
	apiVersion     = "2023-06-01"
)

// Processor implements ai.Processor backed by the Messages API.
type Processor struct {
	client *resty.Client
	model  string
	log    zerolog.Logger
}

// New creates a Processor. baseURL may be empty to use the public API.
func New(apiKey, baseURL string, log zerolog.Logger) (*Processor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("claude: api key is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetTimeout(3 * time.Minute)

	return &Processor{
		client: c,
		model:  defaultModel,
		log:    log.With().Str("component", "claude").Logger(),
	}, nil
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ProcessTranscript turns a raw transcript into a structured analysis.
// API failures wrap ai.ErrProcessing; malformed completions degrade
// through the parser's fallbacks instead of failing.
func (p *Processor) ProcessTranscript(ctx context.Context, transcript string, uc ai.UserContext) (*ai.JournalAnalysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: empty transcript provided", ai.ErrProcessing)
	}

	p.log.Info().Int("transcript_chars", len(transcript)).Msg("starting restructuring")

	req := messagesRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: buildPrompt(transcript, uc)}},
	}

	var out messagesResponse
	var apiErr apiError
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/messages")
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ai.ErrProcessing, err)
	}
	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("%w: api status %d: %s", ai.ErrProcessing, resp.StatusCode(), msg)
	}
	if len(out.Content) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ai.ErrProcessing)
	}

	analysis := respparse.Parse(out.Content[0].Text)
	p.log.Info().Str("title", analysis.Title).Int("mood", analysis.MoodScore).Msg("restructuring completed")
	return analysis, nil
}

// buildPrompt assembles the restructuring instructions, folding in the
// user's goals and custom instructions when present.
func buildPrompt(transcript string, uc ai.UserContext) string {
	var goalsText string
	if len(uc.Goals) > 0 {
		var lines []string
		for _, g := range uc.Goals {
			if g.Text != "" {
				lines = append(lines, "- "+g.Text)
			}
		}
		if len(lines) > 0 {
			goalsText = "\nUser's Personal Goals:\n" + strings.Join(lines, "\n")
		}
	}

	var customText string
	if uc.CustomInstructions != "" {
		customText = "CUSTOM INSTRUCTIONS: " + uc.CustomInstructions
	}

	return fmt.Sprintf(`Transform this voice journal transcript into a structured, insightful journal entry.

VOICE TRANSCRIPT:
%s

CONTEXT:
This is a personal voice journal entry. The user spoke naturally and may have:
- Used filler words (um, uh, like)
- Had incomplete thoughts or tangents
- Mentioned various topics spontaneously

YOUR TASK:
Create a well-structured journal entry that:

1. **PRESERVES THE USER'S AUTHENTIC VOICE** - Keep their personality and emotional tone
2. **ORGANIZES THOUGHTS LOGICALLY** - Group related ideas together
3. **FIXES GRAMMAR & FLOW** - Make it readable while keeping it natural
4. **MAINTAINS EMOTIONAL AUTHENTICITY** - Don't sanitize or over-optimize emotions

%s

%s

OUTPUT FORMAT (JSON):
{
    "title": "Engaging title that captures the essence (max 50 chars)",
    "formatted_content": "Well-structured journal entry maintaining user's voice and emotions",
    "mood_score": 7,
    "emotions": [
        {"name": "hopeful", "confidence": 0.8},
        {"name": "anxious", "confidence": 0.6},
        {"name": "determined", "confidence": 0.5}
    ],
    "insights": [
        "Specific observation about patterns or behaviors",
        "Actionable suggestion based on what they shared"
    ]
}

GUIDELINES:
- Title: Capture the main theme/feeling, not just "Journal Entry"
- Content: 2-4 paragraphs, natural flow, maintain user's speaking style
- Mood: 1 (very negative) to 10 (very positive), be nuanced
- Emotions: Top 3 emotions with realistic confidence scores (0-1)
- Insights: 2-3 observations that are helpful but not preachy

Generate the JSON response now:`, transcript, goalsText, customText)
}

// HealthPing sends a minimal request to verify the key and endpoint.
func (p *Processor) HealthPing(ctx context.Context) error {
	req := messagesRequest{
		Model:     p.model,
		MaxTokens: 1,
		Messages:  []message{{Role: "user", Content: "ping"}},
	}
	resp, err := p.client.R().SetContext(ctx).SetBody(&req).Post("/v1/messages")
	if err != nil {
		return fmt.Errorf("claude: ping failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("claude: ping status %d", resp.StatusCode())
	}
	return nil
}
