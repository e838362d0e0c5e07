package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const reviewSystemPrompt = `You are a code reviewer for a gamified programming blog.
Your job is to evaluate user code submissions against specific criteria.

IMPORTANT RULES:
1. Be encouraging but honest
2. Focus on whether the code meets the criteria, not perfection
3. If the code mostly works but has minor issues, pass it with suggestions
4. Only fail if the code fundamentally doesn't meet the criteria
5. Keep feedback concise (2-3 sentences max)
6. Don't be overly strict - this is for learning

Response format:
- Start with "PASS" or "FAIL" on the first line
- Then provide brief, helpful feedback`

// OpenAIReviewer evaluates code submissions through the OpenAI chat
// completions API. The verdict is non-deterministic and the call can be
// slow or unavailable; callers treat any failure as a normal failed attempt.
type OpenAIReviewer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewOpenAIReviewer creates a reviewer client. The HTTP timeout is kept
// well below typical client cancellation so a slow oracle produces a clean
// failed-review response instead of a hang.
func NewOpenAIReviewer(apiKey, model string, logger *slog.Logger) *OpenAIReviewer {
	return &OpenAIReviewer{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com",
		client:  &http.Client{Timeout: 20 * time.Second},
		logger:  logger,
	}
}

// WithBaseURL overrides the API endpoint (tests point it at a local server).
func (r *OpenAIReviewer) WithBaseURL(u string) *OpenAIReviewer {
	r.baseURL = strings.TrimRight(u, "/")
	return r
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Review evaluates user code against the quest criteria.
// Returns (passed, feedback). A missing API key degrades to a failed
// review with an explanatory message rather than an error.
func (r *OpenAIReviewer) Review(ctx context.Context, code, language, questPrompt, criteria string) (bool, string, error) {
	if r.apiKey == "" {
		r.logger.Warn("openai api key not configured")
		return false, "Code review is not available. Please try again later.", nil
	}

	userPrompt := fmt.Sprintf(`Quest: %s

Criteria to evaluate:
%s

Language: %s

User's submitted code:
`+"```%s\n%s\n```"+`

Evaluate if this code meets the criteria. Be lenient - if it shows understanding of the concept and mostly works, pass it.`,
		questPrompt, criteria, language, language, code)

	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: reviewSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   300,
		Temperature: 0.3,
	})
	if err != nil {
		return false, "", fmt.Errorf("marshal review request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return false, "", fmt.Errorf("create review request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("review api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return false, "", fmt.Errorf("review api error (status %d): %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, "", fmt.Errorf("decode review response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return false, "", fmt.Errorf("review response contained no choices")
	}

	passed, feedback := parseVerdict(parsed.Choices[0].Message.Content)
	return passed, feedback, nil
}

// parseVerdict splits the "PASS"/"FAIL" first line from the feedback body.
func parseVerdict(content string) (bool, string) {
	content = strings.TrimSpace(content)
	first, rest, found := strings.Cut(content, "\n")

	passed := strings.HasPrefix(strings.ToUpper(strings.TrimSpace(first)), "PASS")
	feedback := content
	if found {
		feedback = strings.TrimSpace(rest)
	}
	return passed, feedback
}
