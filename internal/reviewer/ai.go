package reviewer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	messagesPath     = "/v1/messages"
	apiVersion       = "2023-06-01"
	defaultModel     = "claude-sonnet-4-20250514"
	maxTokens        = 2048
	apiTimeout       = 60 * time.Second
	maxErrorBodySize = 512
)

// ErrMissingAPIKey is returned by ExtractInsight when no API key is configured.
var ErrMissingAPIKey = errors.New("reviewer: API key is required for AI extraction")

// ErrNoText is returned when a response has no free text to analyze.
var ErrNoText = errors.New("reviewer: response has no feedback text")

// Options configures AI-assisted insight extraction.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	// Competencies limits the names the model may score. Empty means
	// feedback.CoreCompetencies.
	Competencies []string
	HTTPClient   *http.Client
}

const systemPrompt = `You analyze written 360-degree feedback about one employee.

Score each competency the feedback gives evidence for on a 1-5 scale, where 1 is a serious gap and 5 is exceptional. Skip competencies the text does not mention.

Rules:
- Only use competency names from the list provided.
- evidenceCount is the number of distinct observations supporting the score.
- evidenceQuotes are short verbatim excerpts from the feedback.
- confidence is "high", "medium" or "low" depending on how clear the evidence is.
- Output valid JSON matching the schema below and nothing else.

Output schema:
{
  "competencies": [
    {
      "name": "Communication",
      "score": 4,
      "evidenceCount": 2,
      "evidenceQuotes": ["..."],
      "description": "One sentence summary",
      "confidence": "medium"
    }
  ]
}`

// ExtractInsight sends a response's free text to the Anthropic Messages API
// and converts the returned competency scores into a feedback.Insight with a
// freshly generated ID.
func ExtractInsight(ctx context.Context, resp feedback.Response, opts Options) (feedback.Insight, error) {
	if opts.APIKey == "" {
		return feedback.Insight{}, ErrMissingAPIKey
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return feedback.Insight{}, ErrNoText
	}

	competencies := opts.Competencies
	if len(competencies) == 0 {
		competencies = feedback.CoreCompetencies
	}

	out, err := callMessagesAPI(ctx, opts, buildUserPrompt(resp, text, competencies))
	if err != nil {
		return feedback.Insight{}, fmt.Errorf("calling messages API: %w", err)
	}

	entries, err := parseCompetencies(out)
	if err != nil {
		return feedback.Insight{}, fmt.Errorf("parsing AI response: %w", err)
	}

	return feedback.Insight{
		ID:           uuid.NewString(),
		ResponseID:   resp.ID,
		Relationship: string(feedback.NormalizeRelationship(resp.Relationship)),
		Competencies: entries,
	}, nil
}

func buildUserPrompt(resp feedback.Response, text string, competencies []string) string {
	var sb strings.Builder
	sb.WriteString("## Competencies\n\n")
	for _, c := range competencies {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	fmt.Fprintf(&sb, "\n## Reviewer relationship\n\n%s\n", feedback.NormalizeRelationship(resp.Relationship))
	fmt.Fprintf(&sb, "\n## Feedback\n\n%s\n", text)
	return sb.String()
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// callMessagesAPI sends one user message and returns the concatenated text
// blocks of the reply.
func callMessagesAPI(ctx context.Context, opts Options, userPrompt string) (string, error) {
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: apiTimeout}
	}

	body, err := json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-api-key", opts.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(respBytes)
		if len(snippet) > maxErrorBodySize {
			snippet = snippet[:maxErrorBodySize]
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	var apiResp messagesResponse
	if err := json.Unmarshal(respBytes, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("API error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	var parts []string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("no text content in API response")
	}
	return strings.Join(parts, ""), nil
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

type competencyPayload struct {
	Competencies []struct {
		Name           string   `json:"name"`
		Score          float64  `json:"score"`
		EvidenceCount  int      `json:"evidenceCount"`
		EvidenceQuotes []string `json:"evidenceQuotes"`
		Description    string   `json:"description"`
		Confidence     string   `json:"confidence"`
	} `json:"competencies"`
}

// parseCompetencies decodes the model's JSON reply, tolerating markdown code
// fences. Entries without a name or with a score outside 1-5 are dropped.
func parseCompetencies(text string) ([]feedback.CompetencyEntry, error) {
	text = stripFences(text)

	var payload competencyPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w (response was: %.200s)", err, text)
	}

	var entries []feedback.CompetencyEntry
	for _, c := range payload.Competencies {
		name := strings.TrimSpace(c.Name)
		if name == "" || c.Score < analyzer.MinScore || c.Score > analyzer.MaxScore {
			continue
		}
		entries = append(entries, feedback.CompetencyEntry{
			Name:           name,
			Score:          c.Score,
			EvidenceCount:  max(c.EvidenceCount, 0),
			EvidenceQuotes: c.EvidenceQuotes,
			Description:    c.Description,
			Confidence:     strings.ToLower(c.Confidence),
		})
	}
	if len(entries) == 0 {
		return nil, errors.New("response contained no valid competency scores")
	}
	return entries, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
