package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mwhited/taskflow/internal/task"
)

// ErrMissingAPIKey is returned when no model API key is configured.
var ErrMissingAPIKey = errors.New("model api key not configured")

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	timeout    time.Duration
	maxRetries int
}

// NewGeminiClient builds a client. timeout bounds each attempt, and
// maxRetries is the number of extra attempts after the first.
func NewGeminiClient(baseURL, model, apiKey string, timeout time.Duration, maxRetries int) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		model:      model,
		apiKey:     apiKey,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// taskSummary is the compact task shape embedded in the prompt.
type taskSummary struct {
	Title    string `json:"title"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Deadline string `json:"deadline"`
}

// GenerateDrafts asks the model for suggestions based on the user's tasks.
// Rate limiting and attempt timeouts are retried with linear backoff; any
// other failure is returned immediately.
func (c *GeminiClient) GenerateDrafts(ctx context.Context, tasks []*task.Task) ([]Draft, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	prompt, err := buildPrompt(tasks)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		text, err := c.generateContent(ctx, prompt)
		if err != nil {
			lastErr = err
			if retryable(err) {
				continue
			}
			return nil, err
		}
		return ParseModelResponse(text)
	}
	return nil, lastErr
}

func (c *GeminiClient) generateContent(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode model request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode, data)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", ErrUnusableResponse
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

var errRateLimited = errors.New("model rate limited")

func retryable(err error) bool {
	return errors.Is(err, errRateLimited) || errors.Is(err, context.DeadlineExceeded)
}

func buildPrompt(tasks []*task.Task) (string, error) {
	summaries := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, taskSummary{
			Title:    t.Title,
			Priority: t.Priority,
			Status:   t.Status,
			Deadline: t.Deadline.Format(time.RFC3339),
		})
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		return "", fmt.Errorf("encode task summary: %w", err)
	}

	return fmt.Sprintf(`Based on the following tasks, generate up to 5 productivity suggestions.
Respond with a JSON array only, no prose. Each element must have the fields
"title", "description", "category" (one of "productivity", "time-management",
"priority", "automation") and "impact" (one of "low", "medium", "high").

Tasks: %s`, data), nil
}
