package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"reviews_dashboard/internal/wbapi"
)

// DefaultHTTPTimeout sets the maximum duration of a single completion request.
const DefaultHTTPTimeout = 60 * time.Second

// Generation defaults taken from the dashboard's original settings.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 150
)

// Client wraps a chat-completions API. It builds a deterministic prompt from
// a feedback item and returns the first choice verbatim: no length or content
// post-validation, no retry, no streaming.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	log         *zap.SugaredLogger
}

// Option mutates the client during construction.
type Option func(*Client)

// WithBaseURL overrides the default API endpoint (e.g. a compatible provider).
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if raw != "" {
			c.baseURL = strings.TrimRight(raw, "/")
		}
	}
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger allows injecting custom zap logger. If nil, a no-op logger will be used.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient overrides the default http.Client (mainly for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New constructs Client with mandatory API key and optional modifiers.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:     "https://api.openai.com/v1",
		apiKey:      apiKey,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		log:         zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate produces a reply draft for the given feedback. instructions is
// the seller's free-text guidance appended to the fixed system rules.
func (c *Client) Generate(ctx context.Context, fb wbapi.Feedback, instructions string) (string, error) {
	reqBody := completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: BuildSystemPrompt(instructions)},
			{Role: "user", Content: BuildUserPrompt(fb)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(reqBody); err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion api http %d: %s", resp.StatusCode, string(b))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion api returned no choices")
	}

	reply := out.Choices[0].Message.Content
	c.log.Debugw("generated reply", "feedback_id", fb.ID, "len", len(reply))
	return reply, nil
}
