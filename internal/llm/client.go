package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/revrost/go-openrouter"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"osintgraph/internal/extract"
)

const (
	DefaultModel   = "openai/gpt-4o-mini"
	DefaultTimeout = 30 * time.Second
)

const extractPrompt = `You extract named entities for an open-source intelligence investigation.
Return a JSON object of the form {"entities":[{"text":"...","type":"..."}]}.
Use types such as PERSON, ORGANIZATION, LOCATION, EMAIL, DOMAIN, IP, USERNAME, PHONE, URL.
List entities in the order they appear in the text. Do not add commentary.`

const summaryPrompt = `You are an intelligence analyst. Summarize the text below for an
investigation: who and what is involved, notable links between entities, and
anything that looks suspicious or worth following up. Be concise.`

// completeFunc sends one chat completion and returns the text of the first
// choice
type completeFunc func(ctx context.Context, req openrouter.ChatCompletionRequest) (string, error)

// Config configures the client
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is a language-model backed NLP and summary capability. Calls run
// with a timeout and behind a circuit breaker so a failing provider is
// reported quickly instead of hanging callers.
type Client struct {
	model    string
	timeout  time.Duration
	complete completeFunc
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

var (
	_ extract.NLP        = (*Client)(nil)
	_ extract.Summarizer = (*Client)(nil)
)

// New creates an OpenRouter-backed client
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: API key required")
	}
	or := openrouter.NewClient(cfg.APIKey)
	complete := func(ctx context.Context, req openrouter.ChatCompletionRequest) (string, error) {
		resp, err := or.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no completion choices returned")
		}
		return resp.Choices[0].Message.Content.Text, nil
	}
	return newClient(cfg, complete, logger), nil
}

func newClient(cfg Config, complete completeFunc, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		complete: complete,
		breaker:  breaker,
		logger:   logger,
	}
}

func (c *Client) call(ctx context.Context, req openrouter.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, req)
	})
	if err != nil {
		c.logger.Warn("completion failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	c.logger.Debug("completion done",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)))
	return out.(string), nil
}

type extraction struct {
	Entities []extract.Chunk `json:"entities"`
}

// Extract asks the model for the named entities in text
func (c *Client) Extract(ctx context.Context, text string) ([]extract.Chunk, error) {
	req := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: extractPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: text},
			},
		},
		ResponseFormat: &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	raw, err := c.call(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("entity extraction: %w", err)
	}

	var parsed extraction
	if err := json.Unmarshal([]byte(stripFence(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("entity extraction: response is not valid JSON: %w", err)
	}
	return parsed.Entities, nil
}

// Summarize asks the model for an investigative summary of text
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	req := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: summaryPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: text},
			},
		},
	}

	out, err := c.call(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// stripFence removes a markdown code fence some models wrap JSON in
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
