package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Config configures OpenAIClient.
type Config struct {
	APIKey      string
	BaseURL     string // empty = api.openai.com
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	// RPS caps outgoing requests per second; 0 disables the limiter.
	RPS float64
}

// chatAPI is the subset of *openai.Client we use.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements Completer with a single-turn chat completion.
type OpenAIClient struct {
	api       chatAPI
	cfg       Config
	limiter   *rate.Limiter
	estimator TokenCounter
}

// NewOpenAIClient builds a client for the configured endpoint.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return newOpenAIClient(openai.NewClientWithConfig(oc), cfg)
}

func newOpenAIClient(api chatAPI, cfg Config) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 50
	}
	c := &OpenAIClient{api: api, cfg: cfg, estimator: DefaultTokenCounter()}
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c
}

// Complete sends prompt as a user message. The token cost is the usage the
// service reports, or a local estimate of prompt plus answer when the service
// reports none.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (Completion, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Completion{}, fmt.Errorf("llm: rate limit: %w", err)
		}
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	llmLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		llmRequests.WithLabelValues("error").Inc()
		return Completion{}, fmt.Errorf("llm: %w", err)
	}
	if len(resp.Choices) == 0 {
		llmRequests.WithLabelValues("error").Inc()
		return Completion{}, ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	tokens := resp.Usage.TotalTokens
	if tokens == 0 && c.estimator != nil {
		tokens = c.estimator.CountTokens(prompt) + c.estimator.CountTokens(text)
		log.Debug().Int("estimated_tokens", tokens).Msg("llm: usage missing, using local estimate")
	}
	llmRequests.WithLabelValues("ok").Inc()
	llmTokens.Add(float64(tokens))
	return Completion{Text: text, Tokens: tokens}, nil
}
