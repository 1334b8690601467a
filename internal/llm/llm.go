// Package llm is the inference-service collaborator: prompt text in, answer
// text and token cost out. The pipeline only depends on the Completer
// interface; OpenAIClient is the production implementation for any
// OpenAI-compatible endpoint.
package llm

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrEmptyResponse is returned when the service answered without choices.
var ErrEmptyResponse = errors.New("llm: empty response")

// Completion is one answer with its token cost.
type Completion struct {
	Text   string
	Tokens int
}

// Completer sends a prompt to the inference service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (Completion, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (Completion, error) {
	return f(ctx, prompt)
}

var (
	llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diary_llm_requests_total",
			Help: "Inference requests by result (ok, error).",
		},
		[]string{"result"},
	)

	llmTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diary_llm_tokens_total",
			Help: "Tokens billed by the inference service.",
		},
	)

	llmLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diary_llm_request_duration_seconds",
			Help:    "Inference request latency in seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(llmRequests, llmTokens, llmLatency)
}
