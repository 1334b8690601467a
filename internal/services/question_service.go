package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

// QuestionStore reads and takes the per-user questions accumulator and
// reports what is still buffered for the user.
type QuestionStore interface {
	Questions(ctx context.Context, telegramID int64) (map[string]string, error)
	TakeQuestions(ctx context.Context, telegramID int64) (map[string]string, error)
	Pending(ctx context.Context, telegramID int64) (int64, error)
	QuestionsTTL(ctx context.Context, telegramID int64) (time.Duration, error)
}

// QuestionService exposes the pending clarification questions of a user.
type QuestionService struct {
	Store QuestionStore
}

// PendingQuestions is the state of a user's clarification round.
type PendingQuestions struct {
	Questions map[string]string
	Text      string
	// Queued counts messages still waiting for the batch timer.
	Queued int64
	// ExpiresIn is zero when no questions are stored.
	ExpiresIn time.Duration
}

// Pending returns the accumulated questions, their rendered text, the number
// of buffered messages and the remaining lifetime of the questions.
func (s *QuestionService) Pending(ctx context.Context, telegramID int64) (*PendingQuestions, error) {
	if telegramID <= 0 {
		return nil, ErrInvalidTelegramID
	}
	q, err := s.Store.Questions(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	queued, err := s.Store.Pending(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	out := &PendingQuestions{Questions: q, Text: RenderQuestions(q), Queued: queued}
	if len(q) > 0 {
		ttl, err := s.Store.QuestionsTTL(ctx, telegramID)
		if err != nil {
			return nil, err
		}
		// Redis reports missing keys and keys without expiry as negative.
		if ttl > 0 {
			out.ExpiresIn = ttl
		}
	}
	return out, nil
}

// Take removes the pending questions and returns what was removed, so a
// merge landing after a separate read is never dropped unseen.
func (s *QuestionService) Take(ctx context.Context, telegramID int64) (*PendingQuestions, error) {
	if telegramID <= 0 {
		return nil, ErrInvalidTelegramID
	}
	q, err := s.Store.TakeQuestions(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return &PendingQuestions{Questions: q, Text: RenderQuestions(q)}, nil
}

// RenderQuestions joins questions into one message, one per line. Known
// fields follow attribute order; anything else follows alphabetically.
func RenderQuestions(q map[string]string) string {
	if len(q) == 0 {
		return ""
	}
	lines := make([]string, 0, len(q))
	seen := make(map[string]bool, len(q))
	for _, f := range domain.Fields {
		if v := strings.TrimSpace(q[f]); v != "" {
			lines = append(lines, v)
		}
		seen[f] = true
	}
	rest := make([]string, 0)
	for k := range q {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if v := strings.TrimSpace(q[k]); v != "" {
			lines = append(lines, v)
		}
	}
	return strings.Join(lines, "\n")
}
