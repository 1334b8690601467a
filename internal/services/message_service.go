// Package services – MessageService
//
// This file implements MessageService, the boundary-facing component that
// owns the lifecycle of diary messages outside the enrichment pipeline:
// accepting inbound text into the debounce queue, reading messages back,
// applying clarification answers and deleting messages.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include user/message identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/queue"
	"github.com/tbourn/go-diary-bot/internal/repo"
	"github.com/tbourn/go-diary-bot/internal/utils"
)

// DefaultMaxTextRunes bounds inbound text when MaxTextRunes is unset.
const DefaultMaxTextRunes = 220

// QueueWriter buffers inbound messages for debouncing.
type QueueWriter interface {
	Enqueue(ctx context.Context, telegramID int64, e queue.Entry) error
}

// MessageService coordinates inbound buffering and message maintenance.
type MessageService struct {
	DB    *gorm.DB
	Queue QueueWriter

	// MaxTextRunes caps inbound and clarification text; 0 means the default.
	MaxTextRunes int
}

// Enqueue validates an inbound message and buffers it for the user. The
// pipeline runs later, when the user's debounce window closes.
func (s *MessageService) Enqueue(ctx context.Context, telegramID, externalID int64, text string, sentAt time.Time) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Enqueue",
		trace.WithAttributes(
			attribute.Int64("tg.user_id", telegramID),
			attribute.Int64("message.external_id", externalID),
		),
	)
	defer span.End()

	if telegramID <= 0 {
		return ErrInvalidTelegramID
	}
	text, err := s.validateText(text)
	if err != nil {
		return err
	}
	if _, err := repo.GetUserByTelegramID(ctx, s.DB, telegramID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	return s.Queue.Enqueue(ctx, telegramID, queue.Entry{
		MessageID: externalID,
		Text:      text,
		Timestamp: float64(sentAt.UnixNano()) / float64(time.Second),
	})
}

// Get returns a message and its entity. The entity is nil while the message
// has not been enriched.
func (s *MessageService) Get(ctx context.Context, id string) (*domain.Message, *domain.Entity, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("message.id", id)))
	defer span.End()

	m, err := repo.GetMessage(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	e, err := repo.GetEntity(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return m, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return m, e, nil
}

// ListPage returns paginated messages for a user.
func (s *MessageService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	limit, offset := utils.LimitOffset(page, pageSize)

	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := repo.ListMessagesPage(ctx, s.DB, userID, offset, limit)
	return items, total, err
}

// Clarify appends the user's answer to the message text and marks the
// message complete.
func (s *MessageService) Clarify(ctx context.Context, id, answer string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Clarify", trace.WithAttributes(attribute.String("message.id", id)))
	defer span.End()

	answer, err := s.validateText(answer)
	if err != nil {
		return nil, err
	}

	var out *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.GetMessage(ctx, tx, id)
		if err != nil {
			return err
		}
		text := strings.TrimSpace(m.Text + "\n" + answer)
		if err := repo.UpdateMessageFields(ctx, tx, id, map[string]any{
			"text":        text,
			"is_complete": true,
		}); err != nil {
			return err
		}
		out, err = repo.GetMessage(ctx, tx, id)
		return err
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a message and its entity.
func (s *MessageService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("message.id", id)))
	defer span.End()

	err := repo.DeleteMessage(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMessageNotFound
	}
	return err
}

func (s *MessageService) validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	max := s.MaxTextRunes
	if max <= 0 {
		max = DefaultMaxTextRunes
	}
	if utf8.RuneCountInString(text) > max {
		return "", ErrTooLong
	}
	return text, nil
}
