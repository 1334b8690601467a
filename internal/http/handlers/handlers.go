// Package handlers exposes the REST boundary of the diary backend:
//   - users           (register, list, get)
//   - messages        (inbound queue trigger, read, clarify, delete)
//   - questions       (pending clarification questions per chat user)
//   - requirements    (list and fill in required fields and questions)
//   - topics          (the keyword index built by topic inference)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including
// conditional and idempotent ones).
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/services"
	"github.com/tbourn/go-diary-bot/internal/utils"
)

//
// Service contracts (context-aware)
//

// UserService registers and reads chat-platform users.
type UserService interface {
	Register(ctx context.Context, telegramID int64, username string) (*domain.User, bool, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
}

// MessageService buffers inbound text and maintains stored messages.
type MessageService interface {
	Enqueue(ctx context.Context, telegramID, externalID int64, text string, sentAt time.Time) error
	Get(ctx context.Context, id string) (*domain.Message, *domain.Entity, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Message, int64, error)
	Clarify(ctx context.Context, id, answer string) (*domain.Message, error)
	Delete(ctx context.Context, id string) error
}

// QuestionService reads and takes pending clarification questions.
type QuestionService interface {
	Pending(ctx context.Context, telegramID int64) (*services.PendingQuestions, error)
	Take(ctx context.Context, telegramID int64) (*services.PendingQuestions, error)
}

// RequirementService lists and edits requirements.
type RequirementService interface {
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Requirement, int64, error)
	Update(ctx context.Context, id uint, fields []string, questions map[string]string) (*domain.Requirement, error)
}

// TopicService lists the topic index.
type TopicService interface {
	List(ctx context.Context) ([]domain.Topic, error)
}

// DefaultIdempotencyTTL is how long an Idempotency-Key is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// Handlers groups the HTTP endpoints. It depends on service interfaces to
// keep transport concerns apart from business logic.
type Handlers struct {
	userSvc UserService
	msgSvc  MessageService
	qSvc    QuestionService
	reqSvc  RequirementService
	topics  TopicService

	// IdempotencyTTL bounds replay records; zero means DefaultIdempotencyTTL.
	IdempotencyTTL time.Duration
}

// New constructs Handlers bound to the given services.
func New(users UserService, msgs MessageService, questions QuestionService, reqs RequirementService, topics TopicService) *Handlers {
	return &Handlers{userSvc: users, msgSvc: msgs, qSvc: questions, reqSvc: reqs, topics: topics}
}

// db returns the database behind the concrete MessageService, if any.
// Idempotency records and ETags are skipped without one.
func (h *Handlers) db() *gorm.DB {
	if svc, ok := h.msgSvc.(*services.MessageService); ok {
		return svc.DB
	}
	return nil
}

func (h *Handlers) idempotencyTTL() time.Duration {
	if h.IdempotencyTTL > 0 {
		return h.IdempotencyTTL
	}
	return DefaultIdempotencyTTL
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}
