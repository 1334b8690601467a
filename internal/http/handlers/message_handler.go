// Message HTTP handlers.
//
// This file exposes REST endpoints for diary messages:
//   - POST   /messages/queue        (inbound trigger from the chat adapter)
//   - GET    /messages/{id}         (message and its extracted entity)
//   - PUT    /messages/{id}         (append a clarification answer)
//   - DELETE /messages/{id}
//   - GET    /users/{id}/messages   (paginated, weak ETag)
//
// Idempotency:
// If the adapter retries an enqueue with the same Idempotency-Key, the text is
// not queued twice; the handler answers 202 again with
// `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/http/middleware"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

//
// DTOs
//

// EnqueueMessageRequest is one inbound chat message.
type EnqueueMessageRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required,gt=0" example:"123456789"`
	MessageID  int64  `json:"message_id" example:"42"`
	Text       string `json:"text" binding:"required" example:"выпил 2 чашки кофе"`
	// SentAt defaults to the time of receipt.
	SentAt *time.Time `json:"sent_at,omitempty"`
}

// EnqueueMessageResponse acknowledges a buffered message.
type EnqueueMessageResponse struct {
	Status string `json:"status" example:"queued"`
}

// ClarifyMessageRequest carries the user's answer to pending questions.
type ClarifyMessageRequest struct {
	Answer string `json:"answer" binding:"required" example:"две чашки"`
}

// MessageResponse is a message with its entity; Entity is null until the
// message has been enriched.
type MessageResponse struct {
	Message *domain.Message `json:"message"`
	Entity  *domain.Entity  `json:"entity"`
}

// ListMessagesResponse contains a page of messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// nlCollapseRE collapses runs of 3+ newlines to two.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeText normalizes line endings and trims the text.
func sanitizeText(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

//
// Handlers
//

// EnqueueMessage godoc
// @ID          enqueueMessage
// @Summary     Buffer an inbound message
// @Description Adds the text to the user's debounce queue. The enrichment pipeline
// @Description runs once the user stops writing for the debounce window.
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Key for safe retries"
// @Param       body             body    handlers.EnqueueMessageRequest  true  "Message"
// @Success     202  {object}  handlers.EnqueueMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown user"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /messages/queue [post]
func (h *Handlers) EnqueueMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req EnqueueMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "telegram_id and text are required")
		return
	}
	text := sanitizeText(req.Text)
	if text == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is empty")
		return
	}

	if middleware.IsReplay(c) {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusAccepted, EnqueueMessageResponse{Status: "queued"})
		return
	}

	var sentAt time.Time
	if req.SentAt != nil {
		sentAt = *req.SentAt
	}
	if err := h.msgSvc.Enqueue(ctx, req.TelegramID, req.MessageID, text, sentAt); err != nil {
		failService(c, err, ErrCodeEnqueueFailed)
		return
	}

	// Best effort: a lost record only means a retry queues the text again.
	if key, has := middleware.GetIdempotencyKey(c); has {
		if db := h.db(); db != nil {
			scope, subject := middleware.IdempotencyScope(c)
			_, _ = repo.CreateIdempotency(ctx, db, scope, subject, key,
				strconv.FormatInt(req.MessageID, 10), http.StatusAccepted, h.idempotencyTTL())
		}
	}

	ok(c, http.StatusAccepted, EnqueueMessageResponse{Status: "queued"})
}

// GetMessage godoc
// @ID          getMessage
// @Summary     Get a message
// @Tags        Messages
// @Produce     json
// @Param       id   path      string  true  "Message ID"  format(uuid)
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /messages/{id} [get]
func (h *Handlers) GetMessage(c *gin.Context) {
	id, valid := messageID(c)
	if !valid {
		return
	}
	m, e, err := h.msgSvc.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: m, Entity: e})
}

// ClarifyMessage godoc
// @ID          clarifyMessage
// @Summary     Answer clarification questions
// @Description Appends the answer to the message text and marks the message complete.
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Param       id    path      string  true  "Message ID"  format(uuid)
// @Param       body  body      handlers.ClarifyMessageRequest  true  "Answer"
// @Success     200   {object}  domain.Message
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /messages/{id} [put]
func (h *Handlers) ClarifyMessage(c *gin.Context) {
	id, valid := messageID(c)
	if !valid {
		return
	}
	var req ClarifyMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "answer required")
		return
	}
	m, err := h.msgSvc.Clarify(c.Request.Context(), id, sanitizeText(req.Answer))
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete a message
// @Tags        Messages
// @Param       id   path  string  true  "Message ID"  format(uuid)
// @Success     204
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /messages/{id} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	id, valid := messageID(c)
	if !valid {
		return
	}
	if err := h.msgSvc.Delete(c.Request.Context(), id); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// ListUserMessages godoc
// @ID          listUserMessages
// @Summary     List a user's messages
// @Tags        Messages
// @Produce     json
// @Param       id             path    string  true   "User ID"  format(uuid)
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Success     200  {object}  handlers.ListMessagesResponse
// @Success     304  "Not modified"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /users/{id}/messages [get]
func (h *Handlers) ListUserMessages(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")
	if _, err := uuid.Parse(userID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort). Page params are part of the tag.
	if db := h.db(); db != nil {
		if count, maxTS, err := repo.MessagesStats(ctx, db, userID); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d:%d:%d"`, userID, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.msgSvc.ListPage(ctx, userID, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: newPagination(page, pageSize, total)})
}

func messageID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return "", false
	}
	return id, true
}
