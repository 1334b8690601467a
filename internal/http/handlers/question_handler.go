// Question HTTP handlers:
//   - GET    /questions/{telegram_id}
//   - DELETE /questions/{telegram_id}
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// QuestionsResponse lists pending questions by field, plus the rendered text
// the bot would send. Queued counts messages not yet batched; ExpiresIn is
// the remaining lifetime of the questions in seconds.
type QuestionsResponse struct {
	TelegramID int64             `json:"telegram_id" example:"123456789"`
	Questions  map[string]string `json:"questions"`
	Text       string            `json:"text" example:"Сколько кофе?"`
	Queued     int64             `json:"queued" example:"2"`
	ExpiresIn  int64             `json:"expires_in" example:"3540"`
}

// GetQuestions godoc
// @ID          getQuestions
// @Summary     Pending clarification questions
// @Tags        Questions
// @Produce     json
// @Param       telegram_id  path      int  true  "Telegram user id"
// @Success     200          {object}  handlers.QuestionsResponse
// @Failure     400          {object}  handlers.ErrorResponse
// @Failure     500          {object}  handlers.ErrorResponse
// @Router      /questions/{telegram_id} [get]
func (h *Handlers) GetQuestions(c *gin.Context) {
	id, valid := telegramIDParam(c)
	if !valid {
		return
	}
	p, err := h.qSvc.Pending(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeUnavailable)
		return
	}
	q := p.Questions
	if q == nil {
		q = map[string]string{}
	}
	ok(c, http.StatusOK, QuestionsResponse{
		TelegramID: id,
		Questions:  q,
		Text:       p.Text,
		Queued:     p.Queued,
		ExpiresIn:  int64(p.ExpiresIn / time.Second),
	})
}

// TakeQuestions godoc
// @ID          takeQuestions
// @Summary     Remove pending clarification questions and return them
// @Tags        Questions
// @Produce     json
// @Param       telegram_id  path      int  true  "Telegram user id"
// @Success     200          {object}  handlers.QuestionsResponse
// @Failure     400          {object}  handlers.ErrorResponse
// @Failure     500          {object}  handlers.ErrorResponse
// @Router      /questions/{telegram_id} [delete]
func (h *Handlers) TakeQuestions(c *gin.Context) {
	id, valid := telegramIDParam(c)
	if !valid {
		return
	}
	p, err := h.qSvc.Take(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeUnavailable)
		return
	}
	q := p.Questions
	if q == nil {
		q = map[string]string{}
	}
	ok(c, http.StatusOK, QuestionsResponse{TelegramID: id, Questions: q, Text: p.Text})
}

func telegramIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "telegram_id must be a positive integer")
		return 0, false
	}
	return id, true
}
