package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

// ListTopicsResponse wraps the topic index.
type ListTopicsResponse struct {
	Topics []domain.Topic `json:"topics"`
}

// ListTopics godoc
// @ID          listTopics
// @Summary     List topics with their keywords
// @Tags        Topics
// @Produce     json
// @Success     200  {object}  handlers.ListTopicsResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /topics [get]
func (h *Handlers) ListTopics(c *gin.Context) {
	topics, err := h.topics.List(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListTopicsResponse{Topics: topics})
}
