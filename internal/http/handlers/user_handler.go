// User HTTP handlers:
//   - POST /users       (create-or-get by telegram id)
//   - GET  /users       (paginated list)
//   - GET  /users/{id}  (read)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

// RegisterUserRequest is the payload sent by the chat adapter on /start.
type RegisterUserRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required,gt=0" example:"123456789"`
	Username   string `json:"username" binding:"max=255" example:"anna"`
}

// ListUsersResponse wraps a page of users.
type ListUsersResponse struct {
	Users      []domain.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register a chat user
// @Description Creates the user for a telegram id, or returns the existing one.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterUserRequest  true  "User"
// @Success     201   {object}  domain.User  "Created"
// @Success     200   {object}  domain.User  "Already registered"
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /users [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "telegram_id must be a positive integer")
		return
	}
	u, created, err := h.userSvc.Register(c.Request.Context(), req.TelegramID, req.Username)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, u)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users
// @Tags        Users
// @Produce     json
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListUsersResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.userSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListUsersResponse{Users: items, Pagination: newPagination(page, pageSize, total)})
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Param       id   path      string  true  "User ID"  format(uuid)
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a UUID")
		return
	}
	u, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, u)
}
