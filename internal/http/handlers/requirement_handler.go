// Requirement HTTP handlers:
//   - GET /requirements       (paginated)
//   - PUT /requirements/{id}  (replace required fields and questions)
//
// The pipeline creates requirements empty; operators fill them in here.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

// UpdateRequirementRequest replaces a requirement's fields and questions.
type UpdateRequirementRequest struct {
	RequiredFields []string          `json:"required_fields" example:"quantity,time"`
	Questions      map[string]string `json:"questions"`
}

// ListRequirementsResponse wraps a page of requirements.
type ListRequirementsResponse struct {
	Requirements []domain.Requirement `json:"requirements"`
	Pagination   Pagination           `json:"pagination"`
}

// ListRequirements godoc
// @ID          listRequirements
// @Summary     List requirements
// @Tags        Requirements
// @Produce     json
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListRequirementsResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /requirements [get]
func (h *Handlers) ListRequirements(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.reqSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListRequirementsResponse{Requirements: items, Pagination: newPagination(page, pageSize, total)})
}

// UpdateRequirement godoc
// @ID          updateRequirement
// @Summary     Fill in a requirement
// @Description Field names must be attribute names (quantity, time, location, ...).
// @Tags        Requirements
// @Accept      json
// @Produce     json
// @Param       id    path      int  true  "Requirement ID"
// @Param       body  body      handlers.UpdateRequirementRequest  true  "Fields and questions"
// @Success     200   {object}  domain.Requirement
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /requirements/{id} [put]
func (h *Handlers) UpdateRequirement(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "requirement id must be a positive integer")
		return
	}
	var req UpdateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid body")
		return
	}
	r, err := h.reqSvc.Update(c.Request.Context(), uint(id), req.RequiredFields, req.Questions)
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, r)
}
