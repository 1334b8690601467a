package handlers

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

func TestRequirements_ListAndUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r, err := repo.CreateRequirement(ctx, e.db, "выпить", "кофе")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.CreateRequirement(ctx, e.db, "гулять", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := e.do(t, http.MethodGet, "/api/v1/requirements?page_size=1", nil)
	page := decode[ListRequirementsResponse](t, w)
	if w.Code != http.StatusOK || len(page.Requirements) != 1 || page.Pagination.Total != 2 || page.Requirements[0].ID != r.ID {
		t.Fatalf("list = %d %+v", w.Code, page)
	}

	path := "/api/v1/requirements/" + strconv.FormatUint(uint64(r.ID), 10)
	w = e.do(t, http.MethodPut, path, UpdateRequirementRequest{
		RequiredFields: []string{"quantity", "time", "quantity"},
		Questions:      map[string]string{"quantity": "Сколько кофе?", "time": " Во сколько? "},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}
	got := decode[domain.Requirement](t, w)
	if len(got.RequiredFields) != 2 || got.Questions.Data()["time"] != "Во сколько?" {
		t.Fatalf("updated = %+v", got)
	}
}

func TestRequirements_UpdateErrors(t *testing.T) {
	e := newEnv(t)
	r, err := repo.CreateRequirement(context.Background(), e.db, "выпить", "чай")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	path := "/api/v1/requirements/" + strconv.FormatUint(uint64(r.ID), 10)

	expectError(t, e.do(t, http.MethodPut, path, UpdateRequirementRequest{RequiredFields: []string{"mood"}}),
		http.StatusBadRequest, ErrCodeUnknownField)
	expectError(t, e.do(t, http.MethodPut, path, "{"), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, e.do(t, http.MethodPut, "/api/v1/requirements/0", UpdateRequirementRequest{}), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, e.do(t, http.MethodPut, "/api/v1/requirements/999", UpdateRequirementRequest{}), http.StatusNotFound, ErrCodeNotFound)
}
