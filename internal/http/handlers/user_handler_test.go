package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

func TestRegisterUser_CreateThenExisting(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/users", RegisterUserRequest{TelegramID: 77, Username: " anna "})
	if w.Code != http.StatusCreated {
		t.Fatalf("first register = %d %s", w.Code, w.Body.String())
	}
	first := decode[domain.User](t, w)
	if first.TelegramID != 77 || first.Username != "anna" {
		t.Fatalf("user = %+v", first)
	}

	w = e.do(t, http.MethodPost, "/api/v1/users", RegisterUserRequest{TelegramID: 77, Username: "other"})
	if w.Code != http.StatusOK {
		t.Fatalf("second register = %d", w.Code)
	}
	if again := decode[domain.User](t, w); again.ID != first.ID || again.Username != "anna" {
		t.Fatalf("existing user changed: %+v", again)
	}
}

func TestRegisterUser_BadBody(t *testing.T) {
	e := newEnv(t)
	for _, body := range []any{"{", map[string]any{"telegram_id": 0}, map[string]any{"telegram_id": -5}} {
		expectError(t, e.do(t, http.MethodPost, "/api/v1/users", body), http.StatusBadRequest, ErrCodeBadRequest)
	}
}

func TestListAndGetUsers(t *testing.T) {
	e := newEnv(t)
	for _, id := range []int64{1, 2, 3} {
		e.do(t, http.MethodPost, "/api/v1/users", RegisterUserRequest{TelegramID: id})
	}

	w := e.do(t, http.MethodGet, "/api/v1/users?page=2&page_size=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	page := decode[ListUsersResponse](t, w)
	if len(page.Users) != 1 || page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 || page.Pagination.HasNext {
		t.Fatalf("page = %+v", page)
	}

	w = e.do(t, http.MethodGet, "/api/v1/users/"+page.Users[0].ID, nil)
	if w.Code != http.StatusOK || decode[domain.User](t, w).ID != page.Users[0].ID {
		t.Fatalf("get = %d %s", w.Code, w.Body.String())
	}

	expectError(t, e.do(t, http.MethodGet, "/api/v1/users/not-a-uuid", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, e.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString(), nil), http.StatusNotFound, ErrCodeNotFound)
}
