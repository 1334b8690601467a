package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

func seedUser(t *testing.T, e *testEnv, tgID int64) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), e.db, tgID, "tester")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedMessage(t *testing.T, e *testEnv, userID, text string) *domain.Message {
	t.Helper()
	m, err := repo.CreateMessage(context.Background(), e.db, userID, 1, text, time.Now())
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return m
}

func TestEnqueueMessage_Accepted(t *testing.T) {
	e := newEnv(t)
	seedUser(t, e, 5)
	sent := time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)

	w := e.do(t, http.MethodPost, "/api/v1/messages/queue", EnqueueMessageRequest{
		TelegramID: 5, MessageID: 42, Text: "  выпил\r\n\r\n\r\nкофе ", SentAt: &sent,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	got := e.q.queued(5)
	if len(got) != 1 || got[0].MessageID != 42 || got[0].Text != "выпил\n\nкофе" {
		t.Fatalf("queued = %+v", got)
	}
	if math.Abs(got[0].Timestamp-float64(sent.Unix())) > 1e-3 {
		t.Fatalf("timestamp = %v", got[0].Timestamp)
	}
}

func TestEnqueueMessage_Errors(t *testing.T) {
	e := newEnv(t)
	seedUser(t, e, 5)

	expectError(t, e.do(t, http.MethodPost, "/api/v1/messages/queue", map[string]any{"telegram_id": 5}),
		http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, e.do(t, http.MethodPost, "/api/v1/messages/queue", EnqueueMessageRequest{TelegramID: 5, Text: " \n "}),
		http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, e.do(t, http.MethodPost, "/api/v1/messages/queue", EnqueueMessageRequest{TelegramID: 5, Text: strings.Repeat("я", 21)}),
		http.StatusBadRequest, ErrCodeTextTooLong)
	expectError(t, e.do(t, http.MethodPost, "/api/v1/messages/queue", EnqueueMessageRequest{TelegramID: 6, Text: "кофе"}),
		http.StatusNotFound, ErrCodeNotFound)

	e.q.err = errQueueDown
	expectError(t, e.do(t, http.MethodPost, "/api/v1/messages/queue", EnqueueMessageRequest{TelegramID: 5, Text: "кофе"}),
		http.StatusInternalServerError, ErrCodeEnqueueFailed)
	if len(e.q.queued(5)) != 0 {
		t.Fatalf("nothing should be queued")
	}
}

func TestEnqueueMessage_IdempotentReplay(t *testing.T) {
	e := newEnv(t)
	seedUser(t, e, 5)
	body := EnqueueMessageRequest{TelegramID: 5, MessageID: 1, Text: "гулял"}

	w := e.do(t, http.MethodPost, "/api/v1/messages/queue", body, "Idempotency-Key", "k-1", "X-Telegram-ID", "5")
	if w.Code != http.StatusAccepted || w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first = %d replayed=%q", w.Code, w.Header().Get("Idempotency-Replayed"))
	}
	w = e.do(t, http.MethodPost, "/api/v1/messages/queue", body, "Idempotency-Key", "k-1", "X-Telegram-ID", "5")
	if w.Code != http.StatusAccepted || w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay = %d replayed=%q", w.Code, w.Header().Get("Idempotency-Replayed"))
	}
	if n := len(e.q.queued(5)); n != 1 {
		t.Fatalf("queued %d entries, want 1", n)
	}

	// The same key from another caller is a different request.
	e.do(t, http.MethodPost, "/api/v1/messages/queue", body, "Idempotency-Key", "k-1", "X-Telegram-ID", "9")
	if n := len(e.q.queued(5)); n != 2 {
		t.Fatalf("queued %d entries, want 2", n)
	}
}

func TestGetClarifyDeleteMessage(t *testing.T) {
	e := newEnv(t)
	u := seedUser(t, e, 5)
	m := seedMessage(t, e, u.ID, "выпил кофе")
	path := "/api/v1/messages/" + m.ID

	w := e.do(t, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	got := decode[MessageResponse](t, w)
	if got.Message == nil || got.Message.Text != "выпил кофе" || got.Entity != nil {
		t.Fatalf("get body = %s", w.Body.String())
	}

	w = e.do(t, http.MethodPut, path, ClarifyMessageRequest{Answer: "две чашки"})
	if w.Code != http.StatusOK {
		t.Fatalf("clarify = %d %s", w.Code, w.Body.String())
	}
	cm := decode[domain.Message](t, w)
	if cm.Text != "выпил кофе\nдве чашки" || cm.IsComplete == nil || !*cm.IsComplete {
		t.Fatalf("clarified = %+v", cm)
	}
	expectError(t, e.do(t, http.MethodPut, path, map[string]string{}), http.StatusBadRequest, ErrCodeBadRequest)

	if w := e.do(t, http.MethodDelete, path, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	expectError(t, e.do(t, http.MethodGet, path, nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, e.do(t, http.MethodDelete, path, nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, e.do(t, http.MethodGet, "/api/v1/messages/123", nil), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestListUserMessages_PaginationAndETag(t *testing.T) {
	e := newEnv(t)
	u := seedUser(t, e, 5)
	for _, text := range []string{"раз", "два", "три"} {
		seedMessage(t, e, u.ID, text)
	}
	path := "/api/v1/users/" + u.ID + "/messages?page_size=2"

	w := e.do(t, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d %s", w.Code, w.Body.String())
	}
	page := decode[ListMessagesResponse](t, w)
	if len(page.Messages) != 2 || page.Pagination.Total != 3 || !page.Pagination.HasNext {
		t.Fatalf("page = %+v", page.Pagination)
	}
	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"messages:`+u.ID) {
		t.Fatalf("etag = %q", etag)
	}

	if w := e.do(t, http.MethodGet, path, nil, "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("conditional = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/v1/users/"+u.ID+"/messages?page=2&page_size=2", nil, "If-None-Match", etag); w.Code != http.StatusOK {
		t.Fatalf("other page must not match the etag, got %d", w.Code)
	}

	seedMessage(t, e, u.ID, "четыре")
	if w := e.do(t, http.MethodGet, path, nil, "If-None-Match", etag); w.Code != http.StatusOK {
		t.Fatalf("stale etag = %d", w.Code)
	}

	expectError(t, e.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString()+"/messages", nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, e.do(t, http.MethodGet, "/api/v1/users/x/messages", nil), http.StatusBadRequest, ErrCodeBadRequest)
}
