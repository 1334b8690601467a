package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-diary-bot/internal/http/middleware"
	"github.com/tbourn/go-diary-bot/internal/queue"
	"github.com/tbourn/go-diary-bot/internal/repo"
	"github.com/tbourn/go-diary-bot/internal/services"
)

type memQueue struct {
	mu      sync.Mutex
	entries map[int64][]queue.Entry
	qs      map[int64]map[string]string
	ttl     time.Duration
	err     error
}

func newMemQueue() *memQueue {
	return &memQueue{entries: map[int64][]queue.Entry{}, qs: map[int64]map[string]string{}}
}

func (q *memQueue) Enqueue(_ context.Context, id int64, e queue.Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.entries[id] = append(q.entries[id], e)
	return nil
}

func (q *memQueue) Questions(_ context.Context, id int64) (map[string]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	return q.qs[id], nil
}

func (q *memQueue) TakeQuestions(_ context.Context, id int64) (map[string]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	out := q.qs[id]
	delete(q.qs, id)
	return out, nil
}

func (q *memQueue) Pending(_ context.Context, id int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	return int64(len(q.entries[id])), nil
}

func (q *memQueue) QuestionsTTL(_ context.Context, id int64) (time.Duration, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.qs[id]; !ok {
		return -2, nil
	}
	return q.ttl, nil
}

func (q *memQueue) queued(id int64) []queue.Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.Entry(nil), q.entries[id]...)
}

var errQueueDown = errors.New("redis: connection refused")

type testEnv struct {
	db *gorm.DB
	q  *memQueue
	r  *gin.Engine
}

// newEnv wires real services over an in-memory database and mounts the
// handlers the way the router does, minus the global middleware.
func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	q := newMemQueue()
	h := New(
		&services.UserService{DB: db},
		&services.MessageService{DB: db, Queue: q, MaxTextRunes: 20},
		&services.QuestionService{Store: q},
		&services.RequirementService{DB: db},
		&services.TopicService{DB: db},
	)

	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, scope, subject, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, scope, subject, key, now)
			return err == nil && rec != nil, nil
		}))
	api := r.Group("/api/v1")
	api.POST("/users", h.RegisterUser)
	api.GET("/users", h.ListUsers)
	api.GET("/users/:id", h.GetUser)
	api.GET("/users/:id/messages", h.ListUserMessages)
	api.POST("/messages/queue", h.EnqueueMessage)
	api.GET("/messages/:id", h.GetMessage)
	api.PUT("/messages/:id", h.ClarifyMessage)
	api.DELETE("/messages/:id", h.DeleteMessage)
	api.GET("/questions/:telegram_id", h.GetQuestions)
	api.DELETE("/questions/:telegram_id", h.TakeQuestions)
	api.GET("/requirements", h.ListRequirements)
	api.PUT("/requirements/:id", h.UpdateRequirement)
	api.GET("/topics", h.ListTopics)

	return &testEnv{db: db, q: q, r: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	if got := decode[ErrorResponse](t, w).Code; got != code {
		t.Fatalf("code = %q, want %q", got, code)
	}
}

