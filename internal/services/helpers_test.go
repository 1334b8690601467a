package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/extract"
	"github.com/tbourn/go-diary-bot/internal/llm"
	"github.com/tbourn/go-diary-bot/internal/nlp"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

// ---------- test helpers ----------

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := repo.SeedPrompts(db); err != nil {
		t.Fatalf("seed prompts: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, tgID int64) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, tgID, "tester")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedTopic(t *testing.T, db *gorm.DB, name string, words ...string) *domain.Topic {
	t.Helper()
	ctx := context.Background()
	tp, err := repo.CreateTopic(ctx, db, name)
	if err != nil {
		t.Fatalf("seed topic: %v", err)
	}
	if err := repo.AddKeywords(ctx, db, tp.ID, words); err != nil {
		t.Fatalf("seed keywords: %v", err)
	}
	return tp
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func lexiconExtractor(t *testing.T) *extract.Extractor {
	t.Helper()
	a, err := nlp.NewLexiconAnalyzer("")
	if err != nil {
		t.Fatalf("lexicon: %v", err)
	}
	return extract.New(a)
}

// fakeLLM records prompts and answers with a fixed completion.
type fakeLLM struct {
	mu      sync.Mutex
	answer  string
	tokens  int
	err     error
	prompts []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.answer, Tokens: f.tokens}, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// memQuestions is an in-memory QuestionMerger/QuestionStore.
type memQuestions struct {
	mu     sync.Mutex
	err    error
	m      map[int64]map[string]string
	queued map[int64]int64
	ttl    time.Duration
}

func (q *memQuestions) MergeQuestions(_ context.Context, tgID int64, in map[string]string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if q.m == nil {
		q.m = map[int64]map[string]string{}
	}
	cur := q.m[tgID]
	if cur == nil {
		cur = map[string]string{}
		q.m[tgID] = cur
	}
	for k, v := range in {
		cur[k] = v
	}
	return nil
}

func (q *memQuestions) Questions(_ context.Context, tgID int64) (map[string]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	return q.m[tgID], nil
}

func (q *memQuestions) TakeQuestions(_ context.Context, tgID int64) (map[string]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	out := q.m[tgID]
	delete(q.m, tgID)
	return out, nil
}

func (q *memQuestions) Pending(_ context.Context, tgID int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	return q.queued[tgID], nil
}

func (q *memQuestions) QuestionsTTL(_ context.Context, tgID int64) (time.Duration, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	if _, ok := q.m[tgID]; !ok {
		return -2, nil
	}
	return q.ttl, nil
}

func sp(s string) *string { return &s }
