package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/queue"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

func newPipeline(t *testing.T, f *fakeLLM, q *memQuestions) (*Pipeline, func() int64) {
	t.Helper()
	db := newServiceDB(t)
	p := &Pipeline{
		DB:           db,
		Extractor:    lexiconExtractor(t),
		Requirements: NewRequirementResolver(),
		Topics:       NewTopicResolver(f),
		Questions:    q,
	}
	return p, func() int64 { return countRows(t, db, &domain.Message{}) }
}

func entry(text string) queue.Entry {
	return queue.Entry{MessageID: 100, Text: text, Timestamp: float64(time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC).Unix())}
}

func TestPipeline_EndToEnd_ExistingTopic(t *testing.T) {
	f := &fakeLLM{answer: "еда"}
	q := &memQuestions{}
	p, _ := newPipeline(t, f, q)
	seedUser(t, p.DB, 42)
	drinks := seedTopic(t, p.DB, "напитки", "кофе")

	res, err := p.Process(context.Background(), 42, entry("выпил 2 чашки кофе"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	wantAttrs := domain.Attributes{Action: sp("выпить"), Object: sp("кофе"), Quantity: sp("2 чашки")}
	if diff := cmp.Diff(wantAttrs, res.Attributes); diff != "" {
		t.Fatalf("attributes (-want +got):\n%s", diff)
	}
	if res.Requirement == nil || res.Requirement.Action != "выпить" || res.Requirement.Object != "кофе" ||
		len(res.Requirement.RequiredFields) != 0 {
		t.Fatalf("requirement = %+v", res.Requirement)
	}
	if res.Topic == nil || res.Topic.ID != drinks.ID {
		t.Fatalf("topic = %+v", res.Topic)
	}
	if f.calls() != 0 {
		t.Fatalf("keyword hit must not call inference")
	}
	if res.Questions != nil {
		t.Fatalf("no questions expected, got %v", res.Questions)
	}

	m := res.Message
	if m.IsProcessed || m.IsComplete != nil || m.Topic == nil || *m.Topic != "напитки" {
		t.Fatalf("message state = processed:%v complete:%v topic:%v", m.IsProcessed, m.IsComplete, m.Topic)
	}
	if m.ExternalID != 100 || !m.SentAt.Equal(time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("message metadata = %+v", m)
	}

	ent, err := repo.GetEntity(context.Background(), p.DB, m.ID)
	if err != nil {
		t.Fatalf("entity: %v", err)
	}
	if ent.TopicID == nil || *ent.TopicID != drinks.ID || ent.RequirementID == nil || *ent.RequirementID != res.Requirement.ID {
		t.Fatalf("entity refs = topic:%v requirement:%v", ent.TopicID, ent.RequirementID)
	}
	if len(q.m) != 0 {
		t.Fatalf("nothing should be accumulated")
	}
}

func TestPipeline_InferenceCreatesTopic(t *testing.T) {
	f := &fakeLLM{answer: "Напитки", tokens: 12}
	p, _ := newPipeline(t, f, &memQuestions{})
	seedUser(t, p.DB, 42)

	res, err := p.Process(context.Background(), 42, entry("я выпил стакан кофе без сахара"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Topic == nil || res.Topic.Name != "напитки" {
		t.Fatalf("topic = %+v", res.Topic)
	}
	if res.Message.TokenUsage != 12 {
		t.Fatalf("token usage = %d", res.Message.TokenUsage)
	}
	words, _ := repo.KeywordsOf(context.Background(), p.DB, res.Topic.ID)
	if diff := cmp.Diff([]string{"выпить", "кофе"}, words); diff != "" {
		t.Fatalf("keywords (-want +got):\n%s", diff)
	}

	// Same keywords again: served by the index.
	if _, err := p.Process(context.Background(), 42, entry("выпил кофе")); err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if f.calls() != 1 {
		t.Fatalf("inference calls = %d, want 1", f.calls())
	}
}

func TestPipeline_NoTopicMarksProcessed(t *testing.T) {
	f := &fakeLLM{answer: "False", tokens: 5}
	p, _ := newPipeline(t, f, &memQuestions{})
	seedUser(t, p.DB, 42)

	res, err := p.Process(context.Background(), 42, entry("сделал что-то"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	m := res.Message
	if !m.IsProcessed || m.Topic == nil || *m.Topic != domain.NoTopic || m.TokenUsage != 5 {
		t.Fatalf("message = processed:%v topic:%v tokens:%d", m.IsProcessed, m.Topic, m.TokenUsage)
	}
}

func TestPipeline_EmptyExtractionStillStoresEntity(t *testing.T) {
	f := &fakeLLM{answer: "еда"}
	p, _ := newPipeline(t, f, &memQuestions{})
	seedUser(t, p.DB, 42)

	res, err := p.Process(context.Background(), 42, entry("ну такое"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Requirement != nil || res.Topic != nil || f.calls() != 0 {
		t.Fatalf("nothing should be resolved: %+v", res)
	}
	if _, err := repo.GetEntity(context.Background(), p.DB, res.Message.ID); err != nil {
		t.Fatalf("entity row missing: %v", err)
	}
	if !res.Message.IsProcessed {
		t.Fatalf("message without topic must be processed")
	}
}

func TestPipeline_QuestionsAccumulated(t *testing.T) {
	q := &memQuestions{}
	p, _ := newPipeline(t, &fakeLLM{}, q)
	seedUser(t, p.DB, 42)
	seedTopic(t, p.DB, "напитки", "кофе")
	ctx := context.Background()

	req, _ := repo.CreateRequirement(ctx, p.DB, "выпить", "кофе")
	_ = repo.UpdateRequirement(ctx, p.DB, req.ID,
		[]string{domain.FieldQuantity, domain.FieldTime},
		map[string]string{domain.FieldQuantity: "Сколько?", domain.FieldTime: "Во сколько?"})

	res, err := p.Process(ctx, 42, entry("выпил кофе в 8:30"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := map[string]string{domain.FieldQuantity: "Сколько?"}
	if diff := cmp.Diff(want, res.Questions); diff != "" {
		t.Fatalf("questions (-want +got):\n%s", diff)
	}
	if res.Message.IsComplete == nil || *res.Message.IsComplete {
		t.Fatalf("is_complete must be false, got %v", res.Message.IsComplete)
	}
	if diff := cmp.Diff(want, q.m[42]); diff != "" {
		t.Fatalf("accumulator (-want +got):\n%s", diff)
	}

	// A failing accumulator does not undo the committed message.
	q.err = errors.New("redis down")
	res, err = p.Process(ctx, 42, entry("выпил кофе"))
	if StageOf(err) != StageQuestions || res == nil {
		t.Fatalf("expected questions-stage error with result, got %v / %v", res, err)
	}
	if _, gerr := repo.GetMessage(ctx, p.DB, res.Message.ID); gerr != nil {
		t.Fatalf("message should be committed: %v", gerr)
	}
}

func TestPipeline_AllOrNothingOnTopicFailure(t *testing.T) {
	f := &fakeLLM{err: errors.New("inference unreachable")}
	p, messages := newPipeline(t, f, &memQuestions{})
	seedUser(t, p.DB, 42)

	_, err := p.Process(context.Background(), 42, entry("выпил 2 чашки кофе"))
	if err == nil {
		t.Fatalf("expected failure")
	}
	if StageOf(err) != StageTopic {
		t.Fatalf("stage = %q, want %q (%v)", StageOf(err), StageTopic, err)
	}
	if messages() != 0 {
		t.Fatalf("message row survived rollback")
	}
	if n := countRows(t, p.DB, &domain.Entity{}); n != 0 {
		t.Fatalf("entity row survived rollback")
	}
	if n := countRows(t, p.DB, &domain.Requirement{}); n != 0 {
		t.Fatalf("requirement row survived rollback")
	}
}

func TestPipeline_UnknownUser(t *testing.T) {
	p, messages := newPipeline(t, &fakeLLM{}, &memQuestions{})
	_, err := p.Process(context.Background(), 999, entry("выпил кофе"))
	if !errors.Is(err, ErrUserNotFound) || StageOf(err) != StageUser {
		t.Fatalf("expected user-stage ErrUserNotFound, got %v", err)
	}
	if messages() != 0 {
		t.Fatalf("no message expected")
	}
}
