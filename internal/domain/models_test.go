package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&User{}, &Message{}, &Topic{}, &Keyword{}, &Requirement{}, &Entity{}, &Prompt{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(User{}).TableName():        "users",
		(Message{}).TableName():     "messages",
		(Entity{}).TableName():      "entities",
		(Requirement{}).TableName(): "entity_requirements",
		(Topic{}).TableName():       "topics",
		(Keyword{}).TableName():     "keywords",
		(Prompt{}).TableName():      "prompts",
		(Idempotency{}).TableName(): "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	checks := []struct {
		model any
		index string
	}{
		{&User{}, "ux_users_telegram_id"},
		{&Message{}, "idx_user_msgs"},
		{&Requirement{}, "ux_requirement_pair"},
		{&Topic{}, "ux_topics_name"},
		{&Keyword{}, "ux_keyword_topic_word"},
		{&Idempotency{}, "ux_scope_subject_key"},
	}
	for _, c := range checks {
		if !m.HasIndex(c.model, c.index) {
			t.Fatalf("expected index %s on %T", c.index, c.model)
		}
	}
	if !m.HasColumn(&Entity{}, "time_of_day") || !m.HasColumn(&Entity{}, "date_text") {
		t.Fatalf("expected renamed time/date columns on entities")
	}
}

func TestUniqueConstraints(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	if err := db.Create(&User{ID: "u1", TelegramID: 42, CreatedAt: now}).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := db.Create(&User{ID: "u2", TelegramID: 42, CreatedAt: now}).Error; err == nil {
		t.Fatalf("expected unique violation on telegram_id")
	}

	r1 := &Requirement{Action: "выпить", Object: "кофе"}
	if err := db.Create(r1).Error; err != nil {
		t.Fatalf("insert requirement: %v", err)
	}
	if err := db.Create(&Requirement{Action: "выпить", Object: "кофе"}).Error; err == nil {
		t.Fatalf("expected unique violation on (action, object)")
	}

	tp := &Topic{Name: "напитки"}
	if err := db.Create(tp).Error; err != nil {
		t.Fatalf("insert topic: %v", err)
	}
	if err := db.Create(&Keyword{TopicID: tp.ID, Word: "кофе"}).Error; err != nil {
		t.Fatalf("insert keyword: %v", err)
	}
	if err := db.Create(&Keyword{TopicID: tp.ID, Word: "кофе"}).Error; err == nil {
		t.Fatalf("expected unique violation on (topic_id, word)")
	}
}

func TestCascades_MessageDeleteRemovesEntity(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	db.Create(&User{ID: "u1", TelegramID: 1, CreatedAt: now})
	db.Create(&Message{ID: "m1", UserID: "u1", Text: "кофе", CreatedAt: now})
	tp := &Topic{Name: "напитки"}
	db.Create(tp)
	if err := db.Create(&Entity{MessageID: "m1", Attributes: Attributes{Object: Ptr("кофе")}, TopicID: &tp.ID}).Error; err != nil {
		t.Fatalf("insert entity: %v", err)
	}

	// Deleting the topic nulls the reference.
	if err := db.Delete(&Topic{}, tp.ID).Error; err != nil {
		t.Fatalf("delete topic: %v", err)
	}
	var e Entity
	if err := db.First(&e, "message_id = ?", "m1").Error; err != nil {
		t.Fatalf("load entity: %v", err)
	}
	if e.TopicID != nil {
		t.Fatalf("expected topic_id to be nulled, got %v", *e.TopicID)
	}

	// Deleting the message removes the entity.
	if err := db.Delete(&Message{}, "id = ?", "m1").Error; err != nil {
		t.Fatalf("delete message: %v", err)
	}
	var n int64
	db.Model(&Entity{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected entity cascade delete, got %d rows", n)
	}
}

func TestRequirement_JSONColumnsRoundTrip(t *testing.T) {
	db := newDomainDB(t)
	r := &Requirement{
		Action:         "выпить",
		Object:         "кофе",
		RequiredFields: datatypes.JSONSlice[string]{FieldQuantity, FieldTime},
		Questions:      datatypes.NewJSONType(map[string]string{FieldQuantity: "Сколько?"}),
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	var got Requirement
	if err := db.First(&got, r.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.RequiredFields) != 2 || got.RequiredFields[1] != FieldTime {
		t.Fatalf("required fields = %v", got.RequiredFields)
	}
	if got.Questions.Data()[FieldQuantity] != "Сколько?" {
		t.Fatalf("questions = %v", got.Questions.Data())
	}
}

func TestAttributes_GetEmptyKeywords(t *testing.T) {
	var a Attributes
	if !a.Empty() {
		t.Fatalf("zero Attributes must be empty")
	}
	a.Object = Ptr("кофе")
	a.Time = Ptr("08:30")
	if a.Empty() {
		t.Fatalf("expected non-empty")
	}
	if Deref(a.Get(FieldTime)) != "08:30" || a.Get("unknown") != nil {
		t.Fatalf("Get mismatch")
	}
	if kw := a.Keywords(); len(kw) != 1 || kw[0] != "кофе" {
		t.Fatalf("keywords = %v", kw)
	}
	a.Action = Ptr("выпить")
	if kw := a.Keywords(); len(kw) != 2 || kw[0] != "выпить" {
		t.Fatalf("keywords order = %v", kw)
	}
}
