package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

// FindTopicByKeywords returns the topic owning the earliest stored keyword
// among words. Ordering by keyword id gives a stable "first by storage order"
// tie-break when several topics match.
func FindTopicByKeywords(ctx context.Context, db *gorm.DB, words []string) (*domain.Topic, error) {
	if len(words) == 0 {
		return nil, ErrNotFound
	}
	var t domain.Topic
	err := db.WithContext(ctx).
		Model(&domain.Topic{}).
		Select("topics.*").
		Joins("JOIN keywords ON keywords.topic_id = topics.id").
		Where("keywords.word IN ?", words).
		Order("keywords.id ASC").
		Limit(1).
		Take(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTopicByName fetches a topic by its unique name.
func FindTopicByName(ctx context.Context, db *gorm.DB, name string) (*domain.Topic, error) {
	var t domain.Topic
	if err := db.WithContext(ctx).Where("name = ?", name).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTopic inserts a topic and returns ErrDuplicate when the name is taken.
func CreateTopic(ctx context.Context, db *gorm.DB, name string) (*domain.Topic, error) {
	t := &domain.Topic{Name: name, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return t, nil
}

// KeywordsOf returns the words already attached to a topic, restricted to
// the candidates when any are given.
func KeywordsOf(ctx context.Context, db *gorm.DB, topicID uint, candidates ...string) ([]string, error) {
	var out []string
	q := db.WithContext(ctx).Model(&domain.Keyword{}).Where("topic_id = ?", topicID)
	if len(candidates) > 0 {
		q = q.Where("word IN ?", candidates)
	}
	err := q.Order("id ASC").Pluck("word", &out).Error
	return out, err
}

// AddKeywords attaches words to a topic. Rows that would violate the
// (topic_id, word) index are skipped.
func AddKeywords(ctx context.Context, db *gorm.DB, topicID uint, words []string) error {
	if len(words) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]domain.Keyword, 0, len(words))
	for _, w := range words {
		rows = append(rows, domain.Keyword{TopicID: topicID, Word: w, CreatedAt: now})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// ListTopics returns every topic with its keywords, ordered by id.
func ListTopics(ctx context.Context, db *gorm.DB) ([]domain.Topic, error) {
	var out []domain.Topic
	err := db.WithContext(ctx).
		Preload("Keywords", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
