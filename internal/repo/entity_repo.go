package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

// CreateEntity stores the extracted attributes for a message. A second call
// for the same message fails on the primary key.
func CreateEntity(ctx context.Context, db *gorm.DB, messageID string, attrs domain.Attributes) (*domain.Entity, error) {
	now := time.Now().UTC()
	e := &domain.Entity{
		MessageID:  messageID,
		Attributes: attrs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntity fetches the entity row of a message.
func GetEntity(ctx context.Context, db *gorm.DB, messageID string) (*domain.Entity, error) {
	var e domain.Entity
	if err := db.WithContext(ctx).Where("message_id = ?", messageID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// SetEntityRequirement stores the requirement back-reference.
func SetEntityRequirement(ctx context.Context, db *gorm.DB, messageID string, requirementID uint) error {
	return db.WithContext(ctx).
		Model(&domain.Entity{}).
		Where("message_id = ?", messageID).
		Update("requirement_id", requirementID).Error
}

// SetEntityTopic stores the topic back-reference.
func SetEntityTopic(ctx context.Context, db *gorm.DB, messageID string, topicID uint) error {
	return db.WithContext(ctx).
		Model(&domain.Entity{}).
		Where("message_id = ?", messageID).
		Update("topic_id", topicID).Error
}
