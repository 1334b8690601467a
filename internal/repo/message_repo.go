// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

// CreateMessage inserts a new, unprocessed message row.
func CreateMessage(ctx context.Context, db *gorm.DB, userID string, externalID int64, text string, sentAt time.Time) (*domain.Message, error) {
	now := time.Now().UTC()
	m := &domain.Message{
		ID:         uuid.NewString(),
		UserID:     userID,
		ExternalID: externalID,
		Text:       text,
		SentAt:     sentAt.UTC(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM messages WHERE user_id = ?", userID).Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListMessagesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// AddTokenUsage increments the message's cumulative token cost in place.
func AddTokenUsage(ctx context.Context, db *gorm.DB, id string, tokens int) error {
	if tokens == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", id).
		Update("token_usage", gorm.Expr("token_usage + ?", tokens)).Error
}

// UpdateMessageFields applies a partial update and reports ErrNotFound when
// no row matched.
func UpdateMessageFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).Model(&domain.Message{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessage removes a message; its entity row goes with it via cascade.
func DeleteMessage(ctx context.Context, db *gorm.DB, id string) error {
	// Entities are removed explicitly as well because SQLite only cascades
	// when foreign_keys is enabled on the connection that runs the delete.
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&domain.Entity{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Message{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
