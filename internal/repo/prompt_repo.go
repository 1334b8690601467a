package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
)

// GetPrompt fetches a prompt template by name.
func GetPrompt(ctx context.Context, db *gorm.DB, name string) (*domain.Prompt, error) {
	var p domain.Prompt
	if err := db.WithContext(ctx).Where("name = ?", name).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
