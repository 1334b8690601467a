package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

// TopicService reads the topic index the resolver builds up.
type TopicService struct {
	DB *gorm.DB
}

// List returns every topic with its keywords, oldest first.
func (s *TopicService) List(ctx context.Context) ([]domain.Topic, error) {
	topics, err := repo.ListTopics(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []domain.Topic{}
	}
	return topics, nil
}
