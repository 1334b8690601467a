// Package services – UserService
//
// UserService registers chat-platform accounts and exposes read access for
// the HTTP layer. Registration is idempotent on the telegram id so the chat
// adapter can call it on every /start.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/repo"
	"github.com/tbourn/go-diary-bot/internal/utils"
)

// UserService manages users.
type UserService struct {
	DB *gorm.DB
}

// Register returns the user for telegramID, creating it when needed. created
// reports whether a new row was inserted.
func (s *UserService) Register(ctx context.Context, telegramID int64, username string) (u *domain.User, created bool, err error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Register",
		trace.WithAttributes(attribute.Int64("tg.user_id", telegramID)),
	)
	defer span.End()

	if telegramID <= 0 {
		return nil, false, ErrInvalidTelegramID
	}
	if u, err := repo.GetUserByTelegramID(ctx, s.DB, telegramID); err == nil {
		return u, false, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	u, err = repo.CreateUser(ctx, s.DB, telegramID, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrDuplicate) {
		// Concurrent registration won.
		u, err = repo.GetUserByTelegramID(ctx, s.DB, telegramID)
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// Get fetches a user by internal id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByTelegramID fetches a user by chat-platform id.
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	if telegramID <= 0 {
		return nil, ErrInvalidTelegramID
	}
	u, err := repo.GetUserByTelegramID(ctx, s.DB, telegramID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ListPage returns a page of users and the total count.
func (s *UserService) ListPage(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "ListPage",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	pageSize, offset := utils.LimitOffset(page, pageSize)
	total, err := repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.User{}, 0, nil
	}
	items, err := repo.ListUsersPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}
