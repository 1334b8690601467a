package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/repo"
	"github.com/tbourn/go-diary-bot/internal/utils"
)

// RequirementService lets operators fill in the required fields and
// questions of requirements the pipeline created empty.
type RequirementService struct {
	DB *gorm.DB
}

// ListPage returns requirements ordered by id.
func (s *RequirementService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Requirement, int64, error) {
	limit, offset := utils.LimitOffset(page, pageSize)
	total, err := repo.CountRequirements(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Requirement{}, 0, nil
	}
	items, err := repo.ListRequirementsPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// Update replaces the required fields and questions of a requirement. Field
// names must belong to the attribute set; duplicates are dropped.
func (s *RequirementService) Update(ctx context.Context, id uint, fields []string, questions map[string]string) (*domain.Requirement, error) {
	clean := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if !domain.IsField(f) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
		if !seen[f] {
			seen[f] = true
			clean = append(clean, f)
		}
	}
	qs := make(map[string]string, len(questions))
	for k, v := range questions {
		if !domain.IsField(k) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
		if v = strings.TrimSpace(v); v != "" {
			qs[k] = v
		}
	}

	err := repo.UpdateRequirement(ctx, s.DB, id, clean, qs)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRequirementNotFound
	}
	if err != nil {
		return nil, err
	}
	return repo.GetRequirement(ctx, s.DB, id)
}
