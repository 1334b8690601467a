package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

// RequirementResolver maps an (action, object) pair to its Requirement,
// creating an empty one on first sight.
type RequirementResolver struct {
	// find is the lookup used before creating; tests replace it to force the
	// create path while a row already exists.
	find func(ctx context.Context, db *gorm.DB, action, object string) (*domain.Requirement, error)
}

// NewRequirementResolver returns a resolver backed by the requirement repo.
func NewRequirementResolver() *RequirementResolver {
	return &RequirementResolver{find: repo.FindRequirement}
}

// Resolve returns the requirement for the pair. Creation runs inside a
// savepoint: when another transaction inserted the same pair first, the
// unique violation is rolled back to the savepoint and the winner's row is
// re-selected, so the caller's transaction stays usable.
func (r *RequirementResolver) Resolve(ctx context.Context, tx *gorm.DB, action, object string) (*domain.Requirement, error) {
	ctx, span := otel.Tracer("services/RequirementResolver").Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.String("requirement.action", action),
			attribute.String("requirement.object", object),
		),
	)
	defer span.End()

	find := r.find
	if find == nil {
		find = repo.FindRequirement
	}

	req, err := find(ctx, tx, action, object)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	var created *domain.Requirement
	err = tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		var cerr error
		created, cerr = repo.CreateRequirement(ctx, sp, action, object)
		return cerr
	})
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("requirement.created", true))
		return created, nil
	case repo.IsDuplicate(err):
		return repo.FindRequirement(ctx, tx, action, object)
	default:
		return nil, err
	}
}
