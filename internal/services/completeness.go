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

// CompletenessChecker derives the clarification questions still owed for a
// message.
type CompletenessChecker struct{}

// MissingFields returns field -> question for every required field that the
// message's entity leaves empty and that has a question. It returns nil when
// there is no entity, no matching requirement, or nothing to ask.
func (CompletenessChecker) MissingFields(ctx context.Context, tx *gorm.DB, messageID string) (map[string]string, error) {
	ctx, span := otel.Tracer("services/CompletenessChecker").Start(ctx, "MissingFields",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	ent, err := repo.GetEntity(ctx, tx, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	req, err := repo.FindRequirement(ctx, tx, domain.Deref(ent.Action), domain.Deref(ent.Object))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := Missing(ent.Attributes, req)
	span.SetAttributes(attribute.Int("questions.count", len(out)))
	return out, nil
}

// Missing is the pure part of MissingFields.
func Missing(attrs domain.Attributes, req *domain.Requirement) map[string]string {
	if req == nil {
		return nil
	}
	questions := req.Questions.Data()
	var out map[string]string
	for _, f := range req.RequiredFields {
		if !domain.IsField(f) || attrs.Get(f) != nil {
			continue
		}
		q := questions[f]
		if q == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[f] = q
	}
	return out
}
