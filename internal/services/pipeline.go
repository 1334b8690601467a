package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/queue"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

// EntityExtractor turns text into attributes.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (domain.Attributes, error)
}

// QuestionMerger accumulates outstanding questions per user.
type QuestionMerger interface {
	MergeQuestions(ctx context.Context, telegramID int64, q map[string]string) error
}

// Result summarizes one processed message.
type Result struct {
	Message     *domain.Message
	Attributes  domain.Attributes
	Requirement *domain.Requirement
	// Topic is nil when the message belongs to no topic.
	Topic *domain.Topic
	// Questions is nil when nothing has to be asked.
	Questions map[string]string
}

// Pipeline enriches one buffered message: it stores the message, extracts
// its attributes, resolves requirement and topic, and computes the
// clarification questions. All database effects of one message commit or
// roll back together.
type Pipeline struct {
	DB           *gorm.DB
	Extractor    EntityExtractor
	Requirements *RequirementResolver
	Topics       *TopicResolver
	Completeness CompletenessChecker
	Questions    QuestionMerger
}

// Process runs the pipeline for a queue entry of the given user. Errors are
// wrapped in *StageError. The questions merge happens after commit; when it
// fails the committed Result is still returned alongside the error.
func (p *Pipeline) Process(ctx context.Context, telegramID int64, e queue.Entry) (*Result, error) {
	ctx, span := otel.Tracer("services/Pipeline").Start(ctx, "Process",
		trace.WithAttributes(
			attribute.Int64("tg.user_id", telegramID),
			attribute.Int64("message.external_id", e.MessageID),
		),
	)
	defer span.End()

	res, err := p.process(ctx, telegramID, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, StageOf(err))
		return nil, err
	}

	if len(res.Questions) > 0 && p.Questions != nil {
		if err := p.Questions.MergeQuestions(ctx, telegramID, res.Questions); err != nil {
			err = stageErr(StageQuestions, err)
			span.RecordError(err)
			return res, err
		}
	}
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, telegramID int64, e queue.Entry) (*Result, error) {
	res := &Result{}
	reqs := p.Requirements
	if reqs == nil {
		reqs = NewRequirementResolver()
	}

	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := repo.GetUserByTelegramID(ctx, tx, telegramID)
		if errors.Is(err, repo.ErrNotFound) {
			return stageErr(StageUser, ErrUserNotFound)
		}
		if err != nil {
			return stageErr(StageUser, err)
		}

		sentAt := e.SentAt()
		if e.Timestamp == 0 {
			sentAt = time.Now().UTC()
		}
		msg, err := repo.CreateMessage(ctx, tx, user.ID, e.MessageID, strings.TrimSpace(e.Text), sentAt)
		if err != nil {
			return stageErr(StageMessage, err)
		}
		res.Message = msg

		attrs, err := p.Extractor.Extract(ctx, msg.Text)
		if err != nil {
			return stageErr(StageExtract, err)
		}
		res.Attributes = attrs
		if _, err := repo.CreateEntity(ctx, tx, msg.ID, attrs); err != nil {
			return stageErr(StageEntity, err)
		}

		if len(attrs.Keywords()) > 0 {
			req, err := reqs.Resolve(ctx, tx, domain.Deref(attrs.Action), domain.Deref(attrs.Object))
			if err != nil {
				return stageErr(StageRequirement, err)
			}
			res.Requirement = req
			if err := repo.SetEntityRequirement(ctx, tx, msg.ID, req.ID); err != nil {
				return stageErr(StageRequirement, err)
			}
		}

		topic, err := p.Topics.Resolve(ctx, tx, attrs.Action, attrs.Object, msg.ID)
		if err != nil {
			return stageErr(StageTopic, err)
		}
		res.Topic = topic
		if topic == nil {
			if err := repo.UpdateMessageFields(ctx, tx, msg.ID, map[string]any{
				"topic":        domain.NoTopic,
				"is_processed": true,
			}); err != nil {
				return stageErr(StageTopic, err)
			}
		} else {
			if err := repo.SetEntityTopic(ctx, tx, msg.ID, topic.ID); err != nil {
				return stageErr(StageTopic, err)
			}
			if err := repo.UpdateMessageFields(ctx, tx, msg.ID, map[string]any{"topic": topic.Name}); err != nil {
				return stageErr(StageTopic, err)
			}
		}

		q, err := p.Completeness.MissingFields(ctx, tx, msg.ID)
		if err != nil {
			return stageErr(StageComplete, err)
		}
		res.Questions = q
		if len(q) > 0 {
			if err := repo.UpdateMessageFields(ctx, tx, msg.ID, map[string]any{"is_complete": false}); err != nil {
				return stageErr(StageComplete, err)
			}
		}

		fresh, err := repo.GetMessage(ctx, tx, msg.ID)
		if err != nil {
			return stageErr(StageMessage, err)
		}
		res.Message = fresh
		return nil
	})
	if err != nil {
		return nil, stageErr(StageCommit, err)
	}
	return res, nil
}
