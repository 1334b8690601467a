package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/llm"
	"github.com/tbourn/go-diary-bot/internal/nlp"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

// DefaultNoneSentinel is the answer meaning "no relevant topic".
const DefaultNoneSentinel = "False"

// TopicResolver classifies keywords into a topic using the keyword index and,
// on a miss, the inference service.
type TopicResolver struct {
	LLM llm.Completer
	// NoneSentinel is compared case-insensitively with the cleaned answer.
	NoneSentinel string
}

// NewTopicResolver returns a resolver with the default sentinel.
func NewTopicResolver(c llm.Completer) *TopicResolver {
	return &TopicResolver{LLM: c, NoneSentinel: DefaultNoneSentinel}
}

// Resolve returns the topic for the non-empty keywords among action and
// object, or nil when the message belongs to no topic.
//
// Lookup order: any topic owning one of the keywords (first by keyword
// storage order); otherwise the inference service names a topic, which is
// reused when it exists or created together with its keywords. The token
// cost of the call is added to the message even when the answer is the
// sentinel.
func (r *TopicResolver) Resolve(ctx context.Context, tx *gorm.DB, action, object *string, messageID string) (*domain.Topic, error) {
	ctx, span := otel.Tracer("services/TopicResolver").Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	kws := topicKeywords(action, object)
	if len(kws) == 0 {
		return nil, nil
	}
	span.SetAttributes(attribute.StringSlice("topic.keywords", kws))

	t, err := repo.FindTopicByKeywords(ctx, tx, kws)
	if err == nil {
		span.SetAttributes(attribute.String("topic.source", "index"))
		return t, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	prompt, err := r.prompt(ctx, tx, kws)
	if err != nil {
		return nil, err
	}
	if r.LLM == nil {
		return nil, errors.New("topic: no inference client configured")
	}
	comp, err := r.LLM.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := repo.AddTokenUsage(ctx, tx, messageID, comp.Tokens); err != nil {
		return nil, err
	}

	name := cleanTopicName(comp.Text)
	span.SetAttributes(attribute.String("topic.answer", name), attribute.Int("llm.tokens", comp.Tokens))
	if name == "" || r.isNone(name) {
		span.SetAttributes(attribute.String("topic.source", "none"))
		return nil, nil
	}

	if t, err := repo.FindTopicByName(ctx, tx, name); err == nil {
		span.SetAttributes(attribute.String("topic.source", "existing"))
		return t, attachKeywords(ctx, tx, t.ID, kws)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	var created *domain.Topic
	err = tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		var cerr error
		if created, cerr = repo.CreateTopic(ctx, sp, name); cerr != nil {
			return cerr
		}
		return repo.AddKeywords(ctx, sp, created.ID, kws)
	})
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("topic.source", "created"))
		return created, nil
	case repo.IsDuplicate(err):
		// Another pipeline created the topic first.
		t, ferr := repo.FindTopicByName(ctx, tx, name)
		if ferr != nil {
			return nil, ferr
		}
		return t, attachKeywords(ctx, tx, t.ID, kws)
	default:
		return nil, err
	}
}

func (r *TopicResolver) prompt(ctx context.Context, tx *gorm.DB, kws []string) (string, error) {
	p, err := repo.GetPrompt(ctx, tx, domain.PromptDefineTopic)
	if errors.Is(err, repo.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrPromptNotFound, domain.PromptDefineTopic)
	}
	if err != nil {
		return "", err
	}
	return BuildTopicPrompt(kws, p.Content), nil
}

func (r *TopicResolver) isNone(name string) bool {
	s := r.NoneSentinel
	if s == "" {
		s = DefaultNoneSentinel
	}
	return name == nlp.Normalize(s)
}

// BuildTopicPrompt renders the classification prompt for keywords.
func BuildTopicPrompt(kws []string, template string) string {
	return fmt.Sprintf("По словам %s. %s", strings.Join(kws, ", "), strings.TrimSpace(template))
}

// topicKeywords returns the normalized, de-duplicated non-empty values of
// action and object, in that order.
func topicKeywords(action, object *string) []string {
	out := make([]string, 0, 2)
	for _, p := range []*string{action, object} {
		if p == nil {
			continue
		}
		w := nlp.Normalize(*p)
		if w == "" || (len(out) == 1 && out[0] == w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// cleanTopicName strips quotes, surrounding punctuation and case from an
// inference answer.
func cleanTopicName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`«»“”„.,;:!?() \t\n")
	return nlp.Normalize(s)
}

// attachKeywords links the words a topic does not own yet.
func attachKeywords(ctx context.Context, tx *gorm.DB, topicID uint, kws []string) error {
	have, err := repo.KeywordsOf(ctx, tx, topicID, kws...)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(have))
	for _, w := range have {
		seen[w] = struct{}{}
	}
	missing := make([]string, 0, len(kws))
	for _, w := range kws {
		if _, ok := seen[w]; !ok {
			missing = append(missing, w)
		}
	}
	return repo.AddKeywords(ctx, tx, topicID, missing)
}
