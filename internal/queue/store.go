// Package queue implements the ephemeral per-user message buffer that drives
// debouncing, the pending clarification questions accumulator, and the
// subscription to Redis key-expiry events.
//
// Key layout:
//
//	user_queue:{telegram_id}  list of JSON entries, appended with RPUSH
//	user_timer:{telegram_id}  short-TTL sentinel; its expiry triggers a drain
//	questions:{telegram_id}   JSON object field -> question, fixed TTL
//
// Every multi-key change runs inside MULTI/EXEC so concurrent enqueues are
// never lost between a read and a clear.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	queueKeyPrefix     = "user_queue:"
	timerKeyPrefix     = "user_timer:"
	questionsKeyPrefix = "questions:"

	timerValue       = "active"
	maxMergeAttempts = 16
)

// ErrMergeConflict is returned when the questions key kept changing under
// MergeQuestions for every attempt.
var ErrMergeConflict = errors.New("questions merge: too many concurrent writers")

// Entry is one raw inbound message waiting for the debounce window to close.
type Entry struct {
	MessageID int64   `json:"message_id"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}

// SentAt converts the Unix timestamp (seconds, fractional) to a time.
func (e Entry) SentAt() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// QueueKey returns the list key of a user.
func QueueKey(telegramID int64) string { return queueKeyPrefix + strconv.FormatInt(telegramID, 10) }

// TimerKey returns the debounce timer key of a user.
func TimerKey(telegramID int64) string { return timerKeyPrefix + strconv.FormatInt(telegramID, 10) }

// QuestionsKey returns the pending questions key of a user.
func QuestionsKey(telegramID int64) string {
	return questionsKeyPrefix + strconv.FormatInt(telegramID, 10)
}

// ParseTimerKey extracts the user id from an expired timer key.
func ParseTimerKey(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, timerKeyPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Store is the Redis-backed queue and questions store. It is safe for
// concurrent use.
type Store struct {
	rdb          *goredis.Client
	debounce     time.Duration
	questionsTTL time.Duration
}

// NewStore wraps an existing client.
func NewStore(rdb *goredis.Client, debounce, questionsTTL time.Duration) *Store {
	if debounce <= 0 {
		debounce = 3 * time.Second
	}
	if questionsTTL <= 0 {
		questionsTTL = time.Hour
	}
	return &Store{rdb: rdb, debounce: debounce, questionsTTL: questionsTTL}
}

// Client exposes the underlying client (used by the expiry listener).
func (s *Store) Client() *goredis.Client { return s.rdb }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

// Enqueue appends an entry and restarts the user's debounce countdown.
func (s *Store) Enqueue(ctx context.Context, telegramID int64, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, QueueKey(telegramID), payload)
		p.Set(ctx, TimerKey(telegramID), timerValue, s.debounce)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// Drain atomically reads and deletes the user's list. Entries that cannot be
// decoded are logged and skipped.
func (s *Store) Drain(ctx context.Context, telegramID int64) ([]Entry, error) {
	key := QueueKey(telegramID)
	var lr *goredis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		lr = p.LRange(ctx, key, 0, -1)
		p.Del(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("drain: %w", err)
	}

	raw := lr.Val()
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			log.Warn().Err(err).Int64("tg_user_id", telegramID).Msg("queue: dropping undecodable entry")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Pending returns the number of buffered entries for a user.
func (s *Store) Pending(ctx context.Context, telegramID int64) (int64, error) {
	return s.rdb.LLen(ctx, QueueKey(telegramID)).Result()
}

// MergeQuestions unions q into the user's pending questions (entries from q
// win on collision) and resets the questions TTL. It uses WATCH so merges from
// concurrent pipelines never overwrite each other.
func (s *Store) MergeQuestions(ctx context.Context, telegramID int64, q map[string]string) error {
	return s.mergeQuestions(ctx, telegramID, q, true)
}

// RestoreQuestions puts back questions taken by TakeQuestions whose delivery
// failed. Fields merged in the meantime are newer and keep their text.
func (s *Store) RestoreQuestions(ctx context.Context, telegramID int64, q map[string]string) error {
	return s.mergeQuestions(ctx, telegramID, q, false)
}

func (s *Store) mergeQuestions(ctx context.Context, telegramID int64, q map[string]string, overwrite bool) error {
	if len(q) == 0 {
		return nil
	}
	key := QuestionsKey(telegramID)

	txf := func(tx *goredis.Tx) error {
		cur, err := readQuestions(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur == nil {
			cur = make(map[string]string, len(q))
		}
		for k, v := range q {
			if _, taken := cur[k]; taken && !overwrite {
				continue
			}
			cur[k] = v
		}
		payload, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, payload, s.questionsTTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxMergeAttempts; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrMergeConflict
}

// TakeQuestions atomically reads and deletes the pending questions. A merge
// that lands after the take starts a fresh accumulator instead of being
// wiped by a later clear.
func (s *Store) TakeQuestions(ctx context.Context, telegramID int64) (map[string]string, error) {
	key := QuestionsKey(telegramID)
	var get *goredis.StringCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		get = p.Get(ctx, key)
		p.Del(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("take questions: %w", err)
	}
	return decodeQuestions(get.Val(), key), nil
}

// Questions returns the pending questions, or nil when there are none.
func (s *Store) Questions(ctx context.Context, telegramID int64) (map[string]string, error) {
	return readQuestions(ctx, s.rdb, QuestionsKey(telegramID))
}

// QuestionsTTL returns the remaining lifetime of the pending questions.
func (s *Store) QuestionsTTL(ctx context.Context, telegramID int64) (time.Duration, error) {
	return s.rdb.TTL(ctx, QuestionsKey(telegramID)).Result()
}

// getter is satisfied by both *goredis.Client and *goredis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func readQuestions(ctx context.Context, c getter, key string) (map[string]string, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeQuestions(string(raw), key), nil
}

func decodeQuestions(raw, key string) map[string]string {
	if raw == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("queue: discarding corrupt questions payload")
		return nil
	}
	return out
}
