package queue

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrSubscriptionClosed is returned by Listen when Redis closed the channel.
var ErrSubscriptionClosed = errors.New("expiry subscription closed")

// Listener delivers expired debounce timers as user ids.
type Listener struct {
	rdb *goredis.Client
	db  int
}

// NewListener subscribes on the keyevent channel of the given logical db.
func NewListener(rdb *goredis.Client, db int) *Listener {
	return &Listener{rdb: rdb, db: db}
}

// Channel is the keyevent channel for expirations.
func (l *Listener) Channel() string {
	return fmt.Sprintf("__keyevent@%d__:expired", l.db)
}

// Listen blocks until ctx is done or the subscription fails, calling handle
// for every expired timer key. Other expired keys are ignored.
func (l *Listener) Listen(ctx context.Context, handle func(telegramID int64)) error {
	sub := l.rdb.Subscribe(ctx, l.Channel())
	defer sub.Close()

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", l.Channel(), err)
	}
	log.Info().Str("channel", l.Channel()).Msg("listening for debounce timer expirations")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return ErrSubscriptionClosed
			}
			if id, ok := ParseTimerKey(msg.Payload); ok {
				handle(id)
			}
		}
	}
}
