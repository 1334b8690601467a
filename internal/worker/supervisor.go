package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Subscriber delivers expired debounce timers as user ids.
type Subscriber interface {
	Listen(ctx context.Context, handle func(telegramID int64)) error
}

// Supervisor keeps the expiry subscription alive and feeds the coordinator.
// A failed subscription is logged and re-established after an exponential
// backoff; the backoff resets once a subscription has stayed up for
// HealthyAfter.
type Supervisor struct {
	Listener    Subscriber
	Coordinator *Coordinator

	MaxBackoff   time.Duration
	HealthyAfter time.Duration
	// Buffer is the capacity of the event channel between listener and coordinator.
	Buffer int
}

// Run blocks until ctx is done. In-flight batches finish before it returns.
func (s *Supervisor) Run(ctx context.Context) error {
	buf := s.Buffer
	if buf <= 0 {
		buf = 256
	}
	events := make(chan int64, buf)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Closing events lets the coordinator drain what is queued.
		return s.Coordinator.Run(context.WithoutCancel(gctx), events)
	})
	g.Go(func() error {
		defer close(events)
		s.listen(gctx, events)
		return nil
	})
	return g.Wait()
}

func (s *Supervisor) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	if s.MaxBackoff > 0 {
		b.MaxInterval = s.MaxBackoff
	}
	if b.InitialInterval > b.MaxInterval {
		b.InitialInterval = b.MaxInterval
	}
	return b
}

func (s *Supervisor) listen(ctx context.Context, events chan<- int64) {
	b := s.newBackoff()
	healthy := s.HealthyAfter
	if healthy <= 0 {
		healthy = time.Minute
	}

	for {
		started := time.Now()
		err := s.Listener.Listen(ctx, func(id int64) {
			select {
			case events <- id:
			case <-ctx.Done():
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("listener returned without error")
		}
		if time.Since(started) >= healthy {
			b.Reset()
		}
		wait := b.NextBackOff()
		listenerRestarts.Inc()
		log.Error().Err(err).Dur("retry_in", wait).Msg("expiry subscription lost, resubscribing")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
