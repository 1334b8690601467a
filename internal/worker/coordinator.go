// Package worker turns debounce-timer expirations into pipeline runs. The
// Coordinator drains a user's buffered messages and processes them with
// bounded parallelism; the Supervisor keeps the expiry subscription alive.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tbourn/go-diary-bot/internal/queue"
	"github.com/tbourn/go-diary-bot/internal/services"
)

// DefaultConcurrency bounds in-flight pipelines when Concurrency is unset.
const DefaultConcurrency = 8

// BatchQueue is the part of the queue store the coordinator needs.
type BatchQueue interface {
	Drain(ctx context.Context, telegramID int64) ([]queue.Entry, error)
	TakeQuestions(ctx context.Context, telegramID int64) (map[string]string, error)
	RestoreQuestions(ctx context.Context, telegramID int64, q map[string]string) error
}

// Processor runs one buffered message through the enrichment pipeline.
type Processor interface {
	Process(ctx context.Context, telegramID int64, e queue.Entry) (*services.Result, error)
}

// BatchReport summarizes one drain.
type BatchReport struct {
	TelegramID int64
	Drained    int
	Succeeded  int
	Failed     int
	Notified   bool
}

// Coordinator dispatches drained batches to the pipeline.
//
// Drains for one user never overlap. Messages of a batch run concurrently,
// capped globally by Concurrency. A failing message is logged and dropped; it
// never cancels its siblings.
type Coordinator struct {
	Queue       BatchQueue
	Pipeline    Processor
	Notifier    Notifier
	Concurrency int

	once  sync.Once
	sem   *semaphore.Weighted
	users keyedMutex
}

func (c *Coordinator) init() {
	c.once.Do(func() {
		n := c.Concurrency
		if n <= 0 {
			n = DefaultConcurrency
		}
		c.sem = semaphore.NewWeighted(int64(n))
	})
}

// Run handles expiry events until events is closed or ctx is done, then
// waits for every dispatched batch to finish. Dispatched work is detached
// from ctx so an accepted batch always runs to completion.
func (c *Coordinator) Run(ctx context.Context, events <-chan int64) error {
	c.init()
	var wg sync.WaitGroup
	defer wg.Wait()

	work := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-events:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := c.HandleExpiry(work, id); err != nil {
					log.Error().Err(err).Int64("tg_user_id", id).Msg("drain failed")
				}
			}()
		}
	}
}

// HandleExpiry drains the user's queue, processes every entry and, once the
// batch is done, delivers the accumulated clarification questions.
func (c *Coordinator) HandleExpiry(ctx context.Context, telegramID int64) (BatchReport, error) {
	c.init()
	rep := BatchReport{TelegramID: telegramID}

	g, results := c.dispatch(ctx, telegramID, &rep)
	if g == nil {
		return rep, results.err
	}
	_ = g.Wait()

	rep.Succeeded, rep.Failed = results.counts()
	if rep.Drained == 0 {
		return rep, nil
	}
	log.Info().
		Int64("tg_user_id", telegramID).
		Int("messages", rep.Drained).
		Int("failed", rep.Failed).
		Msg("batch processed")

	notified, err := c.notify(ctx, telegramID)
	rep.Notified = notified
	return rep, err
}

type batchResults struct {
	mu       sync.Mutex
	ok, fail int
	err      error
}

func (b *batchResults) record(ok bool) {
	b.mu.Lock()
	if ok {
		b.ok++
	} else {
		b.fail++
	}
	b.mu.Unlock()
}

func (b *batchResults) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ok, b.fail
}

// dispatch drains and starts every pipeline while holding the user's lock.
// It returns once the last entry has a slot, not when the pipelines finish.
func (c *Coordinator) dispatch(ctx context.Context, telegramID int64, rep *BatchReport) (*errgroup.Group, *batchResults) {
	c.users.Lock(telegramID)
	defer c.users.Unlock(telegramID)

	res := &batchResults{}
	entries, err := c.Queue.Drain(ctx, telegramID)
	if err != nil {
		res.err = err
		return nil, res
	}
	drainsTotal.Inc()
	rep.Drained = len(entries)

	var g errgroup.Group
	for _, e := range entries {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			// Only reachable with a caller-cancelled ctx; the rest of the
			// batch is lost like any other failed message.
			log.Error().Err(err).Int64("tg_user_id", telegramID).Int64("message_id", e.MessageID).
				Msg("message dropped before dispatch")
			messagesProcessed.WithLabelValues("failed").Inc()
			res.record(false)
			continue
		}
		g.Go(func() error {
			defer c.sem.Release(1)
			res.record(c.processOne(ctx, telegramID, e))
			return nil
		})
	}
	return &g, res
}

func (c *Coordinator) processOne(ctx context.Context, telegramID int64, e queue.Entry) bool {
	pipelinesInflight.Inc()
	start := time.Now()
	defer func() {
		pipelinesInflight.Dec()
		pipelineDuration.Observe(time.Since(start).Seconds())
	}()

	res, err := c.Pipeline.Process(ctx, telegramID, e)
	if err != nil {
		ev := log.Error().Err(err).
			Int64("tg_user_id", telegramID).
			Int64("message_id", e.MessageID).
			Str("stage", services.StageOf(err))
		if res != nil && res.Message != nil {
			ev = ev.Str("stored_id", res.Message.ID)
		}
		ev.Msg("message processing failed")
		messagesProcessed.WithLabelValues("failed").Inc()
		// The message itself is committed when only the questions merge failed.
		return res != nil
	}
	messagesProcessed.WithLabelValues("ok").Inc()
	return true
}

func (c *Coordinator) notify(ctx context.Context, telegramID int64) (bool, error) {
	if c.Notifier == nil {
		return false, nil
	}
	// Batches of the same user may still be merging; taking the questions in
	// one step leaves their merges for the next delivery.
	q, err := c.Queue.TakeQuestions(ctx, telegramID)
	if err != nil {
		return false, err
	}
	text := services.RenderQuestions(q)
	if text == "" {
		return false, nil
	}
	if err := c.Notifier.Notify(ctx, telegramID, text); err != nil {
		notificationsTotal.WithLabelValues("failed").Inc()
		if rerr := c.Queue.RestoreQuestions(ctx, telegramID, q); rerr != nil {
			return false, errors.Join(err, rerr)
		}
		return false, err
	}
	notificationsTotal.WithLabelValues("ok").Inc()
	return true, nil
}
