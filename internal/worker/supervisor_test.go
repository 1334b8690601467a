package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// flakySubscriber fails its first subscription, then delivers ids and
// blocks until cancelled.
type flakySubscriber struct {
	calls atomic.Int32
	ids   []int64
}

func (s *flakySubscriber) Listen(ctx context.Context, handle func(int64)) error {
	if s.calls.Add(1) == 1 {
		return errors.New("connection reset")
	}
	for _, id := range s.ids {
		handle(id)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSupervisor_ResubscribesAndDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := &fakeQueue{}
	q.push(7, entries("выпил кофе")...)
	p := &fakePipeline{}
	sub := &flakySubscriber{ids: []int64{7}}
	s := &Supervisor{
		Listener:    sub,
		Coordinator: &Coordinator{Queue: q, Pipeline: p},
		MaxBackoff:  50 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for len(p.processed()) == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("event was never processed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
	if sub.calls.Load() < 2 {
		t.Fatalf("expected a resubscribe, calls = %d", sub.calls.Load())
	}
}

func TestSupervisor_BackoffCapped(t *testing.T) {
	s := &Supervisor{MaxBackoff: 100 * time.Millisecond}
	b := s.newBackoff()
	for i := 0; i < 20; i++ {
		// Randomization may stretch an interval by half of itself.
		if d := b.NextBackOff(); d > 150*time.Millisecond {
			t.Fatalf("interval %v exceeds cap", d)
		}
	}
}
