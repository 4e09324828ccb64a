package gateway

import (
	"context"
	"errors"
	"sync"

	"hhsfinance/internal/backup"
)

// DeliverFunc hands a snapshot to the subscriber. It returns false once
// the subscription is cancelled; the producer must then return.
type DeliverFunc func(backup.Snapshot) bool

// Subscription is a live stream of remote snapshots. Updates is closed
// when the producer stops, either after Unsubscribe or on a fatal error
// reported by Err.
type Subscription struct {
	updates chan backup.Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once

	mu  sync.Mutex
	err error
}

// NewSubscription runs produce in its own goroutine until it returns or
// the subscription is cancelled.
func NewSubscription(ctx context.Context, produce func(ctx context.Context, deliver DeliverFunc) error) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		updates: make(chan backup.Snapshot),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	deliver := func(snap backup.Snapshot) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case s.updates <- snap:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)
		defer cancel()
		if err := produce(ctx, deliver); err != nil && !errors.Is(err, context.Canceled) {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()
	return s
}

// Updates delivers remote snapshots in arrival order.
func (s *Subscription) Updates() <-chan backup.Snapshot {
	return s.updates
}

// Done is closed after the producer has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err is the error that ended the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Unsubscribe stops the producer and waits for it to release its
// resources. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
