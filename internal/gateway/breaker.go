package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
)

// NewCircuitBreaker creates a circuit breaker tuned for sync calls.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,                // half-open: one probe
		Interval:    time.Minute,      // closed: reset counters every minute
		Timeout:     30 * time.Second, // open -> half-open after 30s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

type breakerGateway struct {
	Gateway
	cb *gobreaker.CircuitBreaker
}

type breakerSubscriber struct {
	*breakerGateway
	sub Subscriber
}

type pullResult struct {
	snap  backup.Snapshot
	found bool
}

// WithBreaker guards Push and Pull with a circuit breaker. While the
// breaker is open calls fail fast with ErrUnavailable. The Subscriber
// capability of g is preserved.
func WithBreaker(g Gateway, cb *gobreaker.CircuitBreaker) Gateway {
	if cb == nil {
		cb = NewCircuitBreaker(g.Name())
	}
	b := &breakerGateway{Gateway: g, cb: cb}
	if s, ok := g.(Subscriber); ok {
		return &breakerSubscriber{breakerGateway: b, sub: s}
	}
	return b
}

func (b *breakerGateway) Push(ctx context.Context, doc core.BackupData) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.Gateway.Push(ctx, doc)
	})
	return wrapBreakerErr(err)
}

func (b *breakerGateway) Pull(ctx context.Context) (backup.Snapshot, bool, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		snap, found, err := b.Gateway.Pull(ctx)
		if err != nil {
			return nil, err
		}
		return pullResult{snap: snap, found: found}, nil
	})
	if err != nil {
		return backup.Snapshot{}, false, wrapBreakerErr(err)
	}
	r := res.(pullResult)
	return r.snap, r.found, nil
}

func (b *breakerSubscriber) Subscribe(ctx context.Context) (*Subscription, error) {
	return b.sub.Subscribe(ctx)
}

func wrapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
