// Package amqp distributes snapshots over a RabbitMQ direct exchange. The
// latest document is retained in a length-one durable queue for pulls;
// each live subscriber binds its own exclusive queue.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
)

const (
	DefaultExchange = "hhsfinance"
	DefaultQueue    = "hhsfinance_snapshots"
	publishTimeout  = 5 * time.Second
	maxBackoff      = 30 * time.Second
)

type Config struct {
	URL      string
	Exchange string
	Queue    string
	UserID   string
}

type Gateway struct {
	cfg    Config
	origin string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

var (
	_ gateway.Gateway    = (*Gateway)(nil)
	_ gateway.Subscriber = (*Gateway)(nil)
)

func New(cfg Config, logger *slog.Logger) (*Gateway, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp url is required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("amqp user id is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		cfg:    cfg,
		origin: gateway.NewOrigin(),
		logger: logger.With("backend", "amqp"),
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.connectLocked(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Gateway) connectLocked() error {
	conn, err := amqp091.Dial(g.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := g.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	g.conn = conn
	g.channel = channel
	return nil
}

func (g *Gateway) setup(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(
		g.cfg.Exchange, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Only the newest snapshot matters; older ones are dropped from the head.
	if _, err := ch.QueueDeclare(
		g.retainedQueue(), // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		amqp091.Table{"x-max-length": int32(1)},
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(
		g.retainedQueue(), // queue name
		g.cfg.UserID,      // routing key
		g.cfg.Exchange,    // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (g *Gateway) retainedQueue() string {
	return g.cfg.Queue + "." + g.cfg.UserID
}

// channelLocked returns a usable channel, reconnecting when the previous
// connection was closed.
func (g *Gateway) channelLocked() (*amqp091.Channel, error) {
	if g.conn != nil && !g.conn.IsClosed() && g.channel != nil && !g.channel.IsClosed() {
		return g.channel, nil
	}
	g.closeLocked()
	if err := g.connectLocked(); err != nil {
		return nil, err
	}
	g.logger.Info("Reconnected to AMQP broker")
	return g.channel, nil
}

func (g *Gateway) Name() string { return "amqp" }

func (g *Gateway) Ready() bool { return true }

func (g *Gateway) Push(ctx context.Context, doc core.BackupData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := newSnapshotMessage(doc, g.origin)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	ch, err := g.channelLocked()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		g.cfg.Exchange, // exchange
		g.cfg.UserID,   // routing key
		false,          // mandatory
		false,          // immediate
		msg,
	)
	if err != nil {
		if isConnectionError(err) {
			g.closeLocked()
		}
		return fmt.Errorf("publish snapshot: %w", err)
	}

	g.logger.DebugContext(ctx, "Published snapshot",
		"message_id", msg.MessageId,
		"exchange", g.cfg.Exchange)
	return nil
}

func (g *Gateway) Pull(ctx context.Context) (backup.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return backup.Snapshot{}, false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, err := g.channelLocked()
	if err != nil {
		return backup.Snapshot{}, false, err
	}
	d, found, err := peek(ch, g.retainedQueue())
	if err != nil {
		if isConnectionError(err) {
			g.closeLocked()
		}
		return backup.Snapshot{}, false, err
	}
	if !found {
		return backup.Snapshot{}, false, nil
	}
	snap, err := gateway.DecodePayload(d.Body)
	if err != nil {
		return backup.Snapshot{}, false, err
	}
	return snap, true, nil
}

// peek reads the retained message and puts it back.
func peek(ch *amqp091.Channel, queue string) (amqp091.Delivery, bool, error) {
	d, ok, err := ch.Get(queue, false)
	if err != nil {
		return amqp091.Delivery{}, false, fmt.Errorf("get retained snapshot: %w", err)
	}
	if !ok {
		return amqp091.Delivery{}, false, nil
	}
	if err := d.Nack(false, true); err != nil { // requeue so the next reader sees it too
		return amqp091.Delivery{}, false, fmt.Errorf("requeue retained snapshot: %w", err)
	}
	return d, true, nil
}

// decodeDelivery returns the snapshot carried by d. Messages published by
// self are skipped.
func decodeDelivery(d amqp091.Delivery, self string) (backup.Snapshot, bool, error) {
	if d.AppId == self {
		return backup.Snapshot{}, false, nil
	}
	snap, err := gateway.DecodePayload(d.Body)
	if err != nil {
		return backup.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (g *Gateway) Subscribe(ctx context.Context) (*gateway.Subscription, error) {
	return gateway.NewSubscription(ctx, g.consume), nil
}

func (g *Gateway) consume(ctx context.Context, deliver gateway.DeliverFunc) error {
	for attempt := 0; ; attempt++ {
		err := g.consumeOnce(ctx, deliver)
		if ctx.Err() != nil || err == nil {
			return nil
		}
		if !isConnectionError(err) {
			return err
		}
		wait := exponentialBackoff(attempt)
		g.logger.Warn("Subscription connection lost, retrying", "error", err, "backoff", wait)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// consumeOnce uses a dedicated connection so that cancelling the
// subscription tears down only its own resources. It returns nil when the
// subscription ended normally.
func (g *Gateway) consumeOnce(ctx context.Context, deliver gateway.DeliverFunc) error {
	conn, err := amqp091.Dial(g.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := g.setup(ch); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare subscriber queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, g.cfg.UserID, g.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind subscriber queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	// Deliver what another client stored; later pushes arrive on msgs.
	retained, found, err := peek(ch, g.retainedQueue())
	if err != nil {
		return err
	}
	if found {
		snap, foreign, err := decodeDelivery(retained, g.origin)
		if err != nil {
			g.logger.Error("Failed to decode retained snapshot", "error", err, "message_id", retained.MessageId)
		} else if foreign && !deliver(snap) {
			return nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return amqp091.ErrClosed
			}
			snap, foreign, err := decodeDelivery(d, g.origin)
			if err != nil {
				g.logger.Error("Failed to decode snapshot message", "error", err, "message_id", d.MessageId)
				continue
			}
			if foreign && !deliver(snap) {
				return nil
			}
		}
	}
}

func (g *Gateway) closeLocked() {
	if g.channel != nil {
		g.channel.Close()
		g.channel = nil
	}
	if g.conn != nil {
		g.conn.Close()
		g.conn = nil
	}
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeLocked()
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "dial"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
