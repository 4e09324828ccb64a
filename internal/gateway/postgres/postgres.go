// Package postgres keeps the snapshot in a Postgres table and uses
// LISTEN/NOTIFY to tell other devices that it changed.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
)

const (
	DefaultChannel    = "finance_snapshots"
	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS finance_snapshots (
    user_id    TEXT PRIMARY KEY,
    payload    JSONB NOT NULL,
    origin     TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Config struct {
	URL     string
	Channel string
	UserID  string
}

// notification is the NOTIFY payload. The document itself is read back
// from the table since NOTIFY payloads are capped at 8000 bytes.
type notification struct {
	UserID string `json:"user_id"`
	Origin string `json:"origin"`
}

type Gateway struct {
	db      *sql.DB
	connStr string
	channel string
	userID  string
	origin  string
	logger  *slog.Logger
}

var (
	_ gateway.Gateway    = (*Gateway)(nil)
	_ gateway.Subscriber = (*Gateway)(nil)
)

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Gateway, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgres url is required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("postgres user id is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Gateway{
		db:      db,
		connStr: cfg.URL,
		channel: cfg.Channel,
		userID:  cfg.UserID,
		origin:  gateway.NewOrigin(),
		logger:  logger.With("backend", "postgres"),
	}, nil
}

func (g *Gateway) Name() string { return "postgres" }

func (g *Gateway) Ready() bool { return g.db != nil }

func (g *Gateway) Close() error {
	return g.db.Close()
}

func (g *Gateway) Push(ctx context.Context, doc core.BackupData) error {
	payload, err := gateway.EncodePayload(doc)
	if err != nil {
		return err
	}
	note, err := json.Marshal(notification{UserID: g.userID, Origin: g.origin})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO finance_snapshots (user_id, payload, origin, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET payload = EXCLUDED.payload, origin = EXCLUDED.origin, updated_at = now()`,
		g.userID, string(payload), g.origin); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	// delivered on commit
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, g.channel, string(note)); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (g *Gateway) Pull(ctx context.Context) (backup.Snapshot, bool, error) {
	snap, _, found, err := g.read(ctx)
	return snap, found, err
}

// read returns the stored snapshot and the origin that wrote it.
func (g *Gateway) read(ctx context.Context) (backup.Snapshot, string, bool, error) {
	var payload, origin string
	err := g.db.QueryRowContext(ctx,
		`SELECT payload, origin FROM finance_snapshots WHERE user_id = $1`, g.userID).Scan(&payload, &origin)
	if errors.Is(err, sql.ErrNoRows) {
		return backup.Snapshot{}, "", false, nil
	}
	if err != nil {
		return backup.Snapshot{}, "", false, fmt.Errorf("select snapshot: %w", err)
	}
	snap, err := gateway.DecodePayload([]byte(payload))
	if err != nil {
		return backup.Snapshot{}, "", false, err
	}
	return snap, origin, true, nil
}

func (g *Gateway) Subscribe(ctx context.Context) (*gateway.Subscription, error) {
	return gateway.NewSubscription(ctx, g.listen), nil
}

func (g *Gateway) listen(ctx context.Context, deliver gateway.DeliverFunc) error {
	for {
		if !g.connectAndListen(ctx, deliver) {
			return nil
		}

		// Wait before reconnecting
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectInterval):
			g.logger.Info("Reconnecting to PostgreSQL for notifications")
		}
	}
}

// connectAndListen returns false when the subscription is over and true
// when the connection was lost and should be re-established.
func (g *Gateway) connectAndListen(ctx context.Context, deliver gateway.DeliverFunc) bool {
	listener := pq.NewListener(g.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			g.logger.Debug("Connected to notification channel", "channel", g.channel)
		case pq.ListenerEventDisconnected:
			g.logger.Warn("Disconnected from notification channel", "error", err)
		case pq.ListenerEventReconnected:
			g.logger.Info("Reconnected to notification channel")
		case pq.ListenerEventConnectionAttemptFailed:
			g.logger.Warn("Notification connection attempt failed", "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(g.channel); err != nil {
		g.logger.Error("Failed to listen", "channel", g.channel, "error", err)
		return ctx.Err() == nil
	}

	// Catch up on whatever was written while we were not listening.
	if !g.deliverCurrent(ctx, deliver) {
		return false
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case n := <-listener.Notify:
			if n == nil {
				// Connection lost, break to reconnect
				return true
			}
			if !g.handleNotification(ctx, n, deliver) {
				return false
			}
		case <-time.After(pingInterval):
			go func() {
				if err := listener.Ping(); err != nil {
					g.logger.Warn("Listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (g *Gateway) handleNotification(ctx context.Context, n *pq.Notification, deliver gateway.DeliverFunc) bool {
	var note notification
	if err := json.Unmarshal([]byte(n.Extra), &note); err != nil {
		g.logger.Warn("Failed to parse notification payload", "error", err)
		return true
	}
	if note.UserID != g.userID || note.Origin == g.origin {
		return true
	}
	return g.deliverCurrent(ctx, deliver)
}

// deliverCurrent hands over the stored snapshot unless this gateway wrote it.
func (g *Gateway) deliverCurrent(ctx context.Context, deliver gateway.DeliverFunc) bool {
	snap, origin, found, err := g.read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		g.logger.Warn("Failed to read remote snapshot", "error", err)
		return true
	}
	if !found || origin == g.origin {
		return true
	}
	return deliver(snap)
}
