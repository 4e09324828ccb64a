// Package firestore stores the snapshot in a single Firestore document and
// streams its changes with a snapshot listener.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
)

const DefaultCollection = "finance"

type Config struct {
	ProjectID  string
	Collection string
	UserID     string
	Options    []option.ClientOption
}

// record is the stored document. The payload is kept as a JSON string so
// both envelope versions round-trip untouched.
type record struct {
	Payload   string    `firestore:"payload"`
	Origin    string    `firestore:"origin"`
	UpdatedAt time.Time `firestore:"updatedAt,serverTimestamp"`
}

type Gateway struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
	origin string
	logger *slog.Logger
}

var (
	_ gateway.Gateway    = (*Gateway)(nil)
	_ gateway.Subscriber = (*Gateway)(nil)
)

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Gateway, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("firestore user id is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Gateway{
		client: client,
		doc:    client.Collection(cfg.Collection).Doc(cfg.UserID),
		origin: gateway.NewOrigin(),
		logger: logger.With("backend", "firestore"),
	}, nil
}

func (g *Gateway) Name() string { return "firestore" }

func (g *Gateway) Ready() bool { return g.client != nil }

func (g *Gateway) Close() error {
	return g.client.Close()
}

func (g *Gateway) Push(ctx context.Context, doc core.BackupData) error {
	payload, err := gateway.EncodePayload(doc)
	if err != nil {
		return err
	}
	_, err = g.doc.Set(ctx, record{Payload: string(payload), Origin: g.origin})
	if err != nil {
		return fmt.Errorf("firestore set: %w", err)
	}
	return nil
}

func (g *Gateway) Pull(ctx context.Context) (backup.Snapshot, bool, error) {
	ds, err := g.doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return backup.Snapshot{}, false, nil
	}
	if err != nil {
		return backup.Snapshot{}, false, fmt.Errorf("firestore get: %w", err)
	}
	rec, err := decodeRecord(ds)
	if err != nil {
		return backup.Snapshot{}, false, err
	}
	snap, err := gateway.DecodePayload([]byte(rec.Payload))
	if err != nil {
		return backup.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (g *Gateway) Subscribe(ctx context.Context) (*gateway.Subscription, error) {
	return gateway.NewSubscription(ctx, g.watch), nil
}

func (g *Gateway) watch(ctx context.Context, deliver gateway.DeliverFunc) error {
	it := g.doc.Snapshots(ctx)
	defer it.Stop()

	for {
		ds, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("firestore snapshots: %w", err)
		}
		if !ds.Exists() {
			continue
		}
		rec, err := decodeRecord(ds)
		if err != nil {
			g.logger.Warn("Skipping unreadable remote document", "error", err)
			continue
		}
		if rec.Origin == g.origin {
			continue
		}
		snap, err := gateway.DecodePayload([]byte(rec.Payload))
		if err != nil {
			g.logger.Warn("Skipping malformed remote snapshot", "error", err)
			continue
		}
		if !deliver(snap) {
			return nil
		}
	}
}

func decodeRecord(ds *firestore.DocumentSnapshot) (record, error) {
	var rec record
	if err := ds.DataTo(&rec); err != nil {
		return record{}, fmt.Errorf("firestore decode: %w", err)
	}
	return rec, nil
}
