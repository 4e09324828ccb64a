// Package gcs keeps the snapshot as a single Cloud Storage object.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
)

const DefaultObject = "hhsfinance/sync.json"

type Config struct {
	Bucket  string
	Object  string
	Options []option.ClientOption
}

type Gateway struct {
	client *storage.Client
	obj    *storage.ObjectHandle
	bucket string
	object string
	logger *slog.Logger
}

var _ gateway.Gateway = (*Gateway)(nil)

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Gateway, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	if cfg.Object == "" {
		cfg.Object = DefaultObject
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Gateway{
		client: client,
		obj:    client.Bucket(cfg.Bucket).Object(cfg.Object),
		bucket: cfg.Bucket,
		object: cfg.Object,
		logger: logger.With("backend", "gcs"),
	}, nil
}

func (g *Gateway) Name() string { return "gcs" }

func (g *Gateway) Ready() bool { return g.client != nil }

func (g *Gateway) Close() error {
	return g.client.Close()
}

func (g *Gateway) Push(ctx context.Context, doc core.BackupData) error {
	payload, err := backup.Marshal(doc)
	if err != nil {
		return err
	}
	w := g.obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", g.bucket, g.object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", g.bucket, g.object, err)
	}
	g.logger.DebugContext(ctx, "Uploaded snapshot", "bytes", len(payload))
	return nil
}

func (g *Gateway) Pull(ctx context.Context) (backup.Snapshot, bool, error) {
	r, err := g.obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return backup.Snapshot{}, false, nil
	}
	if err != nil {
		return backup.Snapshot{}, false, fmt.Errorf("open gs://%s/%s: %w", g.bucket, g.object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return backup.Snapshot{}, false, fmt.Errorf("read gs://%s/%s: %w", g.bucket, g.object, err)
	}
	snap, err := gateway.DecodePayload(data)
	if err != nil {
		return backup.Snapshot{}, false, err
	}
	return snap, true, nil
}
