// Package storage persists the local copy of the application state and
// the user preferences that live next to it.
package storage

import (
	"context"
	"errors"
	"time"
)

// Keys of the persisted record.
const (
	KeyAppState = "app_state"
	KeyLanguage = "language"
	KeyTheme    = "theme"
	KeyAuth     = "auth"
)

// DefaultArchiveLimit is how many replaced snapshots are kept.
const DefaultArchiveLimit = 20

var ErrClosed = errors.New("store closed")

// ArchiveEntry is a local snapshot that was overwritten by a remote one.
type ArchiveEntry struct {
	ID        int64
	Reason    string
	Payload   string
	CreatedAt time.Time
}

// Store is a durable string key/value map plus the snapshot archive.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Archive(ctx context.Context, reason, payload string) error
	Archived(ctx context.Context, limit int) ([]ArchiveEntry, error)
	Close() error
}
