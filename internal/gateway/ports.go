// Package gateway defines how the application talks to a remote copy of
// its state. Backends live in the subpackages; all of them exchange the
// backup document produced by package backup.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
)

var (
	ErrNotAuthorized = errors.New("sync backend not authorized")
	ErrUnavailable   = errors.New("sync backend unavailable")
)

// Ports for outbound adapters.
type (
	// Gateway pushes and pulls whole snapshots.
	Gateway interface {
		// Name identifies the backend in logs and metrics.
		Name() string
		// Ready reports whether the backend is configured and authorized.
		Ready() bool
		// Push replaces the remote snapshot.
		Push(ctx context.Context, doc core.BackupData) error
		// Pull fetches the remote snapshot. found is false when none exists.
		Pull(ctx context.Context) (snap backup.Snapshot, found bool, err error)
	}

	// Subscriber is implemented by backends that stream remote changes.
	// The current remote snapshot, if any, is delivered first.
	Subscriber interface {
		Subscribe(ctx context.Context) (*Subscription, error)
	}
)

// NewOrigin returns a random id that realtime backends attach to writes so
// a process can recognise its own echoes.
func NewOrigin() string {
	return uuid.NewString()
}

// EncodePayload is the wire form of a pushed document.
func EncodePayload(doc core.BackupData) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

// DecodePayload accepts both envelopes, so documents written by older
// clients remain readable.
func DecodePayload(b []byte) (backup.Snapshot, error) {
	return backup.Decode(b)
}

type manualOnly struct {
	Gateway
}

// ManualOnly hides the Subscriber capability of g, so callers only push
// and pull on demand. Short-lived processes use it to avoid racing the
// initial remote delivery.
func ManualOnly(g Gateway) Gateway {
	if g == nil {
		return nil
	}
	return manualOnly{Gateway: g}
}
