package backend

import (
	"context"

	"hhsfinance/internal/gateway"
	"hhsfinance/internal/gateway/googleauth"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the sync gateway and optional cleanup function.
// Gateway is nil for the none backend.
type BackendResult struct {
	Gateway gateway.Gateway
	Cleanup CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a sync gateway based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type   BackendType
	UserID string

	// Firestore specific
	FirestoreProjectID  string
	FirestoreCollection string

	// Postgres specific
	PostgresURL     string
	PostgresChannel string

	// AMQP specific
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Drive specific
	DriveFolderID string
	DriveFileName string

	// Cloud Storage specific
	GCSBucket string
	GCSObject string

	// Shared by drive, gcs and firestore
	Google googleauth.Credentials

	// DisableBreaker skips the circuit breaker around remote backends.
	DisableBreaker bool
}

// BackendType represents the type of backend
type BackendType string

const (
	NoneBackend      BackendType = "none"
	MemoryBackend    BackendType = "memory"
	FirestoreBackend BackendType = "firestore"
	PostgresBackend  BackendType = "postgres"
	AMQPBackend      BackendType = "amqp"
	DriveBackend     BackendType = "drive"
	GCSBackend       BackendType = "gcs"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case NoneBackend, MemoryBackend, FirestoreBackend, PostgresBackend,
		AMQPBackend, DriveBackend, GCSBackend:
		return true
	default:
		return false
	}
}

// Realtime reports whether the backend delivers live updates.
func (bt BackendType) Realtime() bool {
	switch bt {
	case MemoryBackend, FirestoreBackend, PostgresBackend, AMQPBackend:
		return true
	default:
		return false
	}
}
