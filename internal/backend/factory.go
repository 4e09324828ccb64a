package backend

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"hhsfinance/internal/gateway"
	"hhsfinance/internal/gateway/amqp"
	"hhsfinance/internal/gateway/drive"
	"hhsfinance/internal/gateway/firestore"
	"hhsfinance/internal/gateway/gcs"
	"hhsfinance/internal/gateway/googleauth"
	"hhsfinance/internal/gateway/memory"
	"hhsfinance/internal/gateway/postgres"
	applog "hhsfinance/internal/log"
)

const datastoreScope = "https://www.googleapis.com/auth/datastore"

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	hub    *memory.Hub
}

// NewFactory creates a new backend factory. Memory backends created by the
// same factory share one hub.
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		hub:    memory.NewHub(),
	}
}

// Hub is the hub behind memory backends.
func (f *DefaultFactory) Hub() *memory.Hub {
	return f.hub
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case NoneBackend:
		f.logger.Info("No sync backend configured, running local only")
		return &BackendResult{}, nil
	case MemoryBackend:
		res, err = f.createMemoryBackend()
	case FirestoreBackend:
		res, err = f.createFirestoreBackend(ctx, config)
	case PostgresBackend:
		res, err = f.createPostgresBackend(ctx, config)
	case AMQPBackend:
		res, err = f.createAMQPBackend(config)
	case DriveBackend:
		res, err = f.createDriveBackend(ctx, config)
	case GCSBackend:
		res, err = f.createGCSBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.Type != MemoryBackend && !config.DisableBreaker {
		res.Gateway = gateway.WithBreaker(res.Gateway, nil)
	}
	f.logger.Info("Initialized sync backend",
		applog.FieldBackend, config.Type.String(),
		"realtime", config.Type.Realtime())
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	return &BackendResult{Gateway: memory.NewClient(f.hub)}, nil
}

func (f *DefaultFactory) createFirestoreBackend(ctx context.Context, config Config) (*BackendResult, error) {
	opts, err := googleauth.ClientOptions(ctx, config.Google, datastoreScope)
	if err != nil {
		return nil, fmt.Errorf("firestore credentials: %w", err)
	}
	gw, err := firestore.New(ctx, firestore.Config{
		ProjectID:  config.FirestoreProjectID,
		Collection: config.FirestoreCollection,
		UserID:     config.UserID,
		Options:    opts,
	}, f.logger.Slog())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}
	return &BackendResult{Gateway: gw, Cleanup: gw.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	gw, err := postgres.New(ctx, postgres.Config{
		URL:     config.PostgresURL,
		Channel: config.PostgresChannel,
		UserID:  config.UserID,
	}, f.logger.Slog())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres backend: %w", err)
	}
	return &BackendResult{Gateway: gw, Cleanup: gw.Close}, nil
}

func (f *DefaultFactory) createAMQPBackend(config Config) (*BackendResult, error) {
	gw, err := amqp.New(amqp.Config{
		URL:      config.AMQPURL,
		Exchange: config.AMQPExchange,
		Queue:    config.AMQPQueue,
		UserID:   config.UserID,
	}, f.logger.Slog())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return &BackendResult{Gateway: gw, Cleanup: gw.Close}, nil
}

func (f *DefaultFactory) createDriveBackend(ctx context.Context, config Config) (*BackendResult, error) {
	opts, err := googleauth.ClientOptions(ctx, config.Google, drive.Scope)
	if err != nil {
		return nil, fmt.Errorf("drive credentials: %w", err)
	}
	gw, err := drive.New(ctx, drive.Config{
		FolderID: config.DriveFolderID,
		FileName: config.DriveFileName,
		Options:  opts,
	}, f.logger.Slog())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Drive client: %w", err)
	}
	return &BackendResult{Gateway: gw}, nil
}

func (f *DefaultFactory) createGCSBackend(ctx context.Context, config Config) (*BackendResult, error) {
	opts, err := googleauth.ClientOptions(ctx, config.Google, storage.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("gcs credentials: %w", err)
	}
	gw, err := gcs.New(ctx, gcs.Config{
		Bucket:  config.GCSBucket,
		Object:  config.GCSObject,
		Options: opts,
	}, f.logger.Slog())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloud Storage client: %w", err)
	}
	return &BackendResult{Gateway: gw, Cleanup: gw.Close}, nil
}
