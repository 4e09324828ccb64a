package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hhsfinance/internal/backend"
	"hhsfinance/internal/config"
	"hhsfinance/internal/gateway"
	applog "hhsfinance/internal/log"
	"hhsfinance/internal/metrics"
	"hhsfinance/internal/services"
	"hhsfinance/internal/storage"
)

// App bundles everything a command needs: store, sync backend, metrics
// and the reconciler on top of them.
type App struct {
	Config     *config.Config
	Logger     *applog.Logger
	Metrics    *metrics.Metrics
	Store      storage.Store
	Prefs      *storage.Preferences
	Backend    *backend.BackendResult
	Reconciler *services.Reconciler
}

// AppOptions tweaks Bootstrap.
type AppOptions struct {
	// Store replaces the SQLite store, mostly for tests.
	Store storage.Store
	// Factory replaces the default backend factory.
	Factory backend.Factory
	// Online overrides cfg.StartOnline when set.
	Online *bool
	// Manual disables live updates; changes are still pushed.
	Manual bool
}

// Bootstrap opens the local store, creates the configured sync backend and
// starts the reconciler. A backend that cannot be created is logged and
// the app continues local only.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger, opts AppOptions) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Store:   opts.Store,
	}

	if app.Store == nil {
		repo, err := OpenStore(logger, cfg.SQLiteDBPath)
		if err != nil {
			return nil, err
		}
		repo.SetArchiveLimit(cfg.ArchiveLimit)
		app.Store = repo
	}
	app.Prefs = storage.NewPreferences(app.Store)

	factory := opts.Factory
	if factory == nil {
		factory = backend.NewFactory(logger)
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		_ = app.Store.Close()
		return nil, err
	}
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		logger.LogError(ctx, "Sync backend unavailable, continuing local only", err, applog.OpStartup,
			applog.FieldBackend, bcfg.Type.String())
		res = &backend.BackendResult{}
	}
	app.Backend = res

	gw := res.Gateway
	if opts.Manual {
		gw = gateway.ManualOnly(gw)
	}
	online := cfg.StartOnline
	if opts.Online != nil {
		online = *opts.Online
	}
	app.Reconciler, err = services.New(ctx, services.Options{
		Preferences: app.Prefs,
		Gateway:     gw,
		Logger:      logger,
		Metrics:     app.Metrics,
		Online:      online,
	})
	if err != nil {
		_ = res.Close()
		_ = app.Store.Close()
		return nil, fmt.Errorf("start reconciler: %w", err)
	}
	return app, nil
}

// Close stops the reconciler, waiting up to timeout for pending pushes,
// then releases the backend and the store.
func (a *App) Close(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.Reconciler.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("pending pushes: %w", err))
	}
	if err := a.Backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
