package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"hhsfinance/internal/cli"
	apphttp "hhsfinance/internal/http"
	applog "hhsfinance/internal/log"
	"hhsfinance/internal/worker"
)

func runServe(e *env, args []string) error {
	fs := e.flagSet("serve")
	addr := fs.String("addr", "", "Listen address (default :$PORT)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := e.config()
	if err != nil {
		return err
	}
	logger = logger.WithComponent(applog.ComponentApp)
	if *addr == "" {
		*addr = ":" + cfg.Port
	}

	ctx, cancel := cli.GracefulShutdown(e.ctx, logger)
	defer cancel()

	app, err := cli.Bootstrap(ctx, cfg, logger, cli.AppOptions{})
	if err != nil {
		return err
	}

	srv := apphttp.NewServer(*addr, apphttp.Deps{
		Reconciler: app.Reconciler,
		Store:      app.Store,
		Metrics:    app.Metrics,
		Logger:     logger,
	})
	reconnect := worker.NewReconnectWorker(app.Reconciler, cfg.ReconnectInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting hhsfinance server",
			"addr", *addr,
			applog.FieldBackend, cfg.SyncBackend,
			applog.FieldMode, app.Reconciler.Mode().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return reconnect.Run(gctx)
	})

	err = g.Wait()
	if cerr := app.Close(cfg.ShutdownTimeout); cerr != nil {
		logger.LogError(context.Background(), "Shutdown incomplete", cerr, applog.OpShutdown)
		err = errors.Join(err, cerr)
	}
	if err == nil {
		logger.Info("Server stopped gracefully")
	}
	return err
}
