package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/harvestbridge/harvest-bridge/internal/app"
	"github.com/harvestbridge/harvest-bridge/internal/platform/config"
	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	appmiddleware "github.com/harvestbridge/harvest-bridge/internal/platform/middleware"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(context.Background(), "invalid configuration", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		applog.LogError(ctx, "listen failed", err, zap.String("port", cfg.Port))
		os.Exit(1)
	}
	if err := run(ctx, cfg, ln); err != nil {
		applog.LogError(context.Background(), "server failed", err)
		os.Exit(1)
	}
}

// run serves on ln until ctx is done, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			applog.LogError(context.Background(), "backend close error", err)
		}
	}()

	if cfg.ReconcileInterval > 0 {
		go a.Reconciler().Loop(ctx, cfg.ReconcileInterval)
	}

	srv := newServer(a.Handler(Version, appmiddleware.NewMetrics()))
	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		applog.LogInfo(context.Background(), "shutdown signal received")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	applog.LogInfo(context.Background(), "server exited")
	return nil
}

func newServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
}
