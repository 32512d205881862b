package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/communiconnect/backend/internal/auth"
	"github.com/communiconnect/backend/internal/config"
	"github.com/communiconnect/backend/internal/db"
	"github.com/communiconnect/backend/internal/handlers"
	"github.com/communiconnect/backend/internal/httpserver"
	"github.com/communiconnect/backend/internal/logging"
	"github.com/communiconnect/backend/internal/metrics"
	"github.com/communiconnect/backend/internal/middleware"
)

const usage = "expected command: serve, migrate, seed, or token"

// Run bootstraps the CommuniConnect backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:], os.Stdout)
	case "seed":
		return runSeed(ctx, args[1:], os.Stdout)
	case "token":
		return issueToken(args[1:], os.Stdout)
	default:
		return fmt.Errorf("unknown command %q: %s", args[0], usage)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	pool, err := db.Connect(ctx, cfg.DatabaseURL, int32(cfg.DatabaseMaxConn))
	if err != nil {
		return err
	}
	defer pool.Close()

	m := metrics.New()

	deps, cleanup, err := buildDependencies(ctx, pool, cfg, logger, m)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	handler := middleware.RequestLogger(logger)(middleware.Instrument(m)(mux))

	srv := httpserver.New(cfg.AppPort, handler)

	logger.Info("starting http server",
		"port", cfg.AppPort,
		"eventsEnabled", len(cfg.Events.Brokers) > 0,
		"avatarsEnabled", cfg.ObjectStore.Enabled(),
	)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case runErr = <-srvErr:
		if runErr != nil {
			logger.Error("http server stopped", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := cleanup(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// issueToken prints a signed access token for a user. It is meant for local
// development and smoke tests against a running server.
func issueToken(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("expected user id, optionally followed by a ttl (e.g. 24h)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ttl := time.Hour
	if len(args) > 1 {
		if ttl, err = time.ParseDuration(args[1]); err != nil {
			return fmt.Errorf("parse ttl: %w", err)
		}
	}

	token, err := auth.NewTokens(cfg.JWTSecret).Issue(args[0], ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
