package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/communiconnect/backend/internal/auth"
	"github.com/communiconnect/backend/internal/config"
	"github.com/communiconnect/backend/internal/db"
	"github.com/communiconnect/backend/internal/events"
	"github.com/communiconnect/backend/internal/friendships"
	"github.com/communiconnect/backend/internal/handlers"
	"github.com/communiconnect/backend/internal/metrics"
	"github.com/communiconnect/backend/internal/middleware"
	"github.com/communiconnect/backend/internal/repositories"
	"github.com/communiconnect/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains queued events and closes the broker
// connection.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (handlers.Dependencies, func(context.Context) error, error) {
	var closers []func(context.Context) error
	cleanup := func(ctx context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i](ctx))
		}
		return errors.Join(errs...)
	}

	opts := []friendships.Option{friendships.WithObserver(m)}

	if len(cfg.Events.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("configure event publisher: %w", err)
		}
		closers = append(closers, func(context.Context) error { return publisher.Close() })

		dispatcher := events.NewDispatcher(publisher, events.DispatcherConfig{}, m, logger)
		closers = append(closers, dispatcher.Shutdown)

		opts = append(opts, friendships.WithEventPublisher(dispatcher))
	}

	deps := handlers.Dependencies{
		Friends:       friendships.NewService(repositories.NewPostgresFriendshipRepository(pool), opts...),
		Users:         repositories.NewPostgresUserRepository(pool),
		MaxAvatarSize: cfg.ObjectStore.MaxAvatarSize,
		FriendRequestLimiter: middleware.NewKeyedRateLimiter(
			cfg.RateLimit.Requests,
			cfg.RateLimit.Window,
			cfg.RateLimit.Burst,
			cfg.RateLimit.TTL,
		),
		Authenticate: middleware.RequireUser(auth.NewTokens(cfg.JWTSecret)),
		Metrics:      m.Handler(),
	}

	if pinger, ok := pool.(handlers.Pinger); ok {
		deps.Database = pinger
	}

	if cfg.ObjectStore.Enabled() {
		avatars, err := storage.NewAvatarStore(ctx, cfg.ObjectStore)
		if err != nil {
			_ = cleanup(ctx)
			return handlers.Dependencies{}, nil, fmt.Errorf("configure avatar storage: %w", err)
		}
		deps.Avatars = avatars
	}

	return deps, cleanup, nil
}
