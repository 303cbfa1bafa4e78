package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/islandman/hotel-listing/internal/api/handler"
	"github.com/islandman/hotel-listing/internal/core/ports"
	"github.com/islandman/hotel-listing/internal/core/service"
	"github.com/islandman/hotel-listing/internal/infrastructure/config"
	"github.com/islandman/hotel-listing/internal/infrastructure/db/mongo"
	"github.com/islandman/hotel-listing/internal/infrastructure/db/redis"
	"github.com/islandman/hotel-listing/internal/infrastructure/db/sqlstore"
	"github.com/islandman/hotel-listing/internal/infrastructure/ratelimit"
	"github.com/islandman/hotel-listing/pkg/logger"
)

const memoryLimiterCleanup = time.Minute

// cleanup collects shutdown hooks and runs them in reverse order.
type cleanup []func(context.Context)

func (c *cleanup) add(fn func(context.Context)) { *c = append(*c, fn) }

func (c cleanup) run(ctx context.Context) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i](ctx)
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger, migrate bool) (*sqlstore.Store, error) {
	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Dialect:         cfg.DB.Dialect,
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}, logger.Component("sqlstore"))
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, err
		}
		log.Info().Str("dialect", store.Dialect().Name).Msg("schema up to date")
	}
	return store, nil
}

// openIdentityStore returns the principal repository selected by
// IDENTITY_STORE, plus a readiness probe when it lives outside the SQL store.
func openIdentityStore(ctx context.Context, cfg *config.Config, store *sqlstore.Store, log zerolog.Logger, hooks *cleanup) (ports.PrincipalRepository, map[string]handler.Pinger, error) {
	switch cfg.IdentityStore {
	case config.IdentityStoreMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		hooks.add(func(ctx context.Context) {
			if err := client.Disconnect(ctx); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		})

		repo := mongo.NewPrincipalRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("identity store: mongo")
		return repo, map[string]handler.Pinger{"mongo": mongo.Pinger{Client: client}}, nil
	default:
		log.Info().Msg("identity store: sql")
		return store.Principals(), nil, nil
	}
}

// openLimiterStore returns nil when rate limiting is disabled.
func openLimiterStore(ctx context.Context, cfg *config.Config, log zerolog.Logger, hooks *cleanup) (ports.RateLimitStore, map[string]handler.Pinger, error) {
	if !cfg.RateLimit.Enabled {
		log.Info().Msg("rate limiting disabled")
		return nil, nil, nil
	}

	switch cfg.RateLimit.Store {
	case config.RateLimitStoreRedis:
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		hooks.add(func(context.Context) {
			if err := client.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close")
			}
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("rate limit store: redis")
		return redis.NewRateLimitStore(client, ""), map[string]handler.Pinger{"redis": redis.Pinger{Client: client}}, nil
	default:
		log.Info().Msg("rate limit store: memory")
		return ratelimit.NewMemoryStore(memoryLimiterCleanup), nil, nil
	}
}

func newAuthService(cfg *config.Config, repo ports.PrincipalRepository) (*service.AuthService, *service.TokenManager, error) {
	tokens, err := service.NewTokenManager(service.TokenConfig{
		SigningKey: []byte(cfg.JWT.Key),
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		Lifetime:   cfg.JWT.Lifetime(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("token manager: %w", err)
	}
	auth := service.NewAuthService(repo, tokens, logger.Component("auth"), service.WithBcryptCost(cfg.BcryptCost))
	return auth, tokens, nil
}
