package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/spellauth"
	"github.com/MrEthical07/spellauth/internal/settings"
	"github.com/MrEthical07/spellauth/store"
	"github.com/MrEthical07/spellauth/store/gormstore"
	"github.com/MrEthical07/spellauth/store/memory"
	"github.com/MrEthical07/spellauth/store/postgres"
)

// runtime holds the process-wide engine and the connections behind it.
type runtime struct {
	engine  *spellauth.Engine
	backend store.Backend
	redis   redis.UniversalClient
	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg *settings.Settings) (store.Backend, func(), error) {
	switch cfg.Store {
	case settings.StorePostgres:
		pool, err := postgres.Open(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(pool), pool.Close, nil
	case settings.StoreSQLite:
		s, err := gormstore.OpenSQLite(cfg.SQLitePath, gormstore.Options{Debug: !cfg.IsProduction() && cfg.LogLevel == "debug"})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case settings.StoreMemory:
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func openRuntime(ctx context.Context, cfg *settings.Settings, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{}

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.backend = backend
	rt.closers = append(rt.closers, closeBackend)

	if cfg.RedisAddr != "" {
		rt.redis = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping", slog.Any("error", err))
		}
		rt.closers = append(rt.closers, func() {
			if err := rt.redis.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		})
	}

	engineCfg := spellauth.DefaultConfig()
	engineCfg.Token.DefaultTTL = cfg.TokenTTL
	engineCfg.Account.DefaultRole = cfg.DefaultRole
	engineCfg.Cache.RedisPrefix = cfg.RedisPrefix
	engineCfg.Cache.TTL = cfg.CacheTTL
	engineCfg.Audit.Enabled = true
	engineCfg.Audit.Events = cfg.AuditEvents
	engineCfg.Metrics.Enabled = true
	engineCfg.Metrics.EnableLatencyHistograms = true

	engine, err := spellauth.New().
		WithConfig(engineCfg).
		WithStores(backend).
		WithRedis(rt.redis).
		WithSecretSource(settings.EnvSecret{}).
		WithAuditSink(spellauth.NewSlogSink(logger)).
		WithLogger(logger).
		Build()
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	rt.engine = engine
	rt.closers = append(rt.closers, engine.Close)
	return rt, nil
}

func runMigrate(ctx context.Context, cfg *settings.Settings, logger *slog.Logger) error {
	switch cfg.Store {
	case settings.StorePostgres:
		if err := postgres.Migrate(ctx, cfg.PGDSN); err != nil {
			return err
		}
	case settings.StoreSQLite:
		// OpenSQLite migrates on open.
		s, err := gormstore.OpenSQLite(cfg.SQLitePath, gormstore.Options{})
		if err != nil {
			return err
		}
		if err := s.Close(); err != nil {
			return err
		}
	default:
		return errors.New("migrate: nothing to migrate for the memory store")
	}
	logger.Info("migrations applied", slog.String("store", cfg.Store))
	return nil
}
