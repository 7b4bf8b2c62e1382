package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/browser"
	"github.com/xkilldash9x/demoqa-e2e/internal/config"
	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
	"github.com/xkilldash9x/demoqa-e2e/internal/scenario"
	"github.com/xkilldash9x/demoqa-e2e/internal/store"
)

// driverProvider starts whatever hands out browser sessions and returns a
// factory for them plus a shutdown function.
type driverProvider interface {
	Open(ctx context.Context, cfg config.Interface, logger *zap.Logger) (scenario.DriverFactory, func(context.Context) error, error)
}

// storeProvider connects to the results database.
type storeProvider interface {
	Open(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*store.Store, func(), error)
}

type browserProvider struct{}

func (browserProvider) Open(ctx context.Context, cfg config.Interface, logger *zap.Logger) (scenario.DriverFactory, func(context.Context) error, error) {
	mgr, err := browser.NewManager(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	factory := func(ctx context.Context) (engine.Driver, func(), error) {
		s, err := mgr.NewSession(ctx)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return factory, mgr.Shutdown, nil
}

type pgStoreProvider struct{}

func (pgStoreProvider) Open(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*store.Store, func(), error) {
	url := cfg.Database().URL
	if url == "" {
		return nil, nil, fmt.Errorf("database.url is not set")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}
