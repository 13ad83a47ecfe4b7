package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/engine/internal/config"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/plugin"
	"github.com/zeusync/engine/internal/engine"
	"github.com/zeusync/engine/pkg/concurrent"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideRegistry,
	ProvidePool,
	engine.NewFactory,
	engine.NewPopulation,
	engine.New,
)

func ProvideLogger(cfg *config.Config) (*log.Logger, func()) {
	logger := log.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format)
	return logger, func() { _ = logger.Sync() }
}

func ProvideRegistry(ctx context.Context, cfg *config.Config, logger log.Log) (*plugin.Registry, func(), error) {
	registry, err := engine.NewRegistry(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return registry, func() { _ = registry.Close() }, nil
}

func ProvidePool(cfg *config.Config, logger log.Log) (*concurrent.Pool, func()) {
	pool := engine.NewPool(cfg, logger)
	return pool, pool.Shutdown
}
