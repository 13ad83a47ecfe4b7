//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/engine/internal/config"
	"github.com/zeusync/engine/internal/engine"
)

func InitializeEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
