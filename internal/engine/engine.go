package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeusync/engine/internal/builtin"
	"github.com/zeusync/engine/internal/config"
	"github.com/zeusync/engine/internal/core/ecs"
	"github.com/zeusync/engine/internal/core/factory"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/plugin"
	"github.com/zeusync/engine/internal/core/processor"
	"github.com/zeusync/engine/pkg/concurrent"
)

// Engine wires the registry, factory, worker pool, population and processors
// together and drives the frame loop. It is the processor Host.
type Engine struct {
	cfg        *config.Config
	log        log.Log
	registry   *plugin.Registry
	factory    *factory.Factory
	pool       *concurrent.Pool
	population *ecs.Population
	processors []processor.Processor
	closed     bool
}

var _ processor.Host = (*Engine)(nil)

// NewRegistry builds the plugin registry: the builtin module when enabled,
// then every module discovered on the configured search paths.
func NewRegistry(ctx context.Context, cfg *config.Config, logger log.Log) (*plugin.Registry, error) {
	registry := plugin.NewRegistry(plugin.WithLogger(logger))
	if cfg.Plugins.Builtin {
		if err := registry.AddStatic(builtin.ModuleName, builtin.Register); err != nil {
			_ = registry.Close()
			return nil, err
		}
	}
	if len(cfg.Plugins.Paths) > 0 {
		report, err := registry.Discover(ctx, cfg.Plugins.Paths, cfg.Plugins.Recursive)
		if err != nil {
			_ = registry.Close()
			return nil, fmt.Errorf("discover plugins: %w", err)
		}
		for _, skip := range report.Skipped {
			logger.Debug("Plugin skipped", log.String("path", skip.Path), log.Error(skip.Err))
		}
	}
	return registry, nil
}

func NewFactory(registry *plugin.Registry) *factory.Factory {
	return factory.New(registry)
}

// NewPool starts the worker pool. Panics in detached tasks are logged.
func NewPool(cfg *config.Config, logger log.Log) *concurrent.Pool {
	pool := concurrent.NewPool(cfg.Workers)
	pool.OnPanic = func(recovered any, stack []byte) {
		logger.Error("Detached task panicked",
			log.Any("panic", recovered),
			log.String("stack", string(stack)),
		)
	}
	return pool
}

func NewPopulation(cfg *config.Config, logger log.Log, f *factory.Factory) *ecs.Population {
	return ecs.NewPopulation(
		ecs.WithLogger(logger),
		ecs.WithKinds(ecs.FactoryKinds(f)),
		ecs.WithStore(ecs.DirStore{Dir: cfg.World.Dir}),
	)
}

// New creates the configured processors and loads the initial world. The
// engine owns every collaborator once New succeeds; on error only the
// processors it created are released.
func New(cfg *config.Config, logger log.Log, registry *plugin.Registry, f *factory.Factory, pool *concurrent.Pool, population *ecs.Population) (*Engine, error) {
	e := &Engine{
		cfg:        cfg,
		log:        logger.With(log.String("component", "engine")),
		registry:   registry,
		factory:    f,
		pool:       pool,
		population: population,
	}

	names := cfg.Processors
	if len(names) == 0 {
		registry.ListImplementationsOf(plugin.InterfaceProcessor, func(class string) {
			names = append(names, class)
		})
	}
	for _, name := range names {
		p, err := factory.Create[processor.Processor](f, name, processor.Host(e))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("create processor %s: %w", name, err), e.closeProcessors())
		}
		e.processors = append(e.processors, p)
		e.log.Debug("Processor created", log.String("processor", name))
	}

	if cfg.World.Initial != "" {
		if err := population.Load(cfg.World.Initial); err != nil {
			return nil, errors.Join(err, e.closeProcessors())
		}
	}

	e.log.Info("Engine ready",
		log.Int("processors", len(e.processors)),
		log.Int("workers", pool.Workers()),
		log.Int("entities", population.Len()),
	)
	return e, nil
}

func (e *Engine) Population() *ecs.Population       { return e.population }
func (e *Engine) Pool() *concurrent.Pool            { return e.pool }
func (e *Engine) Logger() log.Log                   { return e.log }
func (e *Engine) Registry() *plugin.Registry        { return e.registry }
func (e *Engine) Factory() *factory.Factory         { return e.factory }
func (e *Engine) Processors() []processor.Processor { return e.processors }

// Step runs one frame.
func (e *Engine) Step(delta time.Duration) {
	e.population.Update(delta)
}

// Run ticks the population at the configured interval until ctx is done or
// MaxFrames frames have run.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.World.FrameInterval)
	defer ticker.Stop()

	e.log.Info("Frame loop started", log.Duration("interval", e.cfg.World.FrameInterval))
	last := time.Now()
	var frames uint64
	for {
		select {
		case <-ctx.Done():
			e.log.Info("Frame loop stopped", log.Uint64("frames", frames))
			return nil
		case now := <-ticker.C:
			e.Step(now.Sub(last))
			last = now
			frames++
			if limit := e.cfg.World.MaxFrames; limit > 0 && frames >= limit {
				e.log.Info("Frame limit reached", log.Uint64("frames", frames))
				return nil
			}
		}
	}
}

// Close saves the world if configured, then releases processors, entities,
// the worker pool and finally the plugin registry, in that order.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if e.cfg.World.SaveAs != "" {
		if err := e.population.Save(e.cfg.World.SaveAs); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.closeProcessors(); err != nil {
		errs = append(errs, err)
	}
	e.population.Clear()
	e.pool.Shutdown()
	if err := e.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	e.log.Info("Engine stopped")
	return errors.Join(errs...)
}

func (e *Engine) closeProcessors() error {
	var errs []error
	for i := len(e.processors) - 1; i >= 0; i-- {
		if err := e.processors[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close processor %s: %w", e.processors[i].Name(), err))
		}
	}
	e.processors = nil
	return errors.Join(errs...)
}
