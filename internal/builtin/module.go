package builtin

import (
	"fmt"

	"github.com/zeusync/engine/internal/core/factory"
	"github.com/zeusync/engine/internal/core/models"
	"github.com/zeusync/engine/internal/core/plugin"
	"github.com/zeusync/engine/internal/core/processor"
)

// ModuleName is the name the compiled-in module registers under.
const ModuleName = "builtin"

// Register is the module entry point. It has the same shape a shared-object
// module exports.
func Register(addClass plugin.AddClassFunc, addType plugin.AddTypeFunc) error {
	for _, kind := range Kinds() {
		if err := addClass(kind.Name(), kindCreator(kind)); err != nil {
			return err
		}
		if err := addType(plugin.InterfaceComponent, kind.Name()); err != nil {
			return err
		}
	}

	processors := []struct {
		name string
		ctor func(processor.Host) processor.Processor
	}{
		{MovementClass, func(h processor.Host) processor.Processor { return NewMovementProcessor(h) }},
		{LifetimeClass, func(h processor.Host) processor.Processor { return NewLifetimeProcessor(h) }},
		{StatsClass, func(h processor.Host) processor.Processor { return NewStatsProcessor(h) }},
	}
	for _, p := range processors {
		if err := addClass(p.name, processorCreator(p.ctor)); err != nil {
			return err
		}
		if err := addType(plugin.InterfaceProcessor, p.name); err != nil {
			return err
		}
	}
	return nil
}

func kindCreator(kind models.ComponentKind) factory.Creator {
	return factory.NewCreator(func(any) (models.ComponentKind, error) {
		return kind, nil
	})
}

func processorCreator(ctor func(processor.Host) processor.Processor) factory.Creator {
	return factory.NewCreator(func(ctx any) (processor.Processor, error) {
		host, ok := ctx.(processor.Host)
		if !ok {
			return nil, fmt.Errorf("%w: processor context is %T", factory.ErrInvalidArgument, ctx)
		}
		return ctor(host), nil
	})
}
