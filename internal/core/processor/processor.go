package processor

import (
	"github.com/zeusync/engine/internal/core/ecs"
	"github.com/zeusync/engine/internal/core/events/signal"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/pkg/concurrent"
)

// Host is what a processor is created with: the population it watches, the
// shared worker pool and a logger.
type Host interface {
	Population() *ecs.Population
	Pool() *concurrent.Pool
	Logger() log.Log
}

// Processor is a per-frame subsystem created by name through the class
// factory.
type Processor interface {
	Name() string
	Close() error
}

// Tracker is a view that follows entity membership. Helper and its typed
// variants implement it.
type Tracker interface {
	Matches(e *ecs.Entity) bool
	Join(e *ecs.Entity) bool
	Leave(e *ecs.Entity) bool
	Clear()
}

// Base carries the bookkeeping shared by processors: the host handles and
// every signal connection the processor holds, released together on Close.
type Base struct {
	name  string
	host  Host
	log   log.Log
	conns signal.Group
}

func NewBase(name string, host Host) *Base {
	return &Base{
		name: name,
		host: host,
		log:  host.Logger().With(log.String("processor", name)),
	}
}

func (b *Base) Name() string                { return b.name }
func (b *Base) Host() Host                  { return b.host }
func (b *Base) Population() *ecs.Population { return b.host.Population() }
func (b *Base) Pool() *concurrent.Pool      { return b.host.Pool() }
func (b *Base) Log() log.Log                { return b.log }

// Track keeps t in sync with the population: entities join when they gain
// the last required component and leave when they lose one or die. Existing
// entities are offered immediately.
func (b *Base) Track(t Tracker) {
	pop := b.host.Population()
	b.conns.Add(
		pop.OnEntityCreated(func(ev ecs.EntityEvent) { t.Join(ev.Entity) }),
		pop.OnComponentAdded(func(ev ecs.ComponentEvent) { t.Join(ev.Entity) }),
		pop.OnComponentRemoved(func(ev ecs.ComponentEvent) {
			if !t.Matches(ev.Entity) {
				t.Leave(ev.Entity)
			}
		}),
		pop.OnEntityDestroyed(func(ev ecs.EntityEvent) { t.Leave(ev.Entity) }),
		pop.OnCleared(t.Clear),
	)
	pop.Each(func(e *ecs.Entity) { t.Join(e) })
}

// OnUpdate registers fn in the population's frame table.
func (b *Base) OnUpdate(priority int, fn func(ecs.Frame)) {
	b.conns.Add(b.host.Population().OnUpdate(priority, fn))
}

// Close disconnects every slot this processor registered.
func (b *Base) Close() error {
	b.conns.DisconnectAll()
	b.log.Debug("Processor closed")
	return nil
}
