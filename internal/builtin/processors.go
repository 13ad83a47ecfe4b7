package builtin

import (
	"github.com/zeusync/engine/internal/core/ecs"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/processor"
)

// Update priorities; lower runs first.
const (
	MovementPriority = 50
	LifetimePriority = 90
	StatsPriority    = 100
)

// Processor class names.
const (
	MovementClass = "MovementProcessor"
	LifetimeClass = "LifetimeProcessor"
	StatsClass    = "StatsProcessor"
)

// MovementProcessor integrates Velocity into Transform on the worker pool.
type MovementProcessor struct {
	*processor.Base
	view *processor.Helper2[struct{}, Transform, Velocity]
}

func NewMovementProcessor(host processor.Host) *MovementProcessor {
	m := &MovementProcessor{
		Base: processor.NewBase(MovementClass, host),
		view: processor.NewHelper2[struct{}, Transform, Velocity](),
	}
	m.Track(m.view)
	m.OnUpdate(MovementPriority, m.update)
	return m
}

func (m *MovementProcessor) Len() int { return m.view.Len() }

func (m *MovementProcessor) update(f ecs.Frame) {
	dt := f.Delta.Seconds()
	err := m.view.ParallelList(m.Pool(), func(_ *ecs.Entity, _ *struct{}, t *Transform, v *Velocity) {
		t.X += v.X * dt
		t.Y += v.Y * dt
		t.Z += v.Z * dt
	})
	if err != nil {
		m.Log().Error("Movement update failed", log.Uint64("frame", f.Index), log.Error(err))
	}
}

// LifetimeProcessor counts down Lifetime components and kills expired
// entities after the countdown pass.
type LifetimeProcessor struct {
	*processor.Base
	view    *processor.Helper1[struct{}, Lifetime]
	expired []*ecs.Entity
	killed  uint64
}

func NewLifetimeProcessor(host processor.Host) *LifetimeProcessor {
	p := &LifetimeProcessor{
		Base: processor.NewBase(LifetimeClass, host),
		view: processor.NewHelper1[struct{}, Lifetime](),
	}
	p.Track(p.view)
	p.OnUpdate(LifetimePriority, p.update)
	return p
}

// Killed is the number of entities this processor has expired.
func (p *LifetimeProcessor) Killed() uint64 { return p.killed }

func (p *LifetimeProcessor) update(f ecs.Frame) {
	p.view.List(func(e *ecs.Entity, _ *struct{}, l *Lifetime) {
		l.Remaining -= f.Delta
		if l.Remaining <= 0 {
			p.expired = append(p.expired, e)
		}
	})
	// killing fires removal signals that mutate the view
	for _, e := range p.expired {
		if err := p.Population().KillEntity(e); err != nil {
			p.Log().Warn("Expire failed", log.String("entity", e.String()), log.Error(err))
			continue
		}
		p.killed++
	}
	clear(p.expired)
	p.expired = p.expired[:0]
}

// StatsProcessor tracks how many placed entities exist and logs a summary
// every Every frames.
type StatsProcessor struct {
	*processor.Base
	view   *processor.Helper1[struct{}, Transform]
	Every  uint64
	frames uint64
	peak   int
}

func NewStatsProcessor(host processor.Host) *StatsProcessor {
	s := &StatsProcessor{
		Base:  processor.NewBase(StatsClass, host),
		view:  processor.NewHelper1[struct{}, Transform](),
		Every: 600,
	}
	s.Track(s.view)
	s.OnUpdate(StatsPriority, s.update)
	return s
}

func (s *StatsProcessor) Frames() uint64 { return s.frames }
func (s *StatsProcessor) Peak() int      { return s.peak }
func (s *StatsProcessor) Placed() int    { return s.view.Len() }

func (s *StatsProcessor) update(f ecs.Frame) {
	s.frames++
	s.peak = max(s.peak, s.view.Len())
	if s.Every > 0 && s.frames%s.Every == 0 {
		s.Log().Info("Population stats",
			log.Uint64("frame", f.Index),
			log.Int("entities", s.Population().Len()),
			log.Int("placed", s.view.Len()),
			log.Int("peak_placed", s.peak),
		)
	}
}
