package builtin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/engine/internal/core/ecs"
	"github.com/zeusync/engine/internal/core/factory"
	"github.com/zeusync/engine/internal/core/models"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/plugin"
	"github.com/zeusync/engine/internal/core/processor"
	"github.com/zeusync/engine/pkg/concurrent"
)

type testHost struct {
	pop  *ecs.Population
	pool *concurrent.Pool
}

func (h *testHost) Population() *ecs.Population { return h.pop }
func (h *testHost) Pool() *concurrent.Pool      { return h.pool }
func (h *testHost) Logger() log.Log             { return log.NewNop() }

func newHost(t *testing.T) *testHost {
	t.Helper()
	pool := concurrent.NewPool(2)
	t.Cleanup(pool.Shutdown)
	return &testHost{pop: ecs.NewPopulation(), pool: pool}
}

func TestRegisterThroughRegistry(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.AddStatic(ModuleName, Register))

	var components, processors []string
	r.ListImplementationsOf(plugin.InterfaceComponent, func(c string) { components = append(components, c) })
	r.ListImplementationsOf(plugin.InterfaceProcessor, func(c string) { processors = append(processors, c) })
	assert.Equal(t, []string{"Transform", "Velocity", "Lifetime", "Tag"}, components)
	assert.Equal(t, []string{MovementClass, LifetimeClass, StatsClass}, processors)

	f := factory.New(r)
	kind, err := factory.Create[models.ComponentKind](f, "Transform", nil)
	require.NoError(t, err)
	assert.Equal(t, models.IdentifierOf[Transform](), kind.Identifier())

	_, err = factory.Create[processor.Processor](f, MovementClass, "not a host")
	assert.ErrorIs(t, err, factory.ErrInvalidArgument)

	p, err := factory.Create[processor.Processor](f, StatsClass, processor.Host(newHost(t)))
	require.NoError(t, err)
	assert.Equal(t, StatsClass, p.Name())
	require.NoError(t, p.Close())

	assert.ErrorIs(t, r.AddStatic("again", Register), plugin.ErrDuplicateClass)
}

func TestLifetimeLoadForms(t *testing.T) {
	tests := []struct {
		name string
		in   models.Data
		want time.Duration
	}{
		{"duration string", models.Data{"ttl": "1.5s"}, 1500 * time.Millisecond},
		{"int seconds", models.Data{"ttl": 2}, 2 * time.Second},
		{"float seconds", models.Data{"ttl": 0.25}, 250 * time.Millisecond},
		{"absent", models.Data{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l Lifetime
			require.NoError(t, l.Load(tt.in))
			assert.Equal(t, tt.want, l.Remaining)
		})
	}

	var l Lifetime
	assert.Error(t, l.Load(models.Data{"ttl": "soon"}))
	assert.Error(t, l.Load(models.Data{"ttl": true}))

	out := models.Data{}
	require.NoError(t, (&Lifetime{Remaining: 3 * time.Second}).Save(out))
	assert.Equal(t, "3s", out["ttl"])
}

func TestMovementIntegratesVelocity(t *testing.T) {
	host := newHost(t)
	m := NewMovementProcessor(host)
	defer m.Close()

	ship, err := host.pop.CreateEntity("ship", &Transform{}, &Velocity{X: 2, Y: -1})
	require.NoError(t, err)
	_, err = host.pop.CreateEntity("rock", &Transform{X: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	host.pop.Update(500 * time.Millisecond)
	host.pop.Update(500 * time.Millisecond)

	tr := ecs.Get[Transform](ship)
	assert.InDelta(t, 2.0, tr.X, 1e-9)
	assert.InDelta(t, -1.0, tr.Y, 1e-9)
	rock, _ := host.pop.Entity("rock")
	assert.Equal(t, 7.0, ecs.Get[Transform](rock).X)
}

func TestLifetimeKillsAfterIteration(t *testing.T) {
	host := newHost(t)
	p := NewLifetimeProcessor(host)
	defer p.Close()

	for _, ttl := range []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, time.Second} {
		_, err := host.pop.CreateEntity("", &Lifetime{Remaining: ttl})
		require.NoError(t, err)
	}

	host.pop.Update(60 * time.Millisecond)
	assert.Equal(t, 3, host.pop.Len())

	host.pop.Update(60 * time.Millisecond)
	assert.Equal(t, 1, host.pop.Len())
	assert.EqualValues(t, 2, p.Killed())
}

func TestStatsRunsLast(t *testing.T) {
	host := newHost(t)
	s := NewStatsProcessor(host)
	l := NewLifetimeProcessor(host)
	defer s.Close()
	defer l.Close()

	_, err := host.pop.CreateEntity("short", &Transform{}, &Lifetime{Remaining: time.Millisecond})
	require.NoError(t, err)
	_, err = host.pop.CreateEntity("long", &Transform{})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Placed())

	host.pop.Update(time.Second)
	assert.Equal(t, 1, s.Placed())
	assert.Equal(t, 1, s.Peak(), "stats must observe the frame after expiry")
	assert.EqualValues(t, 1, s.Frames())
	assert.Equal(t, []int{LifetimePriority, StatsPriority}, host.pop.UpdatePriorities())
}
