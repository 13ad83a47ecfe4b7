package ecs

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/engine/internal/core/factory"
	"github.com/zeusync/engine/internal/core/models"
	"github.com/zeusync/engine/internal/core/observability/log"
)

type position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type velocity struct {
	DX float64 `yaml:"dx"`
	DY float64 `yaml:"dy"`
}

type marker struct{}

func newTestPopulation(t *testing.T, store Store) *Population {
	t.Helper()
	p := NewPopulation(WithStore(store))
	require.NoError(t, p.RegisterKind(models.NewNamedMixin[position]("Position")))
	require.NoError(t, p.RegisterKind(models.NewNamedMixin[velocity]("Velocity")))
	return p
}

const worldYAML = `
classes:
  mover:
    Position: {x: 1, y: 1}
    Velocity: {dx: 1}
entities:
  - name: player
    class: mover
    components:
      Position: {x: 5}
  - name: rock
    components:
      Position: {x: 2, y: 3}
  - components:
      Velocity: {dy: 2}
`

func TestCreateEntityFiresCreated(t *testing.T) {
	p := newTestPopulation(t, nil)
	var created []string
	p.OnEntityCreated(func(ev EntityEvent) { created = append(created, ev.Name) })

	e, err := p.CreateEntity("a", &position{X: 1})
	require.NoError(t, err)
	_, err = p.CreateEntity("", &velocity{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", ""}, created)
	assert.True(t, e.Alive())
	assert.True(t, Has[position](e))
	assert.False(t, Has2[position, velocity](e))
	assert.Equal(t, 1.0, Get[position](e).X)

	found, ok := p.Entity("a")
	require.True(t, ok)
	assert.Same(t, e, found)
	assert.Equal(t, 2, p.Len())
}

func TestCreateEntityRejectsDuplicates(t *testing.T) {
	p := newTestPopulation(t, nil)
	_, err := p.CreateEntity("a")
	require.NoError(t, err)

	_, err = p.CreateEntity("a")
	assert.ErrorIs(t, err, ErrDuplicateEntity)

	_, err = p.CreateEntity("b", &position{}, &position{})
	assert.ErrorIs(t, err, ErrComponentExists)
	assert.Equal(t, 1, p.Len())
}

func TestRejectsNonPointerComponents(t *testing.T) {
	p := newTestPopulation(t, nil)
	var added int
	p.OnComponentAdded(func(ComponentEvent) { added++ })

	_, err := p.CreateEntity("a", position{X: 1})
	assert.ErrorIs(t, err, ErrInvalidComponent)
	_, err = p.CreateEntity("b", (*position)(nil))
	assert.ErrorIs(t, err, ErrInvalidComponent)
	_, err = p.CreateEntity("c", nil)
	assert.ErrorIs(t, err, ErrInvalidComponent)
	assert.Zero(t, p.Len())

	e, err := p.CreateEntity("a")
	require.NoError(t, err)
	assert.ErrorIs(t, p.AddComponent(e, velocity{DX: 1}), ErrInvalidComponent)
	assert.False(t, Has[velocity](e))
	assert.Zero(t, added)

	require.NoError(t, p.AddComponent(e, &velocity{DX: 1}))
	assert.True(t, Has[velocity](e))
	assert.Equal(t, 1.0, Get[velocity](e).DX)
}

func TestKillByName(t *testing.T) {
	p := newTestPopulation(t, nil)
	_, err := p.CreateEntity("target", &position{})
	require.NoError(t, err)

	require.NoError(t, p.KillByName("target"))
	assert.Zero(t, p.Len())
	assert.ErrorIs(t, p.KillByName("target"), ErrEntityNotFound)
}

func TestKillEntitySignalsBeforeRelease(t *testing.T) {
	p := newTestPopulation(t, nil)
	e, err := p.CreateEntity("victim", &position{X: 7})
	require.NoError(t, err)

	var seenX float64
	var seenAlive bool
	var calls int
	p.OnEntityDestroyed(func(ev EntityEvent) {
		calls++
		seenAlive = ev.Entity.Alive()
		seenX = Get[position](ev.Entity).X
		_, stillIndexed := p.Entity("victim")
		assert.True(t, stillIndexed)
	})

	require.NoError(t, p.KillEntity(e))
	assert.Equal(t, 1, calls)
	assert.True(t, seenAlive)
	assert.Equal(t, 7.0, seenX)
	assert.False(t, e.Alive())
	assert.Equal(t, 0, e.Len())

	assert.ErrorIs(t, p.KillEntity(e), ErrNotAlive)
	assert.Equal(t, 1, calls)
	_, ok := p.Entity("victim")
	assert.False(t, ok)
}

func TestComponentSignalsFireAfterMutation(t *testing.T) {
	p := newTestPopulation(t, nil)
	e, err := p.CreateEntity("e", &position{})
	require.NoError(t, err)

	var added, removed []models.ComponentID
	p.OnComponentAdded(func(ev ComponentEvent) {
		assert.True(t, ev.Entity.Has(ev.ID))
		added = append(added, ev.ID)
	})
	p.OnComponentRemoved(func(ev ComponentEvent) {
		assert.False(t, ev.Entity.Has(ev.ID))
		assert.NotNil(t, ev.Component)
		removed = append(removed, ev.ID)
	})

	require.NoError(t, p.AddComponent(e, &velocity{DX: 1}))
	assert.ErrorIs(t, p.AddComponent(e, &velocity{}), ErrComponentExists)
	require.NoError(t, Remove[position](p, e))
	assert.ErrorIs(t, Remove[position](p, e), ErrComponentNotFound)

	assert.Equal(t, []models.ComponentID{models.IdentifierOf[velocity]()}, added)
	assert.Equal(t, []models.ComponentID{models.IdentifierOf[position]()}, removed)

	require.NoError(t, p.KillEntity(e))
	assert.ErrorIs(t, p.AddComponent(e, &marker{}), ErrNotAlive)
}

func TestAddComponentByName(t *testing.T) {
	p := newTestPopulation(t, nil)
	e, err := p.CreateEntity("e")
	require.NoError(t, err)

	c, err := p.AddComponentByName(e, "Velocity", models.Data{"dx": 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, c.(*velocity).DX)

	_, err = p.AddComponentByName(e, "Nope", nil)
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

func TestUpdateRunsSlotsInPriorityOrder(t *testing.T) {
	p := newTestPopulation(t, nil)
	var order []int
	for _, prio := range []int{10, 90, 50} {
		p.OnUpdate(prio, func(f Frame) {
			assert.Equal(t, 16*time.Millisecond, f.Delta)
			order = append(order, prio)
		})
	}

	p.Update(16 * time.Millisecond)
	assert.Equal(t, []int{10, 50, 90}, order)
	assert.Equal(t, uint64(1), p.Frame())
}

func TestLoadBuildsEntitiesFromClasses(t *testing.T) {
	store := NewMemStore()
	store.Put("world.yaml", worldYAML)
	p := newTestPopulation(t, store)

	var events []string
	p.OnLoadBegin(func(ev LoadEvent) { events = append(events, "begin:"+ev.Name) })
	p.OnEntityCreated(func(ev EntityEvent) { events = append(events, "created:"+ev.Name) })
	p.OnLoadSucceeded(func(ev LoadEvent) { events = append(events, "ok:"+ev.Name) })

	require.NoError(t, p.Load("world.yaml"))
	assert.Equal(t, StateReady, p.State())
	assert.Equal(t, []string{"begin:world.yaml", "created:player", "created:rock", "created:", "ok:world.yaml"}, events)

	player, ok := p.Entity("player")
	require.True(t, ok)
	assert.Equal(t, "mover", player.Class())
	assert.Equal(t, position{X: 5, Y: 1}, *Get[position](player))
	assert.Equal(t, velocity{DX: 1}, *Get[velocity](player))

	_, ok = p.Class("mover")
	assert.True(t, ok)
	assert.Equal(t, 3, p.Len())
}

func TestFailedLoadKeepsPreviousPopulation(t *testing.T) {
	store := NewMemStore()
	store.Put("world.yaml", worldYAML)
	store.Put("broken.yaml", "entities:\n  - name: ok\n    components:\n      Position: {x: 1}\n  - name: bad\n    components:\n      Ghost: {}\n")
	store.Put("garbage.yaml", "entities: [ {name: \n")
	p := newTestPopulation(t, store)
	require.NoError(t, p.Load("world.yaml"))
	before := p.Entities()

	var created, failed int
	var failure error
	p.OnEntityCreated(func(EntityEvent) { created++ })
	p.OnLoadFailed(func(ev LoadEvent) {
		failed++
		failure = ev.Err
	})
	cleared := 0
	p.OnCleared(func() { cleared++ })

	err := p.Load("broken.yaml")
	assert.ErrorIs(t, err, ErrUnknownComponent)
	assert.ErrorIs(t, failure, ErrUnknownComponent)

	err = p.Load("garbage.yaml")
	assert.ErrorIs(t, err, ErrMalformedDefinition)

	assert.Equal(t, 2, failed)
	assert.Equal(t, 0, created)
	assert.Equal(t, 0, cleared)
	assert.Equal(t, StateFailed, p.State())
	assert.Equal(t, before, p.Entities())
	player, ok := p.Entity("player")
	require.True(t, ok)
	assert.True(t, player.Alive())
	_, ok = p.Entity("ok")
	assert.False(t, ok)
}

func TestLoadRejectsDuplicateNamesAndUnknownClasses(t *testing.T) {
	store := NewMemStore()
	store.Put("dups.yaml", "entities:\n  - name: a\n  - name: a\n")
	store.Put("class.yaml", "entities:\n  - class: nope\n")
	p := newTestPopulation(t, store)

	assert.ErrorIs(t, p.Load("dups.yaml"), ErrDuplicateEntity)
	assert.ErrorIs(t, p.Load("class.yaml"), ErrUnknownClass)
	assert.Error(t, p.Load("missing.yaml"))
	assert.ErrorIs(t, p.Load("world.json"), ErrUnsupportedFormat)
	assert.Equal(t, 0, p.Len())
}

func TestSuccessfulLoadReplacesPreviousSet(t *testing.T) {
	store := NewMemStore()
	store.Put("world.yaml", worldYAML)
	store.Put("small.toml", "[[entities]]\nname = \"solo\"\n[entities.components.Position]\nx = 4.0\n")
	p := newTestPopulation(t, store)
	require.NoError(t, p.Load("world.yaml"))
	old, _ := p.Entity("player")

	cleared := 0
	p.OnCleared(func() {
		cleared++
		assert.True(t, old.Alive())
	})
	require.NoError(t, p.Load("small.toml"))

	assert.Equal(t, 1, cleared)
	assert.False(t, old.Alive())
	assert.Equal(t, 1, p.Len())
	solo, ok := p.Entity("solo")
	require.True(t, ok)
	assert.Equal(t, 4.0, Get[position](solo).X)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			store := NewMemStore()
			store.Put("world.yaml", worldYAML)
			p := newTestPopulation(t, store)
			require.NoError(t, p.Load("world.yaml"))
			require.NoError(t, p.Save(name))

			raw, ok := store.Raw(name)
			require.True(t, ok)
			assert.True(t, strings.Contains(raw, "player"))

			q := newTestPopulation(t, store)
			require.NoError(t, q.Load(name))
			assert.Equal(t, p.Len(), q.Len())
			player, ok := q.Entity("player")
			require.True(t, ok)
			assert.Equal(t, position{X: 5, Y: 1}, *Get[position](player))
		})
	}
}

func TestSaveWithoutStore(t *testing.T) {
	p := NewPopulation()
	assert.ErrorIs(t, p.Save("x.yaml"), ErrNoStore)
	assert.ErrorIs(t, p.Load("x.yaml"), ErrNoStore)
}

func TestCreateFromClass(t *testing.T) {
	p := newTestPopulation(t, nil)
	p.DefineClass("mover", ComponentSet{"Position": {"x": 1}, "Velocity": {"dx": 2}})

	e, err := p.CreateFromClass("mover", "m1", ComponentSet{"Position": {"y": 9}})
	require.NoError(t, err)
	assert.Equal(t, position{X: 1, Y: 9}, *Get[position](e))

	_, err = p.CreateFromClass("nope", "m2", nil)
	assert.ErrorIs(t, err, ErrUnknownClass)
	_, err = p.CreateFromClass("mover", "m1", nil)
	assert.ErrorIs(t, err, ErrDuplicateEntity)
}

func TestClearFiresOnceWithoutDestroySignals(t *testing.T) {
	p := newTestPopulation(t, nil)
	for i := 0; i < 3; i++ {
		_, err := p.CreateEntity("", &position{})
		require.NoError(t, err)
	}
	destroyed, cleared := 0, 0
	p.OnEntityDestroyed(func(EntityEvent) { destroyed++ })
	p.OnCleared(func() { cleared++ })

	p.Clear()
	assert.Equal(t, 0, destroyed)
	assert.Equal(t, 1, cleared)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, StateIdle, p.State())
}

func TestFactoryKinds(t *testing.T) {
	f := factory.New(factory.Classes{
		"Position": factory.NewCreator(func(any) (models.ComponentKind, error) {
			return models.NewNamedMixin[position]("Position"), nil
		}),
		"NotAKind": factory.NewCreator(func(any) (string, error) { return "x", nil }),
	})
	p := NewPopulation(WithKinds(FactoryKinds(f)))

	kind, err := p.Kind("Position")
	require.NoError(t, err)
	again, err := p.Kind("Position")
	require.NoError(t, err)
	assert.Same(t, kind, again)

	_, err = p.Kind("NotAKind")
	assert.True(t, errors.Is(err, models.ErrNotComponentKind))
	_, err = p.Kind("Missing")
	assert.ErrorIs(t, err, factory.ErrClassNotFound)
}

func TestLoadAndSaveAreLogged(t *testing.T) {
	var logs *observer.ObservedLogs
	logger := log.NewWithCore(log.LevelDebug, func(enab zapcore.LevelEnabler) zapcore.Core {
		var core zapcore.Core
		core, logs = observer.New(enab)
		return core
	})
	store := NewMemStore()
	store.Put("world.yaml", worldYAML)
	p := NewPopulation(WithStore(store), WithLogger(logger))
	require.NoError(t, p.RegisterKind(models.NewNamedMixin[position]("Position")))
	require.NoError(t, p.RegisterKind(models.NewNamedMixin[velocity]("Velocity")))

	require.NoError(t, p.Load("world"))
	require.NoError(t, p.Save("copy"))

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
		assert.Equal(t, "population", entry.ContextMap()["component"])
	}
	assert.Equal(t, []string{"Loading population", "Population loaded", "Population saved"}, messages)
}
