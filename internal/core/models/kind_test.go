package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type health struct {
	Current int
	Max     int
}

func (h *health) Save(out Data) error {
	out["hp"] = h.Current
	out["max"] = h.Max
	return nil
}

func (h *health) Load(in Data) error {
	hp, ok := in["hp"].(int)
	if !ok {
		return errors.New("hp must be an int")
	}
	h.Current = hp
	h.Max, _ = in["max"].(int)
	return nil
}

func TestIdentifiersAreStableAndDistinct(t *testing.T) {
	assert.Equal(t, IdentifierOf[position](), IdentifierOf[position]())
	assert.NotEqual(t, IdentifierOf[position](), IdentifierOf[health]())
	assert.Equal(t, IdentifierOf[position](), IdentifierFor(&position{}))
	assert.Equal(t, IdentifierOf[position](), IdentifierFor(position{}))
}

func TestMixinCreatesZeroValue(t *testing.T) {
	kind := NewMixin[position]()
	assert.Equal(t, "position", kind.Name())

	c := kind.Create()
	p, ok := c.(*position)
	require.True(t, ok)
	assert.Equal(t, position{}, *p)
	assert.NotSame(t, c, kind.Create())
}

func TestMixinDefaultLoadSaveUsesFieldTags(t *testing.T) {
	kind := NewMixin[position]()
	c := kind.Create()

	require.NoError(t, kind.Load(c, Data{"x": 1.5, "y": -2}))
	assert.Equal(t, position{X: 1.5, Y: -2}, *c.(*position))

	out := Data{}
	require.NoError(t, kind.Save(c, out))
	assert.Equal(t, 1.5, out["x"])
	assert.EqualValues(t, -2, out["y"])
}

func TestMixinDelegatesToHooks(t *testing.T) {
	kind := NewNamedMixin[health]("Health")
	c := kind.Create()

	require.NoError(t, kind.Load(c, Data{"hp": 10, "max": 20}))
	assert.Equal(t, health{Current: 10, Max: 20}, *c.(*health))

	out := Data{}
	require.NoError(t, kind.Save(c, out))
	assert.Equal(t, Data{"hp": 10, "max": 20}, out)

	assert.Error(t, kind.Load(c, Data{"hp": "ten"}))
}

func TestMixinRejectsForeignComponent(t *testing.T) {
	kind := NewMixin[position]()
	assert.ErrorIs(t, kind.Load(&health{}, Data{}), ErrKindMismatch)
	assert.ErrorIs(t, kind.Save(&health{}, Data{}), ErrKindMismatch)
}

func TestScriptKindCopiesDefaults(t *testing.T) {
	defaults := map[string]any{"hp": 100, "tags": []any{"a"}}
	kind := NewScriptKind("Health", defaults)
	defaults["hp"] = 1

	a := kind.Create().(*ScriptComponent)
	b := kind.Create().(*ScriptComponent)
	a.Fields["hp"] = 5

	assert.Equal(t, 100, b.Fields["hp"])
	assert.Equal(t, kind.Identifier(), IdentifierFor(a))
	assert.Equal(t, ScriptIdentifier("Health"), kind.Identifier())
	assert.Equal(t, "Health", a.KindName())

	require.NoError(t, kind.Load(a, Data{"hp": 42}))
	out := Data{}
	require.NoError(t, kind.Save(a, out))
	assert.Equal(t, 42, out["hp"])
	assert.Equal(t, []any{"a"}, out["tags"])

	other := NewScriptKind("Mana", nil)
	assert.ErrorIs(t, other.Load(a, Data{}), ErrKindMismatch)
}

func TestCatalogDetectsCollisions(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(NewMixin[position]()))
	require.NoError(t, c.Add(NewMixin[position]()))
	assert.ErrorIs(t, c.Add(NewNamedMixin[position]("Pos")), ErrIdentifierCollision)
	assert.ErrorIs(t, c.Add(NewScriptKind("position", nil)), ErrIdentifierCollision)

	require.NoError(t, c.Add(NewNamedMixin[health]("Health")))
	kind, ok := c.ByID(IdentifierOf[health]())
	require.True(t, ok)
	assert.Equal(t, "Health", kind.Name())
	assert.Equal(t, []string{"Health", "position"}, c.Names())
	assert.Equal(t, 2, c.Len())
}
