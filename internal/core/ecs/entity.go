package ecs

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/zeusync/engine/internal/core/models"
)

// Entity is a bag of component records. It has no behavior; every mutation
// goes through the owning Population so the matching signal fires.
type Entity struct {
	id         uuid.UUID
	seq        uint64
	name       string
	class      string
	alive      bool
	components map[models.ComponentID]models.Component
}

func newEntity(name, class string) *Entity {
	return &Entity{
		id:         uuid.New(),
		name:       name,
		class:      class,
		components: make(map[models.ComponentID]models.Component),
	}
}

func (e *Entity) ID() uuid.UUID { return e.id }

// Name is empty for anonymous entities.
func (e *Entity) Name() string { return e.name }

// Class is the named class the entity was instantiated from, if any.
func (e *Entity) Class() string { return e.class }

// Alive reports whether the entity is still registered with its population.
func (e *Entity) Alive() bool { return e.alive }

func (e *Entity) Len() int { return len(e.components) }

func (e *Entity) Has(id models.ComponentID) bool {
	_, ok := e.components[id]
	return ok
}

// HasComponents reports whether every listed component is attached.
func (e *Entity) HasComponents(ids ...models.ComponentID) bool {
	for _, id := range ids {
		if _, ok := e.components[id]; !ok {
			return false
		}
	}
	return true
}

func (e *Entity) Component(id models.ComponentID) (models.Component, bool) {
	c, ok := e.components[id]
	return c, ok
}

// ComponentIDs returns the attached identifiers in ascending order.
func (e *Entity) ComponentIDs() []models.ComponentID {
	ids := make([]models.ComponentID, 0, len(e.components))
	for id := range e.components {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *Entity) String() string {
	if e.name != "" {
		return e.name
	}
	return e.id.String()
}

// Has reports whether component type A is attached to e.
func Has[A any](e *Entity) bool {
	return e.Has(models.IdentifierOf[A]())
}

func Has2[A, B any](e *Entity) bool {
	return e.HasComponents(models.IdentifierOf[A](), models.IdentifierOf[B]())
}

func Has3[A, B, C any](e *Entity) bool {
	return e.HasComponents(models.IdentifierOf[A](), models.IdentifierOf[B](), models.IdentifierOf[C]())
}

// Lookup returns the attached T, if any.
func Lookup[T any](e *Entity) (*T, bool) {
	c, ok := e.components[models.IdentifierOf[T]()]
	if !ok {
		return nil, false
	}
	typed, ok := c.(*T)
	return typed, ok
}

// Get returns the attached T. Callers must have checked presence; asking
// for an absent component panics.
func Get[T any](e *Entity) *T {
	typed, ok := Lookup[T](e)
	if !ok {
		var zero T
		panic(fmt.Sprintf("ecs: entity %s has no %T component", e, zero))
	}
	return typed
}
