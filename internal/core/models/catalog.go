package models

import (
	"fmt"
	"sort"
)

// Catalog indexes known component kinds by class name and identifier.
type Catalog struct {
	byName map[string]ComponentKind
	byID   map[ComponentID]ComponentKind
}

func NewCatalog() *Catalog {
	return &Catalog{
		byName: make(map[string]ComponentKind),
		byID:   make(map[ComponentID]ComponentKind),
	}
}

// Add records kind. Adding the same kind twice is a no-op; two different
// names hashing to one identifier is ErrIdentifierCollision.
func (c *Catalog) Add(kind ComponentKind) error {
	if existing, ok := c.byID[kind.Identifier()]; ok {
		if existing.Name() != kind.Name() {
			return fmt.Errorf("%w: %s and %s share %#x", ErrIdentifierCollision, existing.Name(), kind.Name(), uint64(kind.Identifier()))
		}
		return nil
	}
	if existing, ok := c.byName[kind.Name()]; ok && existing.Identifier() != kind.Identifier() {
		return fmt.Errorf("%w: name %s already bound to %#x", ErrIdentifierCollision, kind.Name(), uint64(existing.Identifier()))
	}
	c.byName[kind.Name()] = kind
	c.byID[kind.Identifier()] = kind
	return nil
}

func (c *Catalog) ByName(name string) (ComponentKind, bool) {
	k, ok := c.byName[name]
	return k, ok
}

func (c *Catalog) ByID(id ComponentID) (ComponentKind, bool) {
	k, ok := c.byID[id]
	return k, ok
}

func (c *Catalog) Len() int { return len(c.byID) }

// Names returns the registered class names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
