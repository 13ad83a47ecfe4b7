package ecs

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/zeusync/engine/internal/core/events/signal"
	"github.com/zeusync/engine/internal/core/factory"
	"github.com/zeusync/engine/internal/core/models"
	"github.com/zeusync/engine/internal/core/observability/log"
)

// State is the coarse load state of a population.
type State uint8

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Frame is the payload of the per-frame update slots.
type Frame struct {
	Index uint64
	Delta time.Duration
}

type LoadEvent struct {
	Name string
	Err  error
}

type EntityEvent struct {
	Entity *Entity
	Name   string
}

type ComponentEvent struct {
	Entity    *Entity
	ID        models.ComponentID
	Component models.Component
}

// KindSource resolves component class names that are not yet cataloged.
type KindSource interface {
	ComponentKind(name string) (models.ComponentKind, error)
}

type factoryKinds struct {
	f *factory.Factory
}

// FactoryKinds resolves component kinds by creating the named class through
// the class factory.
func FactoryKinds(f *factory.Factory) KindSource {
	return factoryKinds{f: f}
}

func (k factoryKinds) ComponentKind(name string) (models.ComponentKind, error) {
	kind, err := factory.Create[models.ComponentKind](k.f, name, nil)
	if errors.Is(err, factory.ErrUnexpectedType) {
		return nil, fmt.Errorf("%w: %v", models.ErrNotComponentKind, err)
	}
	return kind, err
}

type Option func(*Population)

func WithLogger(l log.Log) Option {
	return func(p *Population) { p.log = l }
}

func WithKinds(source KindSource) Option {
	return func(p *Population) { p.kinds = source }
}

func WithStore(store Store) Option {
	return func(p *Population) { p.store = store }
}

// Population owns the live entity set and fires the lifecycle signals every
// processor keeps its view in sync with. It is not safe for concurrent use:
// all mutation happens on the simulation goroutine.
type Population struct {
	log     log.Log
	kinds   KindSource
	store   Store
	catalog *models.Catalog

	entities map[*Entity]struct{}
	byName   map[string]*Entity
	classes  map[string]ComponentSet
	nextSeq  uint64
	state    State
	frame    uint64

	loadBegin        signal.Signal[LoadEvent]
	loadSucceeded    signal.Signal[LoadEvent]
	loadFailed       signal.Signal[LoadEvent]
	entityCreated    signal.Signal[EntityEvent]
	entityDestroyed  signal.Signal[EntityEvent]
	componentAdded   signal.Signal[ComponentEvent]
	componentRemoved signal.Signal[ComponentEvent]
	cleared          signal.Signal[struct{}]
	updates          signal.Prioritized[Frame]
}

func NewPopulation(opts ...Option) *Population {
	p := &Population{
		log:      log.NewNop(),
		catalog:  models.NewCatalog(),
		entities: make(map[*Entity]struct{}),
		byName:   make(map[string]*Entity),
		classes:  make(map[string]ComponentSet),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(log.String("component", "population"))
	return p
}

// Signals

func (p *Population) OnLoadBegin(fn func(LoadEvent)) *signal.Connection {
	return p.loadBegin.Connect(fn)
}

func (p *Population) OnLoadSucceeded(fn func(LoadEvent)) *signal.Connection {
	return p.loadSucceeded.Connect(fn)
}

func (p *Population) OnLoadFailed(fn func(LoadEvent)) *signal.Connection {
	return p.loadFailed.Connect(fn)
}

func (p *Population) OnEntityCreated(fn func(EntityEvent)) *signal.Connection {
	return p.entityCreated.Connect(fn)
}

func (p *Population) OnEntityDestroyed(fn func(EntityEvent)) *signal.Connection {
	return p.entityDestroyed.Connect(fn)
}

func (p *Population) OnComponentAdded(fn func(ComponentEvent)) *signal.Connection {
	return p.componentAdded.Connect(fn)
}

func (p *Population) OnComponentRemoved(fn func(ComponentEvent)) *signal.Connection {
	return p.componentRemoved.Connect(fn)
}

// OnCleared fires once whenever the whole entity set is discarded, before the
// old entities are released.
func (p *Population) OnCleared(fn func()) *signal.Connection {
	return p.cleared.Connect(func(struct{}) { fn() })
}

// OnUpdate connects an update slot at the given priority. Lower priorities
// run first; equal priorities run in connection order.
func (p *Population) OnUpdate(priority int, fn func(Frame)) *signal.Connection {
	return p.updates.Connect(priority, fn)
}

// Update runs every update slot once, synchronously, in priority order.
func (p *Population) Update(delta time.Duration) {
	p.frame++
	p.updates.Emit(Frame{Index: p.frame, Delta: delta})
}

func (p *Population) UpdatePriorities() []int { return p.updates.Priorities() }

// Queries

func (p *Population) State() State { return p.state }
func (p *Population) Len() int     { return len(p.entities) }
func (p *Population) Frame() uint64 {
	return p.frame
}

func (p *Population) Entity(name string) (*Entity, bool) {
	e, ok := p.byName[name]
	return e, ok
}

// Entities returns the live entities in creation order.
func (p *Population) Entities() []*Entity {
	out := make([]*Entity, 0, len(p.entities))
	for e := range p.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Each visits live entities in creation order. fn must not create or kill
// entities.
func (p *Population) Each(fn func(*Entity)) {
	for _, e := range p.Entities() {
		fn(e)
	}
}

// Component kinds

func (p *Population) RegisterKind(kind models.ComponentKind) error {
	return p.catalog.Add(kind)
}

// Kind resolves a component class name, consulting the kind source once and
// caching the result.
func (p *Population) Kind(name string) (models.ComponentKind, error) {
	if kind, ok := p.catalog.ByName(name); ok {
		return kind, nil
	}
	if p.kinds == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	kind, err := p.kinds.ComponentKind(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnknownComponent, name, err)
	}
	if err := p.catalog.Add(kind); err != nil {
		return nil, err
	}
	return kind, nil
}

func (p *Population) Kinds() *models.Catalog { return p.catalog }

// Classes

// DefineClass records a named entity class (a template component set).
func (p *Population) DefineClass(name string, components ComponentSet) {
	p.classes[name] = components
}

func (p *Population) Class(name string) (ComponentSet, bool) {
	c, ok := p.classes[name]
	return c, ok
}

// Entity lifecycle

// CreateEntity builds an entity from ready component records and registers
// it. name may be empty; non-empty names must be unique.
func (p *Population) CreateEntity(name string, components ...models.Component) (*Entity, error) {
	if err := p.checkName(name); err != nil {
		return nil, err
	}
	e := newEntity(name, "")
	for _, c := range components {
		if err := checkComponent(c); err != nil {
			return nil, err
		}
		id := models.IdentifierFor(c)
		if _, dup := e.components[id]; dup {
			return nil, fmt.Errorf("%w: %T on %q", ErrComponentExists, c, name)
		}
		e.components[id] = c
	}
	p.insert(e)
	return e, nil
}

// CreateFromClass instantiates the named class. overrides are merged over
// the class data component by component.
func (p *Population) CreateFromClass(class, name string, overrides ComponentSet) (*Entity, error) {
	if err := p.checkName(name); err != nil {
		return nil, err
	}
	e, err := p.build(p.classes, EntityDef{Name: name, Class: class, Components: overrides})
	if err != nil {
		return nil, err
	}
	p.insert(e)
	return e, nil
}

// KillEntity notifies every subscriber while e is still fully readable,
// then unregisters it and drops its components.
func (p *Population) KillEntity(e *Entity) error {
	if _, ok := p.entities[e]; !ok {
		return ErrNotAlive
	}
	p.entityDestroyed.Emit(EntityEvent{Entity: e, Name: e.name})

	delete(p.entities, e)
	if e.name != "" {
		delete(p.byName, e.name)
	}
	e.alive = false
	clear(e.components)
	return nil
}

// KillByName kills the entity registered under name.
func (p *Population) KillByName(name string) error {
	e, ok := p.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrEntityNotFound, name)
	}
	return p.KillEntity(e)
}

func (p *Population) AddComponent(e *Entity, c models.Component) error {
	if _, ok := p.entities[e]; !ok {
		return ErrNotAlive
	}
	if err := checkComponent(c); err != nil {
		return err
	}
	id := models.IdentifierFor(c)
	if _, dup := e.components[id]; dup {
		return fmt.Errorf("%w: %T on %s", ErrComponentExists, c, e)
	}
	e.components[id] = c
	p.componentAdded.Emit(ComponentEvent{Entity: e, ID: id, Component: c})
	return nil
}

// AddComponentByName creates a component of the named class, loads data into
// it and attaches it.
func (p *Population) AddComponentByName(e *Entity, class string, data models.Data) (models.Component, error) {
	kind, err := p.Kind(class)
	if err != nil {
		return nil, err
	}
	c := kind.Create()
	if err := kind.Load(c, data); err != nil {
		return nil, fmt.Errorf("load %s: %w", class, err)
	}
	if err := p.AddComponent(e, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Population) RemoveComponent(e *Entity, id models.ComponentID) error {
	if _, ok := p.entities[e]; !ok {
		return ErrNotAlive
	}
	c, ok := e.components[id]
	if !ok {
		return ErrComponentNotFound
	}
	delete(e.components, id)
	p.componentRemoved.Emit(ComponentEvent{Entity: e, ID: id, Component: c})
	return nil
}

// checkComponent rejects records Get could never return: values and nil
// pointers share the identifier of their pointer type.
func checkComponent(c models.Component) error {
	v := reflect.ValueOf(c)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("%w: got %T", ErrInvalidComponent, c)
	}
	return nil
}

// Remove detaches component type T from e.
func Remove[T any](p *Population, e *Entity) error {
	return p.RemoveComponent(e, models.IdentifierOf[T]())
}

// Clear discards every entity. Subscribers get one Cleared notification
// instead of per-entity destruction signals.
func (p *Population) Clear() {
	p.discard()
	p.classes = make(map[string]ComponentSet)
	p.state = StateIdle
}

// Load and save

// Load replaces the whole population with the named definition. The new set
// is fully built before anything is swapped; on failure the previous
// population stays untouched and only LoadFailed fires.
func (p *Population) Load(name string) error {
	p.state = StateLoading
	p.loadBegin.Emit(LoadEvent{Name: name})
	p.log.Debug("Loading population", log.String("name", name))

	staged, classes, err := p.stage(name)
	if err != nil {
		p.state = StateFailed
		err = fmt.Errorf("load %s: %w", name, err)
		p.log.Warn("Population load failed", log.String("name", name), log.Error(err))
		p.loadFailed.Emit(LoadEvent{Name: name, Err: err})
		return err
	}

	p.discard()
	p.classes = classes
	for _, e := range staged {
		p.insert(e)
	}
	p.state = StateReady
	p.log.Info("Population loaded", log.String("name", name), log.Int("entities", len(staged)))
	p.loadSucceeded.Emit(LoadEvent{Name: name})
	return nil
}

// Save writes classes and every live entity through the component save hooks.
func (p *Population) Save(name string) error {
	if p.store == nil {
		return ErrNoStore
	}
	def := &Definition{Classes: p.classes}
	for _, e := range p.Entities() {
		ed := EntityDef{Name: e.name, Class: e.class, Components: make(ComponentSet, len(e.components))}
		for _, id := range e.ComponentIDs() {
			kind, ok := p.catalog.ByID(id)
			if !ok {
				return fmt.Errorf("save %s: %w: identifier %#x on %s", name, ErrUnknownComponent, uint64(id), e)
			}
			data := models.Data{}
			if err := kind.Save(e.components[id], data); err != nil {
				return fmt.Errorf("save %s: %s on %s: %w", name, kind.Name(), e, err)
			}
			ed.Components[kind.Name()] = data
		}
		def.Entities = append(def.Entities, ed)
	}
	if err := p.store.Write(name, def); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	p.log.Info("Population saved", log.String("name", name), log.Int("entities", len(def.Entities)))
	return nil
}

func (p *Population) stage(name string) ([]*Entity, map[string]ComponentSet, error) {
	if p.store == nil {
		return nil, nil, ErrNoStore
	}
	def, err := p.store.Read(name)
	if err != nil {
		return nil, nil, err
	}
	classes := def.Classes
	if classes == nil {
		classes = make(map[string]ComponentSet)
	}

	names := make(map[string]struct{}, len(def.Entities))
	staged := make([]*Entity, 0, len(def.Entities))
	for i, ed := range def.Entities {
		if ed.Name != "" {
			if _, dup := names[ed.Name]; dup {
				return nil, nil, fmt.Errorf("entity %d: %w: %s", i, ErrDuplicateEntity, ed.Name)
			}
			names[ed.Name] = struct{}{}
		}
		e, err := p.build(classes, ed)
		if err != nil {
			return nil, nil, fmt.Errorf("entity %d: %w", i, err)
		}
		staged = append(staged, e)
	}
	return staged, classes, nil
}

// build constructs an unregistered entity from a definition entry.
func (p *Population) build(classes map[string]ComponentSet, ed EntityDef) (*Entity, error) {
	merged := make(ComponentSet)
	if ed.Class != "" {
		base, ok := classes[ed.Class]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClass, ed.Class)
		}
		for kind, data := range base {
			merged[kind] = mergeData(nil, data)
		}
	}
	for kind, data := range ed.Components {
		merged[kind] = mergeData(merged[kind], data)
	}

	e := newEntity(ed.Name, ed.Class)
	kindNames := make([]string, 0, len(merged))
	for name := range merged {
		kindNames = append(kindNames, name)
	}
	sort.Strings(kindNames)
	for _, kindName := range kindNames {
		kind, err := p.Kind(kindName)
		if err != nil {
			return nil, err
		}
		c := kind.Create()
		if err := kind.Load(c, merged[kindName]); err != nil {
			return nil, fmt.Errorf("load %s: %w", kindName, err)
		}
		e.components[kind.Identifier()] = c
	}
	return e, nil
}

func (p *Population) checkName(name string) error {
	if name == "" {
		return nil
	}
	if _, dup := p.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, name)
	}
	return nil
}

func (p *Population) insert(e *Entity) {
	p.nextSeq++
	e.seq = p.nextSeq
	e.alive = true
	p.entities[e] = struct{}{}
	if e.name != "" {
		p.byName[e.name] = e
	}
	p.entityCreated.Emit(EntityEvent{Entity: e, Name: e.name})
}

func (p *Population) discard() {
	if len(p.entities) == 0 {
		return
	}
	old := p.entities
	p.cleared.Emit(struct{}{})
	p.entities = make(map[*Entity]struct{})
	p.byName = make(map[string]*Entity)
	for e := range old {
		e.alive = false
		clear(e.components)
	}
}

func mergeData(base, over models.Data) models.Data {
	out := make(models.Data, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
