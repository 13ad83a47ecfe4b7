package processor

import (
	"github.com/zeusync/engine/internal/core/ecs"
	"github.com/zeusync/engine/internal/core/models"
	"github.com/zeusync/engine/pkg/concurrent"
	"github.com/zeusync/engine/pkg/generic"
)

// Hook is called with an entity and the processor-private data kept for it.
type Hook[D any] func(e *ecs.Entity, data *D)

type entry[D any] struct {
	entity *ecs.Entity
	data   *D
}

// Helper is the per-processor view of "entities that carry every required
// component", each paired with processor-private data D. It is mutated only
// from population signal handlers; parallel visitors may read it.
type Helper[D any] struct {
	requires  []models.ComponentID
	index     map[*ecs.Entity]int
	entries   []entry[D]
	onAdded   Hook[D]
	onRemoved Hook[D]
	buffers   *generic.SlicePool[entry[D]]
}

func NewHelper[D any](requires ...models.ComponentID) *Helper[D] {
	return &Helper[D]{
		requires: requires,
		index:    make(map[*ecs.Entity]int),
		buffers:  generic.NewSlicePool[entry[D]](64, 1<<16),
	}
}

// WithHooks sets the callbacks Join and Leave use.
func (h *Helper[D]) WithHooks(onAdded, onRemoved Hook[D]) *Helper[D] {
	h.onAdded = onAdded
	h.onRemoved = onRemoved
	return h
}

func (h *Helper[D]) Requires() []models.ComponentID { return h.requires }

func (h *Helper[D]) Matches(e *ecs.Entity) bool {
	return e.HasComponents(h.requires...)
}

func (h *Helper[D]) Contains(e *ecs.Entity) bool {
	_, ok := h.index[e]
	return ok
}

func (h *Helper[D]) Len() int { return len(h.entries) }

// Data returns the private data stored for e.
func (h *Helper[D]) Data(e *ecs.Entity) (*D, bool) {
	i, ok := h.index[e]
	if !ok {
		return nil, false
	}
	return h.entries[i].data, true
}

// AddEntity stores e with zero-valued data if it qualifies and is not
// stored yet. onAdded runs only on that first insertion.
func (h *Helper[D]) AddEntity(e *ecs.Entity, onAdded Hook[D]) bool {
	if _, ok := h.index[e]; ok || !h.Matches(e) {
		return false
	}
	data := new(D)
	h.index[e] = len(h.entries)
	h.entries = append(h.entries, entry[D]{entity: e, data: data})
	if onAdded != nil {
		onAdded(e, data)
	}
	return true
}

// RemoveEntity erases e if stored; otherwise it does nothing. onRemoved runs
// only when something was erased.
func (h *Helper[D]) RemoveEntity(e *ecs.Entity, onRemoved Hook[D]) bool {
	i, ok := h.index[e]
	if !ok {
		return false
	}
	removed := h.entries[i]
	last := len(h.entries) - 1
	if i != last {
		h.entries[i] = h.entries[last]
		h.index[h.entries[i].entity] = i
	}
	h.entries[last] = entry[D]{}
	h.entries = h.entries[:last]
	delete(h.index, e)
	if onRemoved != nil {
		onRemoved(e, removed.data)
	}
	return true
}

// Join adds e using the configured added hook.
func (h *Helper[D]) Join(e *ecs.Entity) bool { return h.AddEntity(e, h.onAdded) }

// Leave removes e using the configured removed hook.
func (h *Helper[D]) Leave(e *ecs.Entity) bool { return h.RemoveEntity(e, h.onRemoved) }

// Clear empties the view without firing any hook.
func (h *Helper[D]) Clear() {
	clear(h.index)
	clear(h.entries)
	h.entries = h.entries[:0]
}

// List visits every stored entity. The order is stable as long as the view
// is not mutated.
func (h *Helper[D]) List(visitor func(e *ecs.Entity, data *D)) {
	for _, en := range h.entries {
		visitor(en.entity, en.data)
	}
}

// ParallelList visits every stored entity on the pool and returns once all
// visits are done. visitor may only mutate its own entity's data and
// components.
func (h *Helper[D]) ParallelList(pool *concurrent.Pool, visitor func(e *ecs.Entity, data *D)) error {
	if len(h.entries) == 0 {
		return nil
	}
	buf := h.buffers.Get()
	*buf = append(*buf, h.entries...)
	snapshot := *buf
	defer h.buffers.Put(buf)

	return concurrent.ParallelFor(pool, len(snapshot), func(lo, hi int) {
		for _, en := range snapshot[lo:hi] {
			visitor(en.entity, en.data)
		}
	})
}
