package signal

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

type rankedSlot[T any] struct {
	conn     *Connection
	priority int
	fn       func(T)
}

// Prioritized is a Signal whose slots run in ascending priority order.
// Slots sharing a priority run in connection order.
type Prioritized[T any] struct {
	mu    sync.RWMutex
	slots []*rankedSlot[T]
}

func (p *Prioritized[T]) Connect(priority int, fn func(T)) *Connection {
	conn := &Connection{id: uuid.NewString(), active: true}

	sl := &rankedSlot[T]{conn: conn, priority: priority, fn: fn}
	conn.cancel = func() { p.remove(sl) }

	p.mu.Lock()
	// insert after every slot of equal priority
	idx := sort.Search(len(p.slots), func(i int) bool {
		return p.slots[i].priority > priority
	})
	p.slots = append(p.slots, nil)
	copy(p.slots[idx+1:], p.slots[idx:])
	p.slots[idx] = sl
	p.mu.Unlock()
	return conn
}

func (p *Prioritized[T]) Emit(v T) {
	p.mu.RLock()
	snapshot := make([]*rankedSlot[T], len(p.slots))
	copy(snapshot, p.slots)
	p.mu.RUnlock()

	for _, sl := range snapshot {
		if !sl.conn.Connected() {
			continue
		}
		sl.fn(v)
	}
}

// Priorities returns the priority of every connected slot in call order.
func (p *Prioritized[T]) Priorities() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]int, len(p.slots))
	for i, sl := range p.slots {
		out[i] = sl.priority
	}
	return out
}

func (p *Prioritized[T]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.slots)
}

func (p *Prioritized[T]) remove(target *rankedSlot[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sl := range p.slots {
		if sl == target {
			p.slots = append(p.slots[:i], p.slots[i+1:]...)
			return
		}
	}
}
