package signal

import (
	"sync"

	"github.com/google/uuid"
)

// Connection is the subscriber-owned handle of one slot. Disconnecting it
// guarantees the slot is not invoked by any later Emit.
type Connection struct {
	id     string
	mu     sync.Mutex
	active bool
	cancel func()
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Disconnect removes the slot. Calling it more than once is harmless.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

type slot[T any] struct {
	conn *Connection
	fn   func(T)
}

// Signal is a typed publish/subscribe channel. Slots are invoked
// synchronously on the emitting goroutine in connection order.
type Signal[T any] struct {
	mu    sync.RWMutex
	slots []*slot[T]
}

func (s *Signal[T]) Connect(fn func(T)) *Connection {
	conn := &Connection{id: uuid.NewString(), active: true}
	sl := &slot[T]{conn: conn, fn: fn}
	conn.cancel = func() { s.remove(sl) }

	s.mu.Lock()
	s.slots = append(s.slots, sl)
	s.mu.Unlock()
	return conn
}

// Emit invokes every connected slot with v. Slots connected during the
// emission are not called for it; slots disconnected during it are skipped.
func (s *Signal[T]) Emit(v T) {
	s.mu.RLock()
	snapshot := make([]*slot[T], len(s.slots))
	copy(snapshot, s.slots)
	s.mu.RUnlock()

	for _, sl := range snapshot {
		if !sl.conn.Connected() {
			continue
		}
		sl.fn(v)
	}
}

func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

func (s *Signal[T]) remove(target *slot[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sl := range s.slots {
		if sl == target {
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
			return
		}
	}
}
