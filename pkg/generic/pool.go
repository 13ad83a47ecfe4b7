package generic

import "sync"

// SlicePool recycles slice buffers between short-lived users. Buffers that
// grew beyond maxCap are dropped on Put so one large frame does not pin
// memory forever.
type SlicePool[T any] struct {
	pool   sync.Pool
	maxCap int
}

// NewSlicePool returns a pool handing out empty buffers with at least
// initialCap capacity. maxCap <= 0 keeps every buffer.
func NewSlicePool[T any](initialCap, maxCap int) *SlicePool[T] {
	return &SlicePool[T]{
		pool: sync.Pool{
			New: func() any {
				buf := make([]T, 0, initialCap)
				return &buf
			},
		},
		maxCap: maxCap,
	}
}

// Get returns an empty buffer.
func (p *SlicePool[T]) Get() *[]T {
	buf := p.pool.Get().(*[]T)
	*buf = (*buf)[:0]
	return buf
}

// Put zeroes the buffer's elements and returns it to the pool.
func (p *SlicePool[T]) Put(buf *[]T) {
	if buf == nil {
		return
	}
	clear(*buf)
	if p.maxCap > 0 && cap(*buf) > p.maxCap {
		return
	}
	*buf = (*buf)[:0]
	p.pool.Put(buf)
}
