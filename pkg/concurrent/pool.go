package concurrent

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	ErrPoolClosed   = errors.New("pool is shut down")
	ErrTaskPanicked = errors.New("task panicked")
)

// Pool is a fixed set of workers draining one shared FIFO queue.
// Tasks run to completion; there is no cancellation at this level.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func()
	head     int
	stopping bool
	workers  int
	wg       sync.WaitGroup

	// OnPanic receives panics recovered from detached tasks. Optional.
	OnPanic func(recovered any, stack []byte)
}

// NewPool starts workers goroutines. Values below one start a single worker.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{workers: workers}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) Workers() int { return p.workers }

// Pending returns the number of queued tasks not yet picked by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) - p.head
}

// EnqueueAndDetach submits fn without a result handle.
func (p *Pool) EnqueueAndDetach(fn func()) error {
	return p.push(func() {
		defer func() {
			if r := recover(); r != nil && p.OnPanic != nil {
				p.OnPanic(r, debug.Stack())
			}
		}()
		fn()
	})
}

// Enqueue submits fn and returns a Future resolving to its result.
func Enqueue[T any](p *Pool, fn func() (T, error)) (*Future[T], error) {
	f := newFuture[T]()
	err := p.push(func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.resolve(zero, fmt.Errorf("%w: %v", ErrTaskPanicked, r))
			}
		}()
		v, err := fn()
		f.resolve(v, err)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Shutdown stops accepting tasks, lets the workers drain what is already
// queued and waits for every worker to exit. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.stopping = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

// Closed reports whether Shutdown has been requested.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopping
}

func (p *Pool) push(task func()) error {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()
	p.cond.Signal()
	return nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.head == len(p.queue) && !p.stopping {
			p.cond.Wait()
		}
		if p.head == len(p.queue) {
			// stopping and drained
			p.mu.Unlock()
			return
		}
		task := p.queue[p.head]
		p.queue[p.head] = nil
		p.head++
		if p.head == len(p.queue) {
			p.queue = p.queue[:0]
			p.head = 0
		}
		p.mu.Unlock()

		task()
	}
}

// Future is the result handle returned by Enqueue.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.value = v
	f.err = err
	close(f.done)
}

// Get blocks until the task has finished and returns its result.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
