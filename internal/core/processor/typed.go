package processor

import (
	"github.com/zeusync/engine/internal/core/ecs"
	"github.com/zeusync/engine/internal/core/models"
	"github.com/zeusync/engine/pkg/concurrent"
)

// Helper1 is a Helper requiring component A whose visitors receive *A.
type Helper1[D, A any] struct {
	*Helper[D]
}

func NewHelper1[D, A any]() *Helper1[D, A] {
	return &Helper1[D, A]{Helper: NewHelper[D](models.IdentifierOf[A]())}
}

func (h *Helper1[D, A]) WithHooks(onAdded func(e *ecs.Entity, data *D, a *A), onRemoved Hook[D]) *Helper1[D, A] {
	var added Hook[D]
	if onAdded != nil {
		added = func(e *ecs.Entity, data *D) { onAdded(e, data, ecs.Get[A](e)) }
	}
	h.Helper.WithHooks(added, onRemoved)
	return h
}

func (h *Helper1[D, A]) List(visitor func(e *ecs.Entity, data *D, a *A)) {
	h.Helper.List(func(e *ecs.Entity, data *D) {
		visitor(e, data, ecs.Get[A](e))
	})
}

func (h *Helper1[D, A]) ParallelList(pool *concurrent.Pool, visitor func(e *ecs.Entity, data *D, a *A)) error {
	return h.Helper.ParallelList(pool, func(e *ecs.Entity, data *D) {
		visitor(e, data, ecs.Get[A](e))
	})
}

// Helper2 is a Helper requiring components A and B.
type Helper2[D, A, B any] struct {
	*Helper[D]
}

func NewHelper2[D, A, B any]() *Helper2[D, A, B] {
	return &Helper2[D, A, B]{Helper: NewHelper[D](models.IdentifierOf[A](), models.IdentifierOf[B]())}
}

func (h *Helper2[D, A, B]) WithHooks(onAdded func(e *ecs.Entity, data *D, a *A, b *B), onRemoved Hook[D]) *Helper2[D, A, B] {
	var added Hook[D]
	if onAdded != nil {
		added = func(e *ecs.Entity, data *D) { onAdded(e, data, ecs.Get[A](e), ecs.Get[B](e)) }
	}
	h.Helper.WithHooks(added, onRemoved)
	return h
}

func (h *Helper2[D, A, B]) List(visitor func(e *ecs.Entity, data *D, a *A, b *B)) {
	h.Helper.List(func(e *ecs.Entity, data *D) {
		visitor(e, data, ecs.Get[A](e), ecs.Get[B](e))
	})
}

func (h *Helper2[D, A, B]) ParallelList(pool *concurrent.Pool, visitor func(e *ecs.Entity, data *D, a *A, b *B)) error {
	return h.Helper.ParallelList(pool, func(e *ecs.Entity, data *D) {
		visitor(e, data, ecs.Get[A](e), ecs.Get[B](e))
	})
}

// Helper3 is a Helper requiring components A, B and C.
type Helper3[D, A, B, C any] struct {
	*Helper[D]
}

func NewHelper3[D, A, B, C any]() *Helper3[D, A, B, C] {
	return &Helper3[D, A, B, C]{Helper: NewHelper[D](models.IdentifierOf[A](), models.IdentifierOf[B](), models.IdentifierOf[C]())}
}

func (h *Helper3[D, A, B, C]) WithHooks(onAdded func(e *ecs.Entity, data *D, a *A, b *B, c *C), onRemoved Hook[D]) *Helper3[D, A, B, C] {
	var added Hook[D]
	if onAdded != nil {
		added = func(e *ecs.Entity, data *D) { onAdded(e, data, ecs.Get[A](e), ecs.Get[B](e), ecs.Get[C](e)) }
	}
	h.Helper.WithHooks(added, onRemoved)
	return h
}

func (h *Helper3[D, A, B, C]) List(visitor func(e *ecs.Entity, data *D, a *A, b *B, c *C)) {
	h.Helper.List(func(e *ecs.Entity, data *D) {
		visitor(e, data, ecs.Get[A](e), ecs.Get[B](e), ecs.Get[C](e))
	})
}

func (h *Helper3[D, A, B, C]) ParallelList(pool *concurrent.Pool, visitor func(e *ecs.Entity, data *D, a *A, b *B, c *C)) error {
	return h.Helper.ParallelList(pool, func(e *ecs.Entity, data *D) {
		visitor(e, data, ecs.Get[A](e), ecs.Get[B](e), ecs.Get[C](e))
	})
}
