package factory

import (
	"fmt"
)

// Creator builds one instance of a registered class. ctx is the opaque
// context handle supplied by the caller (the engine host for processors),
// args is the packed argument bundle.
type Creator func(ctx any, args Args) (any, error)

// Source resolves class names to creators. The plugin registry is the
// production implementation.
type Source interface {
	Creator(name string) (Creator, bool)
}

// Classes is a plain map Source, handy for compiled-in class sets and tests.
type Classes map[string]Creator

func (c Classes) Creator(name string) (Creator, bool) {
	fn, ok := c[name]
	return fn, ok
}

// Factory creates instances by class name. It never caches instances.
type Factory struct {
	source Source
}

func New(source Source) *Factory {
	return &Factory{source: source}
}

// CreateInstance packs args and forwards them to the creator registered
// under name.
func (f *Factory) CreateInstance(name string, ctx any, args ...any) (any, error) {
	creator, ok := f.source.Creator(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	instance, err := creator(ctx, Pack(args...))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return instance, nil
}

// Create is CreateInstance followed by a checked downcast to T.
func Create[T any](f *Factory, name string, ctx any, args ...any) (T, error) {
	var zero T
	instance, err := f.CreateInstance(name, ctx, args...)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s produced %T", ErrUnexpectedType, name, instance)
	}
	return typed, nil
}

// NewCreator wraps a constructor that takes no arguments besides the context.
func NewCreator[T any](ctor func(ctx any) (T, error)) Creator {
	return func(ctx any, _ Args) (any, error) {
		return ctor(ctx)
	}
}

// NewCreator1 wraps a constructor taking one typed argument.
func NewCreator1[A, T any](ctor func(ctx any, a A) (T, error)) Creator {
	return func(ctx any, args Args) (any, error) {
		a, err := Arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		return ctor(ctx, a)
	}
}

// NewCreator2 wraps a constructor taking two typed arguments.
func NewCreator2[A, B, T any](ctor func(ctx any, a A, b B) (T, error)) Creator {
	return func(ctx any, args Args) (any, error) {
		a, err := Arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := Arg[B](args, 1)
		if err != nil {
			return nil, err
		}
		return ctor(ctx, a, b)
	}
}
