package factory

import "fmt"

// Args is the opaque argument bundle passed from Create to a Creator.
// The creator unpacks exactly the layout the caller packed.
type Args struct {
	values []any
}

func Pack(values ...any) Args {
	return Args{values: values}
}

func (a Args) Len() int { return len(a.values) }

// Arg returns argument i as T. A missing argument or a type mismatch is
// reported as ErrInvalidArgument.
func Arg[T any](a Args, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(a.values) {
		return zero, fmt.Errorf("%w: index %d out of %d", ErrInvalidArgument, i, len(a.values))
	}
	v, ok := a.values[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: index %d is %T, want %T", ErrInvalidArgument, i, a.values[i], zero)
	}
	return v, nil
}

// ArgOr is Arg with a fallback for absent arguments. A present argument of
// the wrong type still yields the fallback.
func ArgOr[T any](a Args, i int, fallback T) T {
	v, err := Arg[T](a, i)
	if err != nil {
		return fallback
	}
	return v
}
