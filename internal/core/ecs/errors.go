package ecs

import "errors"

var (
	ErrDuplicateEntity     = errors.New("entity name already in use")
	ErrEntityNotFound      = errors.New("entity not found")
	ErrNotAlive            = errors.New("entity is not alive in this population")
	ErrComponentExists     = errors.New("component already attached")
	ErrComponentNotFound   = errors.New("component not attached")
	ErrInvalidComponent    = errors.New("component must be a non-nil pointer")
	ErrUnknownComponent    = errors.New("unknown component class")
	ErrUnknownClass        = errors.New("unknown entity class")
	ErrMalformedDefinition = errors.New("malformed population definition")
	ErrUnsupportedFormat   = errors.New("unsupported definition format")
	ErrNoStore             = errors.New("population has no definition store")
)
