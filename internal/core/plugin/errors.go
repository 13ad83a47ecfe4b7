package plugin

import "errors"

var (
	ErrDuplicateClass     = errors.New("duplicate class")
	ErrDuplicateType      = errors.New("duplicate type registration")
	ErrNoEntryPoint       = errors.New("module has no registration entry point")
	ErrABIVersion         = errors.New("module ABI version mismatch")
	ErrRegistryClosed     = errors.New("registry closed")
	ErrUnsupportedModule  = errors.New("unsupported module kind")
	ErrUnknownImplementor = errors.New("type registered for unknown class")
)
