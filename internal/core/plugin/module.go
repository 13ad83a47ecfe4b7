package plugin

import (
	"fmt"
	goplugin "plugin"

	"github.com/zeusync/engine/internal/core/factory"
)

// ABIVersion is the entry-point contract version a module must be built
// against.
const ABIVersion = 1

const (
	// EntryPointSymbol is the symbol a shared-object module exports.
	EntryPointSymbol = "Register"
	// VersionSymbol is the optional int variable a shared-object module
	// exports to declare its ABI version.
	VersionSymbol = "ABIVersion"
)

// Well-known interface identifiers used with AddType.
const (
	InterfaceComponent = "component"
	InterfaceProcessor = "processor"
)

type (
	AddClassFunc func(name string, creator factory.Creator) error
	AddTypeFunc  func(iface, class string) error
)

// EntryPoint is the single registration function every module provides.
type EntryPoint func(addClass AddClassFunc, addType AddTypeFunc) error

// Module is a loaded module kept alive by the registry until it closes.
type Module interface {
	Name() string
	EntryPoint() EntryPoint
	Close() error
}

// Loader opens one module file. It returns ErrNoEntryPoint when the file
// loads but does not export the entry point.
type Loader interface {
	Load(path string) (Module, error)
}

type LoaderFunc func(path string) (Module, error)

func (f LoaderFunc) Load(path string) (Module, error) { return f(path) }

// NewModule wraps an entry point as a module with nothing to release.
func NewModule(name string, entry EntryPoint) Module {
	return staticModule{name: name, entry: entry}
}

type staticModule struct {
	name  string
	entry EntryPoint
}

func (m staticModule) Name() string           { return m.name }
func (m staticModule) EntryPoint() EntryPoint { return m.entry }
func (m staticModule) Close() error           { return nil }

// SharedObjectLoader loads Go plugins built with -buildmode=plugin.
type SharedObjectLoader struct{}

func (SharedObjectLoader) Load(path string) (Module, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}

	sym, err := p.Lookup(EntryPointSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, EntryPointSymbol)
	}
	var entry EntryPoint
	switch fn := sym.(type) {
	case func(AddClassFunc, AddTypeFunc) error:
		entry = fn
	case *EntryPoint:
		entry = *fn
	default:
		return nil, fmt.Errorf("%w: %s has type %T", ErrNoEntryPoint, EntryPointSymbol, sym)
	}

	if v, err := p.Lookup(VersionSymbol); err == nil {
		version, ok := v.(*int)
		if !ok {
			return nil, fmt.Errorf("%w: %s has type %T", ErrABIVersion, VersionSymbol, v)
		}
		if *version != ABIVersion {
			return nil, fmt.Errorf("%w: module %d, engine %d", ErrABIVersion, *version, ABIVersion)
		}
	}

	return &sharedObject{path: path, entry: entry}, nil
}

// The Go runtime cannot unload plugins; Close only drops the reference.
type sharedObject struct {
	path  string
	entry EntryPoint
}

func (m *sharedObject) Name() string           { return m.path }
func (m *sharedObject) EntryPoint() EntryPoint { return m.entry }
func (m *sharedObject) Close() error {
	m.entry = nil
	return nil
}
