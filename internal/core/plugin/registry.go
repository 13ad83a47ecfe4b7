package plugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/zeusync/engine/internal/core/factory"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/pkg/concurrent"
)

// Registry holds every class creator and interface implementation
// registered by loaded modules. It implements factory.Source.
type Registry struct {
	mu      sync.RWMutex
	log     log.Log
	loaders map[string]Loader

	classes map[string]factory.Creator
	order   []string
	types   map[string][]string
	modules []Module
	closed  bool
}

var _ factory.Source = (*Registry)(nil)

type Option func(*Registry)

func WithLogger(l log.Log) Option {
	return func(r *Registry) { r.log = l }
}

// WithLoader handles files with the given extension (".so") with loader.
// A nil loader disables the extension.
func WithLoader(ext string, loader Loader) Option {
	return func(r *Registry) {
		ext = strings.ToLower(ext)
		if loader == nil {
			delete(r.loaders, ext)
			return
		}
		r.loaders[ext] = loader
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log: log.NewNop(),
		loaders: map[string]Loader{
			".so":  SharedObjectLoader{},
			".lua": ScriptLoader{},
		},
		classes: make(map[string]factory.Creator),
		types:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(log.String("component", "plugin_registry"))
	return r
}

// Skip is a file discovery could not load.
type Skip struct {
	Path string
	Err  error
}

// Report describes one discovery pass.
type Report struct {
	Loaded  []string
	Skipped []Skip
}

// AddStatic registers a compiled-in module through the same entry-point
// contract as discovered ones.
func (r *Registry) AddStatic(name string, entry EntryPoint) error {
	return r.register(NewModule(name, entry))
}

// Discover scans the search paths in order and loads every file whose
// extension has a loader. Files are visited in lexical order within each
// path. Files that fail to load or lack the entry point are skipped and
// reported. A registration collision aborts discovery and is returned.
func (r *Registry) Discover(ctx context.Context, paths []string, recursive bool) (*Report, error) {
	if r.isClosed() {
		return nil, ErrRegistryClosed
	}

	found := make([][]string, len(paths))
	scanErrs := make([]error, len(paths))
	err := concurrent.ForEach(ctx, paths, 0, func(ctx context.Context, idx int, dir string) error {
		files, err := r.scan(ctx, dir, recursive)
		found[idx] = files
		scanErrs[idx] = err
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for idx, files := range found {
		if scanErrs[idx] != nil {
			r.log.Warn("Search path skipped", log.String("path", paths[idx]), log.Error(scanErrs[idx]))
			report.Skipped = append(report.Skipped, Skip{Path: paths[idx], Err: scanErrs[idx]})
			continue
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			module, err := r.loaders[strings.ToLower(filepath.Ext(path))].Load(path)
			if err != nil {
				if errors.Is(err, ErrNoEntryPoint) {
					r.log.Debug("Not a plugin", log.String("path", path))
				} else {
					r.log.Warn("Module load failed", log.String("path", path), log.Error(err))
				}
				report.Skipped = append(report.Skipped, Skip{Path: path, Err: err})
				continue
			}
			if err := r.register(module); err != nil {
				_ = module.Close()
				r.log.Error("Module registration failed", log.String("path", path), log.Error(err))
				return report, err
			}
			report.Loaded = append(report.Loaded, path)
		}
	}

	r.log.Info("Discovery finished",
		log.Int("loaded", len(report.Loaded)),
		log.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// LoadFile loads and registers one module file regardless of search paths.
func (r *Registry) LoadFile(path string) error {
	loader, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedModule, path)
	}
	module, err := loader.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := r.register(module); err != nil {
		_ = module.Close()
		return err
	}
	return nil
}

func (r *Registry) scan(ctx context.Context, dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := r.loaders[strings.ToLower(filepath.Ext(path))]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// register runs the module's entry point against a staging area and commits
// its classes and types only if every registration succeeded. The entry point
// runs without the registry lock, so it may query the registry; conflicts
// that appear meanwhile are caught again at commit.
func (r *Registry) register(module Module) error {
	entry := module.EntryPoint()
	if entry == nil {
		return fmt.Errorf("%s: %w", module.Name(), ErrNoEntryPoint)
	}
	if r.isClosed() {
		return ErrRegistryClosed
	}

	stagedClasses := make(map[string]factory.Creator)
	var stagedOrder []string
	var stagedTypes []typeReg
	var regErr error

	addClass := func(name string, creator factory.Creator) error {
		if _, dup := stagedClasses[name]; dup || r.hasClass(name) {
			return r.fail(&regErr, fmt.Errorf("%w: %q", ErrDuplicateClass, name))
		}
		if creator == nil {
			return r.fail(&regErr, fmt.Errorf("%w: nil creator for %q", factory.ErrInvalidArgument, name))
		}
		stagedClasses[name] = creator
		stagedOrder = append(stagedOrder, name)
		return nil
	}
	addType := func(iface, class string) error {
		if _, staged := stagedClasses[class]; !staged && !r.hasClass(class) {
			return r.fail(&regErr, fmt.Errorf("%w: %s -> %q", ErrUnknownImplementor, iface, class))
		}
		reg := typeReg{iface, class}
		if slices.Contains(stagedTypes, reg) || r.hasType(reg) {
			return r.fail(&regErr, fmt.Errorf("%w: %s -> %q", ErrDuplicateType, iface, class))
		}
		stagedTypes = append(stagedTypes, reg)
		return nil
	}

	err := entry(addClass, addType)
	if regErr != nil {
		return fmt.Errorf("%s: %w", module.Name(), regErr)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", module.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if err := r.conflict(stagedOrder, stagedClasses, stagedTypes); err != nil {
		return fmt.Errorf("%s: %w", module.Name(), err)
	}
	for _, name := range stagedOrder {
		r.classes[name] = stagedClasses[name]
	}
	r.order = append(r.order, stagedOrder...)
	for _, t := range stagedTypes {
		r.types[t.iface] = append(r.types[t.iface], t.class)
	}
	r.modules = append(r.modules, module)

	r.log.Debug("Module registered",
		log.String("module", module.Name()),
		log.Strings("classes", stagedOrder),
	)
	return nil
}

type typeReg struct{ iface, class string }

func (r *Registry) hasClass(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[name]
	return ok
}

func (r *Registry) hasType(reg typeReg) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.types[reg.iface], reg.class)
}

// conflict re-validates a staged registration against the committed maps.
// Callers hold r.mu for writing.
func (r *Registry) conflict(order []string, classes map[string]factory.Creator, types []typeReg) error {
	for _, name := range order {
		if _, dup := r.classes[name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateClass, name)
		}
	}
	for _, t := range types {
		if _, staged := classes[t.class]; !staged {
			if _, known := r.classes[t.class]; !known {
				return fmt.Errorf("%w: %s -> %q", ErrUnknownImplementor, t.iface, t.class)
			}
		}
		if slices.Contains(r.types[t.iface], t.class) {
			return fmt.Errorf("%w: %s -> %q", ErrDuplicateType, t.iface, t.class)
		}
	}
	return nil
}

// fail records the first registration error and returns err.
func (r *Registry) fail(first *error, err error) error {
	if *first == nil {
		*first = err
	}
	return err
}

// Creator implements factory.Source.
func (r *Registry) Creator(name string) (factory.Creator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// CreateInstance invokes the named class creator.
func (r *Registry) CreateInstance(name string, ctx any, args ...any) (any, error) {
	return factory.New(r).CreateInstance(name, ctx, args...)
}

// ListImplementationsOf calls visitor once per class registered for iface,
// in registration order.
func (r *Registry) ListImplementationsOf(iface string, visitor func(class string)) {
	r.mu.RLock()
	classes := append([]string(nil), r.types[iface]...)
	r.mu.RUnlock()
	for _, class := range classes {
		visitor(class)
	}
}

// Classes returns every registered class name in registration order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Modules() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

func (r *Registry) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Close clears every class and type first, then releases modules in reverse
// load order. Subsequent calls are no-ops.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	clear(r.classes)
	clear(r.types)
	r.order = nil
	modules := r.modules
	r.modules = nil
	r.mu.Unlock()

	var errs []error
	for i := len(modules) - 1; i >= 0; i-- {
		if err := modules[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", modules[i].Name(), err))
		}
	}
	r.log.Debug("Registry closed", log.Int("modules", len(modules)))
	return errors.Join(errs...)
}
