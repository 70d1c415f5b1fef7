package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Loader turns one file into one Operation.
//
// A Loader invokes the module's factory exactly once per successful Load and
// keeps the module alive for as long as the Loader exists.
type Loader interface {
	Load(path string) (Operation, error)
}

// moduleLister is implemented by loaders that can report retained modules.
type moduleLister interface {
	Modules() []string
}

// loggerSetter is implemented by loaders that forward module logs.
type loggerSetter interface {
	SetLogger(logger *slog.Logger)
}

var (
	// ErrNotModule is returned when a file is not a module the loader can open.
	ErrNotModule = errors.New("not a loadable module")
	// ErrNoFactory is returned when a module does not export the factory.
	ErrNoFactory = errors.New("factory symbol not found")
	// ErrBadFactory is returned when the factory has the wrong type.
	ErrBadFactory = errors.New("factory symbol has unexpected type")
	// ErrFactoryPanic is returned when the factory panicked.
	ErrFactoryPanic = errors.New("factory panicked")
	// ErrEmptyName is returned when a loaded operation reports an empty name.
	ErrEmptyName = errors.New("operation has an empty name")
	// ErrUnknownLoader is returned for a kind with no registered factory.
	ErrUnknownLoader = errors.New("no loader registered for kind")
)

// ChainOptions configures NewChain.
type ChainOptions struct {
	// Kinds lists the loader kinds to try, in order. Empty means every
	// registered kind in registration order.
	Kinds []string
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Chain tries a fixed sequence of loaders on each candidate file.
//
// A Chain owns its loaders, and therefore every module they loaded, for its
// whole lifetime. Hosts create one Chain per process.
type Chain struct {
	kinds   []string
	loaders []Loader
	logger  *slog.Logger
}

// NewChain creates a Chain from registered loader factories.
func NewChain(opts ChainOptions) (*Chain, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = ListRegisteredLoaderKinds()
	}

	c := &Chain{logger: logger}
	for _, kind := range kinds {
		if slices.Contains(c.kinds, kind) {
			continue
		}
		factory, err := GetLoaderFactory(kind)
		if err != nil {
			return nil, err
		}
		loader, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create %s loader: %w", kind, err)
		}
		if ls, ok := loader.(loggerSetter); ok {
			ls.SetLogger(logger.With("loader", kind))
		}
		c.kinds = append(c.kinds, kind)
		c.loaders = append(c.loaders, loader)
	}
	return c, nil
}

// Kinds returns the loader kinds of the chain in the order they are tried.
func (c *Chain) Kinds() []string {
	return slices.Clone(c.kinds)
}

// TryLoad attempts to load path with each loader in turn.
//
// The first loader that yields an operation wins. Every failure is absorbed:
// files that are not modules, modules without the factory, factories of the
// wrong type, factories that panic and operations with an empty name are
// logged at debug level and reported as false.
func (c *Chain) TryLoad(path string) (*Instance, bool) {
	for i, loader := range c.loaders {
		kind := c.kinds[i]
		op, err := load(loader, path)
		if err != nil {
			c.logger.Debug("candidate skipped", "path", path, "loader", kind, "error", err)
			continue
		}

		c.logger.Info("operation loaded", "path", path, "loader", kind, "name", op.Name())
		return &Instance{op: op, source: path, loader: kind}, true
	}
	return nil, false
}

// LoadedModules returns the paths of the modules retained by the chain's
// loaders. Native plugins are never listed twice; the Go runtime keeps them
// loaded for the life of the process regardless.
func (c *Chain) LoadedModules() []string {
	var paths []string
	for _, loader := range c.loaders {
		if ml, ok := loader.(moduleLister); ok {
			paths = append(paths, ml.Modules()...)
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

// load calls loader.Load, converting a panic inside a module into an error and
// rejecting operations that break the contract up front.
func load(loader Loader, path string) (op Operation, err error) {
	defer func() {
		if r := recover(); r != nil {
			op = nil
			err = fmt.Errorf("%w: %v", ErrFactoryPanic, r)
		}
	}()

	op, err = loader.Load(path)
	switch {
	case err != nil:
		return nil, err
	case op == nil:
		return nil, fmt.Errorf("%w: factory returned nil", ErrBadFactory)
	case op.Name() == "":
		return nil, ErrEmptyName
	}
	return op, nil
}
