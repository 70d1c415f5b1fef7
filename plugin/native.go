package plugin

import (
	"fmt"
	goplugin "plugin"
	"slices"
	"sync"
)

// NativeLoader loads Go plugins built with -buildmode=plugin through the
// platform's shared-library mechanism.
//
// The plugin must export FactorySymbol with the exact type
// func() plugin.Operation. Go never unloads a plugin; opening the same path
// again returns the already loaded plugin, so reloading does not accumulate
// native modules. A plugin built against a different version of this package
// fails to open and is skipped like any other non-module.
type NativeLoader struct {
	mu     sync.Mutex
	opened []string
}

// NewNativeLoader creates a native plugin loader.
func NewNativeLoader() *NativeLoader {
	return &NativeLoader{}
}

// Load opens path as a Go plugin and invokes its factory once.
func (nl *NativeLoader) Load(path string) (Operation, error) {
	plug, err := goplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotModule, err)
	}
	nl.retain(path)

	symbol, err := plug.Lookup(FactorySymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFactory, err)
	}

	var factory Factory
	switch v := symbol.(type) {
	case func() Operation:
		factory = v
	case *Factory:
		factory = *v
	case *func() Operation:
		factory = *v
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrBadFactory, FactorySymbol, symbol)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: %s is nil", ErrBadFactory, FactorySymbol)
	}
	return factory(), nil
}

// Modules returns the paths of every plugin opened so far.
func (nl *NativeLoader) Modules() []string {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	return slices.Clone(nl.opened)
}

func (nl *NativeLoader) retain(path string) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	if !slices.Contains(nl.opened, path) {
		nl.opened = append(nl.opened, path)
	}
}
