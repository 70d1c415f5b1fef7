package plugin

import (
	"fmt"
	"sync"

	"github.com/joncooperworks/supercalc/plugin/wasm"
)

// Kinds of the built-in loader backends, in their default priority order.
const (
	KindNative = "native"
	KindWASM   = "wasm"
	KindExtism = "extism"
)

// LoaderFactory is a function that creates a new Loader instance.
//
// Factory functions are registered with RegisterLoader and are called once per
// Chain, so a Loader may keep state (compiled runtimes, retained modules) for
// the lifetime of the chain that owns it.
type LoaderFactory func() (Loader, error)

var (
	// loaderRegistry stores loader factories by kind.
	loaderRegistry = make(map[string]LoaderFactory)
	// loaderOrder records registration order, which is the default chain order.
	loaderOrder []string
	// loaderRegistryMu protects concurrent access to the registry.
	loaderRegistryMu sync.RWMutex
)

func init() {
	RegisterLoader(KindNative, func() (Loader, error) {
		return NewNativeLoader(), nil
	})
	RegisterLoader(KindWASM, func() (Loader, error) {
		l, err := wasm.NewLoader()
		if err != nil {
			return nil, err
		}
		return &wasmLoader{loader: l}, nil
	})
	RegisterLoader(KindExtism, func() (Loader, error) {
		return NewExtismLoader(), nil
	})
}

// RegisterLoader registers a loader factory for a given kind.
//
// Registering an existing kind replaces its factory but keeps its position in
// the default order.
//
// Example:
//
//	func init() {
//	    plugin.RegisterLoader("lua", func() (plugin.Loader, error) {
//	        return NewLuaLoader()
//	    })
//	}
func RegisterLoader(kind string, factory LoaderFactory) {
	loaderRegistryMu.Lock()
	defer loaderRegistryMu.Unlock()
	if _, ok := loaderRegistry[kind]; !ok {
		loaderOrder = append(loaderOrder, kind)
	}
	loaderRegistry[kind] = factory
}

// GetLoaderFactory retrieves the loader factory registered for kind.
func GetLoaderFactory(kind string) (LoaderFactory, error) {
	loaderRegistryMu.RLock()
	defer loaderRegistryMu.RUnlock()
	factory, ok := loaderRegistry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLoader, kind)
	}
	return factory, nil
}

// ListRegisteredLoaderKinds returns all registered kinds in registration order.
func ListRegisteredLoaderKinds() []string {
	loaderRegistryMu.RLock()
	defer loaderRegistryMu.RUnlock()
	kinds := make([]string, len(loaderOrder))
	copy(kinds, loaderOrder)
	return kinds
}
