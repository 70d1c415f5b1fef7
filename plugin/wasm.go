package plugin

import (
	"errors"
	"fmt"

	"github.com/joncooperworks/supercalc/plugin/wasm"
)

// wasmLoader adapts the wazero backend to the Loader interface.
type wasmLoader struct {
	loader *wasm.Loader
}

func (wl *wasmLoader) Load(path string) (Operation, error) {
	op, err := wl.loader.Load(path)
	if err != nil {
		switch {
		case errors.Is(err, wasm.ErrNotModule):
			return nil, fmt.Errorf("%w: %w", ErrNotModule, err)
		case errors.Is(err, wasm.ErrNoFactory):
			return nil, fmt.Errorf("%w: %w", ErrNoFactory, err)
		case errors.Is(err, wasm.ErrBadSignature):
			return nil, fmt.Errorf("%w: %w", ErrBadFactory, err)
		}
		return nil, err
	}
	return op, nil
}

func (wl *wasmLoader) Modules() []string {
	return wl.loader.Retained()
}
