// Package wasm loads operations from raw WebAssembly modules using wazero.
//
// A module is an operation plugin when it exports a factory function
// supercalc_new. The factory returns an instance handle that is passed to the
// instance's methods:
//
//	(func (export "supercalc_new") (result i32))
//	(func (export "supercalc_apply") (param i32 f64 f64) (result f64))
//	(func (export "supercalc_name") (param i32) (result i32 i32)) ;; ptr, len
//	(memory (export "memory") 1)
//
// Only the factory export decides whether a file is a plugin. The apply and
// name exports are the instance's method table and must have exactly the
// signatures above.
package wasm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Export names of the operation ABI.
const (
	FactoryExport = "supercalc_new"
	ApplyExport   = "supercalc_apply"
	NameExport    = "supercalc_name"
)

var (
	// ErrNotModule is returned when a file is not a loadable WASM module.
	ErrNotModule = errors.New("not a loadable WASM module")
	// ErrNoFactory is returned when a module does not export FactoryExport.
	ErrNoFactory = errors.New("factory export not found")
	// ErrBadSignature is returned when an ABI export has the wrong type.
	ErrBadSignature = errors.New("export has unexpected signature")
)

// magic is the WebAssembly binary preamble.
var magic = []byte{0x00, 'a', 's', 'm'}

var (
	factoryParams = []api.ValueType{}
	factoryResult = []api.ValueType{api.ValueTypeI32}
	applyParams   = []api.ValueType{api.ValueTypeI32, api.ValueTypeF64, api.ValueTypeF64}
	applyResult   = []api.ValueType{api.ValueTypeF64}
	nameParams    = []api.ValueType{api.ValueTypeI32}
	nameResult    = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
)

// Loader loads WASM operation modules into a single wazero runtime.
//
// Modules that produced an operation are retained until the Loader is closed;
// loading an unchanged file again reuses its module and calls the factory once
// more.
type Loader struct {
	runtime wazero.Runtime
	ctx     context.Context

	mu      sync.Mutex
	modules map[string]*module
}

// module is a retained, instantiated plugin module.
type module struct {
	size    int64
	modTime time.Time

	mu       sync.Mutex
	instance api.Module
	compiled wazero.CompiledModule
	factory  api.Function
	apply    api.Function
	name     api.Function
}

// NewLoader creates a loader with a WASI runtime ready to instantiate modules.
func NewLoader() (*Loader, error) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	return &Loader{
		runtime: runtime,
		ctx:     ctx,
		modules: make(map[string]*module),
	}, nil
}

// Close releases the runtime and every retained module. Operations produced by
// this loader must not be used afterwards.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules = make(map[string]*module)
	return l.runtime.Close(l.ctx)
}

// Retained returns the paths of the modules currently held by the loader.
func (l *Loader) Retained() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	paths := make([]string, 0, len(l.modules))
	for path := range l.modules {
		paths = append(paths, path)
	}
	return paths
}

// Load opens the module at path and invokes its factory exactly once.
func (l *Loader) Load(path string) (*Operation, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	mod, ok := l.modules[path]
	fresh := !ok || mod.size != info.Size() || !mod.modTime.Equal(info.ModTime())
	if fresh {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		mod, err = l.instantiate(data)
		if err != nil {
			return nil, err
		}
		mod.size = info.Size()
		mod.modTime = info.ModTime()
	}

	op, err := mod.newOperation(l.ctx)
	if err != nil {
		if fresh {
			mod.close(l.ctx)
		}
		return nil, err
	}
	// A replaced module stays alive: operations created from it may still be
	// registered.
	l.modules[path] = mod
	return op, nil
}

// instantiate compiles data and checks that it exports the operation ABI.
func (l *Loader) instantiate(data []byte) (*module, error) {
	if !bytes.HasPrefix(data, magic) {
		return nil, ErrNotModule
	}

	compiled, err := l.runtime.CompileModule(l.ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: compile: %w", ErrNotModule, err)
	}

	factoryDef, ok := compiled.ExportedFunctions()[FactoryExport]
	if !ok {
		_ = compiled.Close(l.ctx)
		return nil, ErrNoFactory
	}
	if err := checkSignature(FactoryExport, factoryDef, factoryParams, factoryResult); err != nil {
		_ = compiled.Close(l.ctx)
		return nil, err
	}

	// Anonymous, so the same file can be instantiated again after it changes.
	// Reactor modules initialise through _initialize; _start is never run.
	config := wazero.NewModuleConfig().WithName("").WithStartFunctions("_initialize")
	instance, err := l.runtime.InstantiateModule(l.ctx, compiled, config)
	if err != nil {
		_ = compiled.Close(l.ctx)
		return nil, fmt.Errorf("%w: instantiate: %w", ErrNotModule, err)
	}

	mod := &module{
		instance: instance,
		compiled: compiled,
		factory:  instance.ExportedFunction(FactoryExport),
		apply:    instance.ExportedFunction(ApplyExport),
		name:     instance.ExportedFunction(NameExport),
	}
	if err := mod.validate(); err != nil {
		mod.close(l.ctx)
		return nil, err
	}
	return mod, nil
}

func (m *module) close(ctx context.Context) {
	_ = m.instance.Close(ctx)
	_ = m.compiled.Close(ctx)
}

func (m *module) validate() error {
	if m.apply == nil {
		return fmt.Errorf("%w: %s not exported", ErrBadSignature, ApplyExport)
	}
	if err := checkSignature(ApplyExport, m.apply.Definition(), applyParams, applyResult); err != nil {
		return err
	}
	if m.name == nil {
		return fmt.Errorf("%w: %s not exported", ErrBadSignature, NameExport)
	}
	if err := checkSignature(NameExport, m.name.Definition(), nameParams, nameResult); err != nil {
		return err
	}
	if m.instance.Memory() == nil {
		return fmt.Errorf("%w: module has no exported memory", ErrBadSignature)
	}
	return nil
}

func checkSignature(export string, def api.FunctionDefinition, params, results []api.ValueType) error {
	if !slices.Equal(def.ParamTypes(), params) || !slices.Equal(def.ResultTypes(), results) {
		return fmt.Errorf("%w: %s has params %v results %v", ErrBadSignature, export, def.ParamTypes(), def.ResultTypes())
	}
	return nil
}

// newOperation calls the factory and resolves the instance's name.
func (m *module) newOperation(ctx context.Context) (*Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results, err := m.factory.Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", FactoryExport, err)
	}
	handle := api.DecodeI32(results[0])

	name, err := m.callName(ctx, handle)
	if err != nil {
		return nil, err
	}
	return &Operation{module: m, ctx: ctx, handle: handle, name: name}, nil
}

// callName expects the name export to return a (ptr,len) string pair.
func (m *module) callName(ctx context.Context, handle int32) (string, error) {
	results, err := m.name.Call(ctx, api.EncodeI32(handle))
	if err != nil {
		return "", fmt.Errorf("call %s: %w", NameExport, err)
	}

	ptr := uint32(results[0])
	length := uint32(results[1])
	if length == 0 {
		return "", nil
	}

	data, ok := m.instance.Memory().Read(ptr, length)
	if !ok {
		return "", fmt.Errorf("failed to read name at ptr=%d, len=%d", ptr, length)
	}
	return string(data), nil
}
