package plugin

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"sync"
	"time"

	extism "github.com/extism/go-sdk"
)

// Export names of the Extism operation ABI.
//
// supercalc_new takes no input and writes the operation name to its output.
// supercalc_apply reads 16 bytes, op1 then op2 as little-endian IEEE 754
// doubles, and writes the result as 8 bytes in the same encoding, so NaN and
// the infinities pass through unchanged.
const (
	ExtismFactoryExport = "supercalc_new"
	ExtismApplyExport   = "supercalc_apply"
)

var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// ExtismLoader loads operations from Extism PDK modules.
type ExtismLoader struct {
	ctx    context.Context
	logger *slog.Logger

	mu      sync.Mutex
	modules map[string]*extismModule
}

// extismModule is a retained Extism plugin and the file it was created from.
type extismModule struct {
	size    int64
	modTime time.Time

	mu     sync.Mutex
	plugin *extism.Plugin
}

// NewExtismLoader creates an Extism loader.
func NewExtismLoader() *ExtismLoader {
	el := &ExtismLoader{
		ctx:     context.Background(),
		modules: make(map[string]*extismModule),
	}
	el.SetLogger(slog.Default())
	return el
}

// SetLogger routes guest log output to logger.
//
// The Extism log level is process wide; it is lowered to the most verbose
// level logger accepts.
func (el *ExtismLoader) SetLogger(logger *slog.Logger) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.logger = logger
	extism.SetLogLevel(extismLevel(el.ctx, logger))
}

// Load compiles and instantiates the module at path, then calls its factory
// export once.
func (el *ExtismLoader) Load(path string) (Operation, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	mod, ok := el.modules[path]
	fresh := !ok || mod.size != info.Size() || !mod.modTime.Equal(info.ModTime())
	if fresh {
		mod, err = el.open(path)
		if err != nil {
			return nil, err
		}
		mod.size = info.Size()
		mod.modTime = info.ModTime()
	}

	op, err := mod.newOperation(el.logger)
	if err != nil {
		if fresh {
			_ = mod.plugin.Close(el.ctx)
		}
		return nil, err
	}
	el.modules[path] = mod
	return op, nil
}

// Modules returns the paths of the retained modules.
func (el *ExtismLoader) Modules() []string {
	el.mu.Lock()
	defer el.mu.Unlock()
	paths := make([]string, 0, len(el.modules))
	for path := range el.modules {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

func (el *ExtismLoader) open(path string) (*extismModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, wasmMagic) {
		return nil, ErrNotModule
	}

	manifest := extism.Manifest{
		Wasm: []extism.Wasm{
			extism.WasmData{Data: data, Name: path},
		},
	}
	config := extism.PluginConfig{
		EnableWasi: true,
	}

	plugin, err := extism.NewPlugin(el.ctx, manifest, config, []extism.HostFunction{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Extism plugin: %w", ErrNotModule, err)
	}
	if !plugin.FunctionExists(ExtismFactoryExport) {
		_ = plugin.Close(el.ctx)
		return nil, ErrNoFactory
	}

	logger := el.logger.With("module", path)
	plugin.SetLogger(func(level extism.LogLevel, message string) {
		logger.Log(el.ctx, slogLevel(level), message)
	})

	return &extismModule{plugin: plugin}, nil
}

// newOperation calls the factory export, which reports the operation name.
func (m *extismModule) newOperation(logger *slog.Logger) (*extismOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exitCode, output, err := m.plugin.Call(ExtismFactoryExport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", ExtismFactoryExport, err)
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("%s returned non-zero exit code: %d", ExtismFactoryExport, exitCode)
	}
	if !m.plugin.FunctionExists(ExtismApplyExport) {
		return nil, fmt.Errorf("%w: %s not exported", ErrBadFactory, ExtismApplyExport)
	}

	return &extismOperation{module: m, name: string(output), logger: logger}, nil
}

// extismOperation implements Operation for an Extism module.
type extismOperation struct {
	module *extismModule
	name   string
	logger *slog.Logger
}

func (eo *extismOperation) Name() string {
	return eo.name
}

// Apply calls the apply export. Any failure inside the module yields NaN.
func (eo *extismOperation) Apply(op1, op2 float64) float64 {
	result, err := eo.apply(op1, op2)
	if err != nil {
		eo.logger.Debug("apply failed", "name", eo.name, "error", err)
		return math.NaN()
	}
	return result
}

func (eo *extismOperation) apply(op1, op2 float64) (float64, error) {
	input := make([]byte, 16)
	binary.LittleEndian.PutUint64(input[:8], math.Float64bits(op1))
	binary.LittleEndian.PutUint64(input[8:], math.Float64bits(op2))

	eo.module.mu.Lock()
	defer eo.module.mu.Unlock()

	exitCode, output, err := eo.module.plugin.Call(ExtismApplyExport, input)
	if err != nil {
		return 0, fmt.Errorf("failed to call %s: %w", ExtismApplyExport, err)
	}
	if exitCode != 0 {
		return 0, fmt.Errorf("%s returned non-zero exit code: %d", ExtismApplyExport, exitCode)
	}

	if len(output) != 8 {
		return 0, fmt.Errorf("%s returned %d bytes, want 8", ExtismApplyExport, len(output))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(output)), nil
}

// extismLevel returns the most verbose Extism level that logger records.
func extismLevel(ctx context.Context, logger *slog.Logger) extism.LogLevel {
	switch {
	case logger.Enabled(ctx, slog.LevelDebug):
		return extism.LogLevelDebug
	case logger.Enabled(ctx, slog.LevelInfo):
		return extism.LogLevelInfo
	case logger.Enabled(ctx, slog.LevelWarn):
		return extism.LogLevelWarn
	case logger.Enabled(ctx, slog.LevelError):
		return extism.LogLevelError
	default:
		return extism.LogLevelOff
	}
}

func slogLevel(level extism.LogLevel) slog.Level {
	switch level {
	case extism.LogLevelTrace, extism.LogLevelDebug:
		return slog.LevelDebug
	case extism.LogLevelWarn:
		return slog.LevelWarn
	case extism.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
