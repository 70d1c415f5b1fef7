// Package testutil assembles small WebAssembly modules for tests, so that the
// loaders can be exercised without a WASM toolchain.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tetratelabs/wabin/binary"
	"github.com/tetratelabs/wabin/leb128"
	"github.com/tetratelabs/wabin/wasm"
)

// ExtismEnv is the import namespace of the Extism kernel.
const ExtismEnv = "extism:host/env"

// nameOffset is where Operation places the operation name in memory.
const nameOffset = 16

var (
	i32 = wasm.ValueTypeI32
	i64 = wasm.ValueTypeI64
	f64 = wasm.ValueTypeF64
)

// Import is an imported function.
type Import struct {
	Module  string
	Name    string
	Params  []wasm.ValueType
	Results []wasm.ValueType
}

// Func is one function defined by a Module. Body excludes the trailing end
// opcode.
type Func struct {
	Export  string
	Params  []wasm.ValueType
	Results []wasm.ValueType
	Locals  []wasm.ValueType
	Body    []byte
}

// Module describes a module with at most one memory and one data segment.
// Imported functions take the first function indexes.
type Module struct {
	Imports []Import
	Funcs   []Func
	// Memory exports a one-page memory named "memory".
	Memory bool
	// Data is copied to DataOffset in memory. Requires Memory.
	Data       []byte
	DataOffset uint32
}

// Wasm converts m to a wabin module.
func (m Module) Wasm() *wasm.Module {
	mod := &wasm.Module{}
	for _, imp := range m.Imports {
		mod.ImportSection = append(mod.ImportSection, &wasm.Import{
			Type:     wasm.ExternTypeFunc,
			Module:   imp.Module,
			Name:     imp.Name,
			DescFunc: addType(mod, imp.Params, imp.Results),
		})
	}

	for i, f := range m.Funcs {
		mod.FunctionSection = append(mod.FunctionSection, addType(mod, f.Params, f.Results))
		mod.CodeSection = append(mod.CodeSection, &wasm.Code{
			LocalTypes: f.Locals,
			Body:       append(append([]byte{}, f.Body...), wasm.OpcodeEnd),
		})
		if f.Export != "" {
			mod.ExportSection = append(mod.ExportSection, &wasm.Export{
				Type:  wasm.ExternTypeFunc,
				Name:  f.Export,
				Index: wasm.Index(len(m.Imports) + i),
			})
		}
	}

	if m.Memory {
		mod.MemorySection = &wasm.Memory{Min: 1}
		mod.ExportSection = append(mod.ExportSection, &wasm.Export{
			Type: wasm.ExternTypeMemory,
			Name: "memory",
		})
		if len(m.Data) > 0 {
			mod.DataSection = []*wasm.DataSegment{{
				OffsetExpression: &wasm.ConstantExpression{
					Opcode: wasm.OpcodeI32Const,
					Data:   leb128.EncodeInt32(int32(m.DataOffset)),
				},
				Init: m.Data,
			}}
		}
	}
	return mod
}

// Encode returns the binary encoding of m.
func (m Module) Encode() []byte {
	return binary.EncodeModule(m.Wasm())
}

func addType(mod *wasm.Module, params, results []wasm.ValueType) wasm.Index {
	mod.TypeSection = append(mod.TypeSection, &wasm.FunctionType{Params: params, Results: results})
	return wasm.Index(len(mod.TypeSection) - 1)
}

// OperationModule returns the encoding of Operation(name, op).
func OperationModule(name string, op wasm.Opcode) []byte {
	return Operation(name, op).Encode()
}

// Operation describes a module implementing the raw WASM operation ABI:
// supercalc_new returns handle 1, supercalc_apply applies the f64 binary
// opcode op to its operands and supercalc_name returns name. Funcs[0] is the
// factory.
func Operation(name string, op wasm.Opcode) Module {
	nameBody := append(I32Const(nameOffset), I32Const(int32(len(name)))...)
	return Module{
		Funcs: []Func{
			FactoryFunc(),
			{
				Export:  "supercalc_apply",
				Params:  []wasm.ValueType{i32, f64, f64},
				Results: []wasm.ValueType{f64},
				Body:    []byte{wasm.OpcodeLocalGet, 1, wasm.OpcodeLocalGet, 2, op},
			},
			{
				Export:  "supercalc_name",
				Params:  []wasm.ValueType{i32},
				Results: []wasm.ValueType{i32, i32},
				Body:    nameBody,
			},
		},
		Memory:     true,
		Data:       []byte(name),
		DataOffset: nameOffset,
	}
}

// FactoryFunc is a conforming supercalc_new returning handle 1.
func FactoryFunc() Func {
	return Func{
		Export:  "supercalc_new",
		Results: []wasm.ValueType{i32},
		Body:    I32Const(1),
	}
}

// Function indexes of the Extism kernel imports declared by ExtismOperation.
const (
	extismAlloc = iota
	extismStoreU8
	extismStoreU64
	extismInputLoadU64
	extismOutputSet
	extismLogInfo
)

// ExtismOperation describes an Extism plugin implementing the Extism
// operation ABI: supercalc_new outputs name (and logs logMessage at info level
// if it is not empty); supercalc_apply reads two little-endian f64 operands
// from its input, applies the f64 binary opcode op and outputs the result as
// a little-endian f64. Funcs[0] is the factory and Funcs[1] the apply export.
func ExtismOperation(name string, op wasm.Opcode, logMessage string) Module {
	var newBody []byte
	newBody = append(newBody, extismWrite(name)...)
	newBody = append(newBody, wasm.OpcodeLocalGet, 0)
	newBody = append(newBody, I64Const(int64(len(name)))...)
	newBody = append(newBody, call(extismOutputSet)...)
	if logMessage != "" {
		newBody = append(newBody, extismWrite(logMessage)...)
		newBody = append(newBody, wasm.OpcodeLocalGet, 0)
		newBody = append(newBody, call(extismLogInfo)...)
	}
	newBody = append(newBody, I32Const(0)...)

	var applyBody []byte
	applyBody = append(applyBody, I64Const(8)...)
	applyBody = append(applyBody, call(extismAlloc)...)
	applyBody = append(applyBody, wasm.OpcodeLocalSet, 0)
	applyBody = append(applyBody, wasm.OpcodeLocalGet, 0)
	applyBody = append(applyBody, I64Const(0)...)
	applyBody = append(applyBody, call(extismInputLoadU64)...)
	applyBody = append(applyBody, wasm.OpcodeF64ReinterpretI64)
	applyBody = append(applyBody, I64Const(8)...)
	applyBody = append(applyBody, call(extismInputLoadU64)...)
	applyBody = append(applyBody, wasm.OpcodeF64ReinterpretI64, op, wasm.OpcodeI64ReinterpretF64)
	applyBody = append(applyBody, call(extismStoreU64)...)
	applyBody = append(applyBody, wasm.OpcodeLocalGet, 0)
	applyBody = append(applyBody, I64Const(8)...)
	applyBody = append(applyBody, call(extismOutputSet)...)
	applyBody = append(applyBody, I32Const(0)...)

	return Module{
		Imports: []Import{
			{Module: ExtismEnv, Name: "alloc", Params: []wasm.ValueType{i64}, Results: []wasm.ValueType{i64}},
			{Module: ExtismEnv, Name: "store_u8", Params: []wasm.ValueType{i64, i32}},
			{Module: ExtismEnv, Name: "store_u64", Params: []wasm.ValueType{i64, i64}},
			{Module: ExtismEnv, Name: "input_load_u64", Params: []wasm.ValueType{i64}, Results: []wasm.ValueType{i64}},
			{Module: ExtismEnv, Name: "output_set", Params: []wasm.ValueType{i64, i64}},
			{Module: ExtismEnv, Name: "log_info", Params: []wasm.ValueType{i64}},
		},
		Funcs: []Func{
			{
				Export:  "supercalc_new",
				Results: []wasm.ValueType{i32},
				Locals:  []wasm.ValueType{i64},
				Body:    newBody,
			},
			{
				Export:  "supercalc_apply",
				Results: []wasm.ValueType{i32},
				Locals:  []wasm.ValueType{i64},
				Body:    applyBody,
			},
		},
	}
}

// extismWrite copies s into a fresh Extism memory block and leaves its offset
// in local 0.
func extismWrite(s string) []byte {
	body := I64Const(int64(len(s)))
	body = append(body, call(extismAlloc)...)
	body = append(body, wasm.OpcodeLocalSet, 0)
	for i := 0; i < len(s); i++ {
		body = append(body, wasm.OpcodeLocalGet, 0)
		body = append(body, I64Const(int64(i))...)
		body = append(body, wasm.OpcodeI64Add)
		body = append(body, I32Const(int32(s[i]))...)
		body = append(body, call(extismStoreU8)...)
	}
	return body
}

// I32Const returns an i32.const instruction.
func I32Const(v int32) []byte {
	return append([]byte{wasm.OpcodeI32Const}, leb128.EncodeInt32(v)...)
}

// I64Const returns an i64.const instruction.
func I64Const(v int64) []byte {
	return append([]byte{wasm.OpcodeI64Const}, leb128.EncodeInt64(v)...)
}

func call(index wasm.Index) []byte {
	return append([]byte{wasm.OpcodeCall}, leb128.EncodeUint32(index)...)
}

// WriteFile writes data to name inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
