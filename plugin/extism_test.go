package plugin

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	extism "github.com/extism/go-sdk"
	"github.com/joncooperworks/supercalc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wasmbin "github.com/tetratelabs/wabin/wasm"
)

func TestExtismLoader_Operation(t *testing.T) {
	el := NewExtismLoader()
	path := testutil.WriteFile(t, t.TempDir(), "multiplication.wasm",
		testutil.ExtismOperation("multiplication (*)", wasmbin.OpcodeF64Mul, "").Encode())

	op, err := el.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "multiplication (*)", op.Name())
	assert.Equal(t, 12.0, op.Apply(3, 4))
	assert.Equal(t, -7.5, op.Apply(-2.5, 3))
	assert.Equal(t, []string{path}, el.Modules())
}

func TestExtismLoader_NonFiniteOperands(t *testing.T) {
	el := NewExtismLoader()
	path := testutil.WriteFile(t, t.TempDir(), "addition.wasm",
		testutil.ExtismOperation("addition (+)", wasmbin.OpcodeF64Add, "").Encode())

	op, err := el.Load(path)
	require.NoError(t, err)
	assert.True(t, math.IsInf(op.Apply(math.Inf(1), 2), 1))
	assert.True(t, math.IsInf(op.Apply(-1, math.Inf(-1)), -1))
	assert.True(t, math.IsNaN(op.Apply(math.NaN(), 1)))
	assert.True(t, math.IsNaN(op.Apply(math.Inf(1), math.Inf(-1))))
}

func TestExtismLoader_MissingApply(t *testing.T) {
	el := NewExtismLoader()
	m := testutil.ExtismOperation("multiplication (*)", wasmbin.OpcodeF64Mul, "")
	m.Funcs = m.Funcs[:1]
	path := testutil.WriteFile(t, t.TempDir(), "noapply.wasm", m.Encode())

	op, err := el.Load(path)
	assert.Nil(t, op)
	assert.ErrorIs(t, err, ErrBadFactory)
	assert.Empty(t, el.Modules())
}

func TestExtismLoader_GuestLogs(t *testing.T) {
	var logs bytes.Buffer
	el := NewExtismLoader()
	el.SetLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { el.SetLogger(slog.Default()) })

	path := testutil.WriteFile(t, t.TempDir(), "chatty.wasm",
		testutil.ExtismOperation("multiplication (*)", wasmbin.OpcodeF64Mul, "hello from guest").Encode())

	_, err := el.Load(path)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "hello from guest")
	assert.Contains(t, logs.String(), "level=INFO")
	assert.Contains(t, logs.String(), "module="+path)
}

func TestExtismLoader_ReusesUnchangedModule(t *testing.T) {
	el := NewExtismLoader()
	path := testutil.WriteFile(t, t.TempDir(), "multiplication.wasm",
		testutil.ExtismOperation("multiplication (*)", wasmbin.OpcodeF64Mul, "").Encode())

	first, err := el.Load(path)
	require.NoError(t, err)
	second, err := el.Load(path)
	require.NoError(t, err)

	require.IsType(t, &extismOperation{}, first)
	require.IsType(t, &extismOperation{}, second)
	assert.Same(t, first.(*extismOperation).module, second.(*extismOperation).module)
	assert.NotSame(t, first, second)
	assert.Len(t, el.Modules(), 1)
	assert.Equal(t, 12.0, second.Apply(3, 4))
}

func TestExtismLoader_NotAModule(t *testing.T) {
	el := NewExtismLoader()
	path := writeFile(t, t.TempDir(), "notes.txt", "plain text")

	op, err := el.Load(path)
	assert.Nil(t, op)
	assert.ErrorIs(t, err, ErrNotModule)
	assert.Empty(t, el.Modules())
}

func TestExtismLoader_NoFactory(t *testing.T) {
	el := NewExtismLoader()
	path := testutil.WriteFile(t, t.TempDir(), "empty.wasm", testutil.Module{}.Encode())

	op, err := el.Load(path)
	assert.Nil(t, op)
	require.Error(t, err)
	assert.Empty(t, el.Modules())
}

func TestExtismLoader_MissingFile(t *testing.T) {
	el := NewExtismLoader()

	_, err := el.Load("/nonexistent/plugin.wasm")
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, slogLevel(extism.LogLevelError))
	assert.Equal(t, slog.LevelInfo, slogLevel(extism.LogLevelInfo))
	assert.Equal(t, slog.LevelDebug, slogLevel(extism.LogLevelTrace))
}

func TestExtismLevel(t *testing.T) {
	ctx := context.Background()
	level := func(l slog.Level) *slog.Logger {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: l}))
	}

	assert.Equal(t, extism.LogLevelDebug, extismLevel(ctx, level(slog.LevelDebug)))
	assert.Equal(t, extism.LogLevelInfo, extismLevel(ctx, level(slog.LevelInfo)))
	assert.Equal(t, extism.LogLevelWarn, extismLevel(ctx, level(slog.LevelWarn)))
	assert.Equal(t, extism.LogLevelError, extismLevel(ctx, level(slog.LevelError)))
	assert.Equal(t, extism.LogLevelOff, extismLevel(ctx, level(slog.LevelError+4)))
}
