package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel())
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat())
	assert.False(t, cfg.SortDiscovery())
	assert.Empty(t, cfg.Loaders)
	assert.Equal(t, path, cfg.Path())
}

func TestLoad_AllKeys(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
discovery:
  sort: true
loaders:
  - wasm
  - native
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel())
	assert.Equal(t, "json", cfg.LogFormat())
	assert.True(t, cfg.SortDiscovery())
	assert.Equal(t, []string{"wasm", "native"}, cfg.Loaders)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "log: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "empty", content: "", wantErr: false},
		{name: "bad level", content: "log:\n  level: verbose\n", wantErr: true},
		{name: "bad format", content: "log:\n  format: xml\n", wantErr: true},
		{name: "unknown loader", content: "loaders: [lua]\n", wantErr: true},
		{name: "subset of loaders", content: "loaders: [extism]\n", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("opt", "calc", FileName), DefaultPath(filepath.Join("opt", "calc")))
}
