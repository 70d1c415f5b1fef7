package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubOperation is an Operation with a fixed name that multiplies.
type stubOperation struct {
	name string
}

func (s *stubOperation) Name() string                   { return s.name }
func (s *stubOperation) Apply(op1, op2 float64) float64 { return op1 * op2 }

// stubLoader loads files whose content is "op:<name>". Anything else is not a
// module. The content "panic" panics and "nil" returns a nil operation.
type stubLoader struct {
	name string
}

func (sl *stubLoader) Load(path string) (Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch content := string(data); {
	case content == "panic":
		panic("factory exploded")
	case content == "nil":
		return nil, nil
	case len(content) >= 3 && content[:3] == "op:":
		return &stubOperation{name: content[3:]}, nil
	}
	return nil, ErrNotModule
}

// failingLoader never loads anything.
type failingLoader struct{}

func (failingLoader) Load(string) (Operation, error) {
	return nil, errors.New("failing loader")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
