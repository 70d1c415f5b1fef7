// Package executor provides the host-facing query surface of the calculator.
// It ties the registry to the directory the host executable lives in and
// applies the operation a user selected.
package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joncooperworks/supercalc/registry"
)

// ErrNoOperation is returned when a selection does not name a registered
// operation. Hosts treat it as "do nothing".
var ErrNoOperation = errors.New("no operation selected")

// HostOptions configures a Host.
type HostOptions struct {
	// Registry is the registry the host queries. Required.
	Registry *registry.Registry
	// Dir overrides the plugin directory. Empty means the directory of the
	// running executable, which is the only directory a released host scans.
	Dir string
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Host is what a front end (CLI, menu, list widget) talks to.
//
// Reload rescans the plugin directory; Get and Calculate address operations by
// Selection so that "nothing selected" can never be mistaken for an index.
type Host struct {
	registry *registry.Registry
	dir      string
	logger   *slog.Logger
}

// CalculationResult is the outcome of Calculate.
type CalculationResult struct {
	// Index is the registry position of the operation.
	Index int
	// Name is the operation name.
	Name string
	// Op1 and Op2 are the operands as given.
	Op1, Op2 float64
	// Value is Apply(Op1, Op2).
	Value float64
}

// NewHost creates a host over opts.Registry.
func NewHost(opts HostOptions) (*Host, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = ExecutableDir()
		if err != nil {
			return nil, err
		}
	}

	return &Host{
		registry: opts.Registry,
		dir:      dir,
		logger:   logger,
	}, nil
}

// ExecutableDir returns the directory containing the running executable,
// with symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return filepath.Dir(resolved), nil
}

// Dir returns the directory the host scans for plugins.
func (h *Host) Dir() string {
	return h.dir
}

// Reload rebuilds the registry from the plugin directory.
func (h *Host) Reload() registry.ReloadStats {
	stats := h.registry.Reload(h.dir)
	h.logger.Info("operations reloaded",
		"dir", h.dir,
		"plugins", stats.Loaded,
		"entries", stats.Entries,
	)
	return stats
}

// Names returns the names of the registered operations in index order.
func (h *Host) Names() []string {
	return h.registry.Names()
}

// Get returns the entry chosen by sel.
func (h *Host) Get(sel registry.Selection) (registry.Entry, bool) {
	return h.registry.Lookup(sel)
}

// Calculate applies the selected operation to op1 and op2.
//
// It returns ErrNoOperation when sel is NoSelection or out of range.
func (h *Host) Calculate(sel registry.Selection, op1, op2 float64) (*CalculationResult, error) {
	entry, ok := h.registry.Lookup(sel)
	if !ok {
		return nil, ErrNoOperation
	}
	index, _ := sel.Index()

	return &CalculationResult{
		Index: index,
		Name:  entry.Name,
		Op1:   op1,
		Op2:   op2,
		Value: entry.Operation.Apply(op1, op2),
	}, nil
}
