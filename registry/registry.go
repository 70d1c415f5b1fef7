package registry

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/joncooperworks/supercalc/plugin"
)

var (
	// ErrNilInstance is returned when registering a nil instance.
	ErrNilInstance = errors.New("instance cannot be nil")
	// ErrConsumed is returned when registering an instance whose operation has
	// already been taken.
	ErrConsumed = errors.New("instance already consumed")
	// ErrEmptyName is returned when an operation reports an empty name.
	ErrEmptyName = errors.New("operation name cannot be empty")
)

// Entry is one registered operation. Name is cached at registration.
type Entry struct {
	Name      string
	Operation plugin.Operation
	// Source is the module path the operation came from, or
	// plugin.SourceBuiltin.
	Source string
}

// ModuleLoader is the part of plugin.Chain that Reload needs.
type ModuleLoader interface {
	TryLoad(path string) (*plugin.Instance, bool)
}

// Options configures a Registry.
type Options struct {
	// Loader loads discovered candidates. Without one, Reload registers only
	// the built-in operations.
	Loader ModuleLoader
	// Sort makes discovery yield candidates in file-name order.
	Sort bool
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Registry is the ordered collection of active operations.
type Registry struct {
	loader ModuleLoader
	sort   bool
	logger *slog.Logger

	// mu serialises writers; readers only load entries.
	mu      sync.Mutex
	entries atomic.Pointer[[]Entry]
}

// New creates an empty registry.
func New(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		loader: opts.Loader,
		sort:   opts.Sort,
		logger: logger,
	}
	r.entries.Store(&[]Entry{})
	return r
}

// Reset removes every entry. Modules the operations came from stay loaded.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.Store(&[]Entry{})
}

// Register appends the instance's operation, taking ownership of it. The
// instance is empty afterwards.
func (r *Registry) Register(inst *plugin.Instance) error {
	entry, err := newEntry(inst)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current := *r.entries.Load()
	next := make([]Entry, len(current), len(current)+1)
	copy(next, current)
	next = append(next, entry)
	r.entries.Store(&next)
	return nil
}

func newEntry(inst *plugin.Instance) (Entry, error) {
	if inst == nil {
		return Entry{}, ErrNilInstance
	}
	op := inst.Operation()
	if op == nil {
		return Entry{}, ErrConsumed
	}
	// A rejected instance stays with the caller.
	name := op.Name()
	if name == "" {
		return Entry{}, ErrEmptyName
	}
	if _, ok := inst.Take(); !ok {
		return Entry{}, ErrConsumed
	}
	return Entry{Name: name, Operation: op, Source: inst.Source()}, nil
}

// Get returns the operation at index. Any index outside [0, Len()) is absent.
func (r *Registry) Get(index int) (plugin.Operation, bool) {
	entry, ok := r.Lookup(Select(index))
	if !ok {
		return nil, false
	}
	return entry.Operation, true
}

// Lookup returns the entry chosen by sel, if any.
func (r *Registry) Lookup(sel Selection) (Entry, bool) {
	index, ok := sel.Index()
	if !ok {
		return Entry{}, false
	}
	entries := *r.entries.Load()
	if index >= len(entries) {
		return Entry{}, false
	}
	return entries[index], true
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(*r.entries.Load())
}

// Names returns the cached names in registry order.
func (r *Registry) Names() []string {
	entries := *r.entries.Load()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of the entries in registry order.
func (r *Registry) Entries() []Entry {
	return slices.Clone(*r.entries.Load())
}
