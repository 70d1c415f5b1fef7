package plugin

import "sync"

// SourceBuiltin is the Source of operations compiled into the host.
const SourceBuiltin = "builtin"

// Instance is the sole owner of one Operation.
//
// Ownership moves out of an Instance exactly once, through Take. After that the
// Instance is empty: Operation returns nil and further Take calls report false.
// Loaders hand out Instances so that a registered operation can never also be
// held by the code that loaded it.
type Instance struct {
	mu     sync.Mutex
	op     Operation
	source string
	loader string
}

// Own wraps op in a new Instance. source describes where op came from (a file
// path, or SourceBuiltin).
func Own(op Operation, source string) *Instance {
	return &Instance{op: op, source: source}
}

// Operation returns the owned operation without transferring ownership, or nil
// once the instance has been taken.
func (i *Instance) Operation() Operation {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.op
}

// Take transfers ownership of the operation to the caller and empties the
// instance. It reports false if the instance was already taken.
func (i *Instance) Take() (Operation, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.op == nil {
		return nil, false
	}
	op := i.op
	i.op = nil
	return op, true
}

// Source returns the path of the module the operation was loaded from, or
// SourceBuiltin.
func (i *Instance) Source() string {
	return i.source
}

// Loader returns the kind of the loader backend that produced the operation.
// It is empty for built-in operations.
func (i *Instance) Loader() string {
	return i.loader
}
