// Package plugin provides the arithmetic operation contract and the machinery
// that turns files on disk into operations: directory discovery and a chain of
// loader backends (native Go plugins, raw WASM modules, Extism modules).
package plugin

// Operation defines the interface that every operation, built-in or loaded
// from a module, must implement.
//
// Operations are pure two-argument numeric functions. The contract does not
// define numeric error handling: NaN or Inf on invalid input is acceptable and
// nothing in this package validates results.
type Operation interface {
	// Name returns the human-readable label of the operation, such as
	// "addition (+)". It is non-empty and must not change after construction.
	Name() string

	// Apply computes the operation for the two operands.
	Apply(op1, op2 float64) float64
}

// Factory is the type a native plugin's exported factory symbol must have.
type Factory func() Operation

// FactorySymbol is the name of the single symbol looked up in a native plugin.
//
// A plugin exports it as:
//
//	func NewOperation() plugin.Operation {
//	    return &Multiplication{}
//	}
const FactorySymbol = "NewOperation"
