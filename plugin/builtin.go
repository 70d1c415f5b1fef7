package plugin

// Addition adds its operands.
type Addition struct{}

// Name returns "addition (+)".
func (Addition) Name() string {
	return "addition (+)"
}

// Apply returns op1 + op2.
func (Addition) Apply(op1, op2 float64) float64 {
	return op1 + op2
}

// Subtraction subtracts the second operand from the first.
type Subtraction struct{}

// Name returns "subtraction (-)".
func (Subtraction) Name() string {
	return "subtraction (-)"
}

// Apply returns op1 - op2.
func (Subtraction) Apply(op1, op2 float64) float64 {
	return op1 - op2
}

// Builtins returns fresh instances of the statically compiled operations, in
// the order they must occupy the first registry slots.
func Builtins() []*Instance {
	return []*Instance{
		Own(Addition{}, SourceBuiltin),
		Own(Subtraction{}, SourceBuiltin),
	}
}
