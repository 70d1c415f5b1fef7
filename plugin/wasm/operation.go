package wasm

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// Operation is one instance created by a module's factory.
type Operation struct {
	module *module
	ctx    context.Context
	handle int32
	name   string
}

// Name returns the name the instance reported when it was created.
func (o *Operation) Name() string {
	return o.name
}

// Apply calls the module's apply export for this instance. A trap inside the
// module yields NaN.
func (o *Operation) Apply(op1, op2 float64) float64 {
	o.module.mu.Lock()
	defer o.module.mu.Unlock()

	results, err := o.module.apply.Call(o.ctx, api.EncodeI32(o.handle), api.EncodeF64(op1), api.EncodeF64(op2))
	if err != nil {
		return math.NaN()
	}
	return api.DecodeF64(results[0])
}
