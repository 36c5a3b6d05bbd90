// Package graph implements the push dataflow connecting layers.
//
// Values move through a network as symbolic producers pushed from
// cells to receptors. A push never computes anything: it returns a
// deferred operation that performs the propagation when run. Wiring is
// therefore separate from execution, and one wiring can be executed
// many times.
//
// This package provides:
//   - Receptor: consumes pushed values
//   - Cell: a Receptor with a setup phase and a downstream outlet
//   - ReceptorSlot: holds at most one downstream receptor
//   - CellOf, ReceptorFunc, Into: adapters for plain functions and
//     destination buffers
//   - CaptureReceptor: records a pushed value for use as an operand
//   - Accumulator: joins forked dataflow by summing branch pushes
//   - CSVReceptor: streams pushed values as CSV rows
package graph

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Receptor consumes values pushed from upstream.
type Receptor interface {
	// Push accepts a produced value and returns the deferred work
	// that consumes it.
	Push(value expr.Producer) (op.Operation, error)
}

// Cell is a Receptor with a setup phase and a downstream outlet.
type Cell interface {
	Receptor

	// Setup returns one-time preparation work (weight initialization,
	// buffer reset). It must run before the first Push.
	Setup() (op.Operation, error)

	// SetReceptor directs the cell's output downstream.
	SetReceptor(r Receptor)
}

// ReceptorFunc adapts a function to the Receptor interface.
type ReceptorFunc func(value expr.Producer) (op.Operation, error)

func (f ReceptorFunc) Push(value expr.Producer) (op.Operation, error) {
	return f(value)
}

// Into returns a Receptor that assigns every pushed value into dst.
func Into(label string, dst *tensor.Tensor) Receptor {
	return ReceptorFunc(func(value expr.Producer) (op.Operation, error) {
		if value.Shape().NumElements() != dst.NumElements() {
			return nil, fmt.Errorf("graph: cannot receive %v into %s buffer %v",
				value.Shape(), label, dst.Shape())
		}
		return expr.Assign(label, dst, value), nil
	})
}

// CellOf builds a Cell from a transform applied to each pushed value.
// The transformed value is forwarded to the cell's receptor.
func CellOf(name string, transform func(expr.Producer) expr.Producer) Cell {
	return &funcCell{name: name, transform: transform}
}

type funcCell struct {
	name      string
	out       ReceptorSlot
	transform func(expr.Producer) expr.Producer
}

func (c *funcCell) Setup() (op.Operation, error) {
	return op.Nop(), nil
}

func (c *funcCell) Push(value expr.Producer) (op.Operation, error) {
	return c.out.Push(c.transform(value))
}

func (c *funcCell) SetReceptor(r Receptor) {
	c.out.Name = c.name
	c.out.Set(r)
}
