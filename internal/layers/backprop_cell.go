package layers

import (
	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/op"
)

// BackPropagationCell exposes a GradientPropagation as a Cell. Pushing
// an output gradient into it yields the backward work for one pass;
// the cell's receptor points upstream, toward the previous layer's
// backward cell, and receives the input gradient.
type BackPropagationCell struct {
	name string
	prop *GradientPropagation
	next graph.ReceptorSlot
}

// NewBackPropagationCell wraps prop as a cell named name.
func NewBackPropagationCell(name string, prop *GradientPropagation) *BackPropagationCell {
	return &BackPropagationCell{name: name, prop: prop, next: graph.ReceptorSlot{Name: name}}
}

// Propagation returns the wrapped propagation.
func (c *BackPropagationCell) Propagation() *GradientPropagation { return c.prop }

// SetParameterUpdate assigns the update strategy for the propagation's
// unfrozen weights.
func (c *BackPropagationCell) SetParameterUpdate(u ParameterUpdate) {
	c.prop.SetParameterUpdate(u)
}

func (c *BackPropagationCell) Setup() (op.Operation, error) {
	return op.Nop(), nil
}

// SetReceptor attaches the upstream receiver of the input gradient.
// Leaving it unset skips the input-gradient computation entirely.
func (c *BackPropagationCell) SetReceptor(r graph.Receptor) {
	c.next.Set(r)
}

func (c *BackPropagationCell) Push(grad expr.Producer) (op.Operation, error) {
	var next graph.Receptor
	if r, ok := c.next.Get(); ok {
		next = r
	}
	return c.prop.Propagate(grad, next)
}
