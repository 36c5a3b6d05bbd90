// Package model assembles layers into trainable networks.
//
// A network is a chain of blocks. Each block exposes a forward cell
// receiving values and a backward cell receiving output gradients, so
// layers plug in directly and larger structures (sequences, branches,
// compositions) are themselves blocks. Model wires a chain to one
// parameter update strategy and compiles it into reusable forward and
// backward operations over fixed buffers.
package model

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Block is one composable stage of a network.
type Block interface {
	InputShape() tensor.Shape
	OutputShape() tensor.Shape

	// Forward returns the cell values are pushed into.
	Forward() graph.Cell

	// Backward returns the cell output gradients are pushed into, or
	// nil when the block has no backward pass.
	Backward() graph.Cell

	// Setup returns the block's initialization work.
	Setup() (op.Operation, error)
}

// Learner is implemented by blocks that accept an update strategy for
// their trainable weights. Composite blocks forward it to their
// members.
type Learner interface {
	Learning(update layers.ParameterUpdate)
}

// Layer builds a weightless layer from a forward transform, wired and
// ready to add to a block.
func Layer(name string, shape tensor.Shape, cfg layers.Config,
	fn func(in expr.Producer) expr.Producer) (*layers.DefaultCellularLayer, error) {
	l, err := layers.NewLayer(name, shape, nil, op.Nop(),
		func(in *expr.Variable) expr.Producer { return fn(in) })
	if err != nil {
		return nil, err
	}
	if err := l.Init(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// NewReshape returns a block reinterpreting values of shape in as
// shape out. The element count must not change.
func NewReshape(in, out tensor.Shape) (Block, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("model: reshape: %w", err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("model: reshape: %w", err)
	}
	if in.NumElements() != out.NumElements() {
		return nil, fmt.Errorf("model: cannot reshape %v into %v", in, out)
	}
	b := &reshapeBlock{in: in.Clone(), out: out.Clone()}
	b.fw = graph.CellOf("reshape", func(v expr.Producer) expr.Producer {
		return expr.Reshape(v, b.out)
	})
	b.bw = graph.CellOf("reshape gradient", func(v expr.Producer) expr.Producer {
		return expr.Reshape(v, b.in)
	})
	return b, nil
}

type reshapeBlock struct {
	in, out tensor.Shape
	fw, bw  graph.Cell
}

func (b *reshapeBlock) InputShape() tensor.Shape  { return b.in }
func (b *reshapeBlock) OutputShape() tensor.Shape { return b.out }
func (b *reshapeBlock) Forward() graph.Cell       { return b.fw }
func (b *reshapeBlock) Backward() graph.Cell      { return b.bw }

func (b *reshapeBlock) Setup() (op.Operation, error) {
	return op.Nop(), nil
}
