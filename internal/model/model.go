package model

import (
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Model is a network assembled from blocks sharing one parameter
// update strategy. Build it with Add, then Compile it for execution.
type Model struct {
	root   *SequentialBlock
	update layers.ParameterUpdate
}

// New creates a model accepting input of the given shape. update
// configures training for every added block; nil builds an
// inference-only model.
func New(inputShape tensor.Shape, update layers.ParameterUpdate) *Model {
	return &Model{root: NewSequential(inputShape), update: update}
}

// Add appends a block to the model and applies the model's update
// strategy to its trainable weights, recursively for composite
// blocks.
func (m *Model) Add(b Block) error {
	if err := m.root.Add(b); err != nil {
		return err
	}
	if m.update != nil {
		if l, ok := b.(Learner); ok {
			l.Learning(m.update)
		}
	}
	return nil
}

// Root returns the model's top-level chain, for wiring branches and
// compositions before the enclosing blocks are added.
func (m *Model) Root() *SequentialBlock { return m.root }

func (m *Model) InputShape() tensor.Shape  { return m.root.InputShape() }
func (m *Model) OutputShape() tensor.Shape { return m.root.OutputShape() }

// Forward returns the model's entry cell.
func (m *Model) Forward() graph.Cell { return m.root.Forward() }

// Backward returns the model's gradient entry cell.
func (m *Model) Backward() graph.Cell { return m.root.Backward() }

// Setup aggregates the initialization work of every block.
func (m *Model) Setup() (op.Operation, error) { return m.root.Setup() }
