package model

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// CompiledModel executes a model against fixed buffers. Compiling
// builds the forward and backward operation sequences once; every
// pass afterwards copies data into the input buffers and reruns them.
type CompiledModel struct {
	inputShape  tensor.Shape
	outputShape tensor.Shape

	input   *tensor.Tensor
	output  *tensor.Tensor
	gradIn  *tensor.Tensor
	gradOut *tensor.Tensor

	setup    op.Operation
	forward  op.Operation
	backward op.Operation
}

// Compile freezes the model's wiring into reusable operations and
// runs its setup. backprop builds the backward pass; returnGradient
// additionally materializes the gradient with respect to the model
// input on every backward pass. Blocks added after compilation are
// not part of the compiled passes.
func (m *Model) Compile(backprop, returnGradient bool) (*CompiledModel, error) {
	c := &CompiledModel{
		inputShape:  m.InputShape().Clone(),
		outputShape: m.OutputShape().Clone(),
	}
	c.input = tensor.New(c.inputShape)
	c.output = tensor.New(c.outputShape)

	m.root.Forward().SetReceptor(graph.Into("model output", c.output))

	setup, err := m.Setup()
	if err != nil {
		return nil, err
	}
	c.setup = setup

	forward, err := m.root.Forward().Push(expr.Var("model input", c.input))
	if err != nil {
		return nil, err
	}
	c.forward = forward

	if backprop {
		c.gradIn = tensor.New(c.outputShape)
		if returnGradient {
			c.gradOut = tensor.New(c.inputShape)
			m.root.Backward().SetReceptor(graph.Into("model gradient", c.gradOut))
		}
		backward, err := m.root.Backward().Push(expr.Var("model gradient", c.gradIn))
		if err != nil {
			return nil, err
		}
		c.backward = backward
	}

	if err := c.setup.Run(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CompiledModel) InputShape() tensor.Shape  { return c.inputShape }
func (c *CompiledModel) OutputShape() tensor.Shape { return c.outputShape }

// Forward runs one forward pass. The returned tensor is the model's
// live output buffer; the next pass overwrites it.
func (c *CompiledModel) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if input.NumElements() != c.input.NumElements() {
		return nil, fmt.Errorf("model: provided %v input when %v was expected",
			input.Shape(), c.inputShape)
	}
	copy(c.input.Data(), input.Data())
	if err := c.forward.Run(); err != nil {
		return nil, err
	}
	return c.output, nil
}

// Backward runs one backward pass, updating weights along the way.
// The returned tensor is the live input-gradient buffer when the
// model was compiled with returnGradient, nil otherwise.
func (c *CompiledModel) Backward(gradient *tensor.Tensor) (*tensor.Tensor, error) {
	if c.backward == nil {
		return nil, fmt.Errorf("model: compiled without backprop")
	}
	if gradient.NumElements() != c.gradIn.NumElements() {
		return nil, fmt.Errorf("model: provided %v gradient when %v was expected",
			gradient.Shape(), c.outputShape)
	}
	copy(c.gradIn.Data(), gradient.Data())
	if err := c.backward.Run(); err != nil {
		return nil, err
	}
	return c.gradOut, nil
}

// Reset reruns the model's setup, reinitializing weights and clearing
// join buffers.
func (c *CompiledModel) Reset() error {
	return c.setup.Run()
}
