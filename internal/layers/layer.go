// Package layers builds trainable network layers from forward
// operators.
//
// A layer couples one expression, its forward operator, with:
//
//   - a forward Cell recording the input, evaluating the operator into
//     the output buffer and pushing it downstream
//   - a backward Cell propagating gradients through the same operator,
//     so no layer carries a hand-written backward pass
//   - the weight tensors bound into the operator, updated in place by
//     a pluggable ParameterUpdate
//
// Example usage:
//
//	layer, err := layers.Dense(4, 2, false, layers.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	layer.Learning(layers.Scaled(0.1))
package layers

import (
	"fmt"
	"math/rand"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Config carries construction options for layers.
type Config struct {
	// InputTracking records the forward input, which the backward
	// pass evaluates its Jacobians against. It requires
	// OutputTracking.
	InputTracking bool

	// OutputTracking records the forward output, required for
	// observers and for reading the output buffer after a pass.
	OutputTracking bool

	// Diagnostics, when set, materializes Jacobians and pre-update
	// weight gradients during backward passes.
	Diagnostics Diagnostics

	// Rand seeds weight initialization. Factories fall back to a
	// fixed-seed source when nil.
	Rand *rand.Rand
}

// DefaultConfig enables full tracking with no diagnostics.
func DefaultConfig() Config {
	return Config{InputTracking: true, OutputTracking: true}
}

func (c Config) rng() *rand.Rand {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.New(rand.NewSource(42))
}

// CellularLayer is a composable trainable unit.
type CellularLayer interface {
	Name() string
	InputShape() tensor.Shape
	OutputShape() tensor.Shape

	// Forward returns the cell evaluating the layer. Pushing a value
	// into it yields the deferred forward work.
	Forward() graph.Cell

	// Backward returns the cell receiving output gradients, or nil
	// when the layer was built without input tracking.
	Backward() graph.Cell

	// Weights returns the trainable weight tensors, pinned and frozen
	// ones excluded.
	Weights() []*tensor.Tensor

	// Setup returns the weight initialization work.
	Setup() (op.Operation, error)

	// Learning assigns the update strategy for trainable weights.
	Learning(update ParameterUpdate)

	// Append attaches an observer receiving the recorded output after
	// each forward pass. Requires output tracking.
	Append(r graph.Receptor) error
}

// DefaultCellularLayer derives both passes of a layer from a single
// forward operator. Build one with NewLayer, then wire it with Init;
// the factory functions in this package do both.
type DefaultCellularLayer struct {
	name    string
	inShape tensor.Shape
	inBuf   *tensor.Tensor
	inVar   *expr.Variable
	out     expr.Producer
	weights []*Weight
	init    op.Operation
	prop    *GradientPropagation

	initialized    bool
	inputTracking  bool
	outputTracking bool
	outBuf         *tensor.Tensor
	fw             *forwardCell
	bw             *BackPropagationCell
	monitor        graph.ReceptorSlot
	observers      []graph.Receptor
}

// NewLayer builds an unwired layer. build receives the Variable bound
// to the layer's input buffer and returns the forward operator over it
// and the given weights; init initializes the weight tensors when the
// layer is set up. The returned layer must be wired with Init before
// use.
func NewLayer(name string, inputShape tensor.Shape, weights []*Weight, init op.Operation,
	build func(in *expr.Variable) expr.Producer) (*DefaultCellularLayer, error) {
	if err := inputShape.Validate(); err != nil {
		return nil, fmt.Errorf("layers: %s: %w", name, err)
	}
	inBuf := tensor.New(inputShape)
	inVar := expr.Var(name+".input", inBuf)
	out := build(inVar)
	if out == nil || out.Shape().NumElements() == 0 {
		return nil, fmt.Errorf("layers: %s: forward operator has no inferable output shape", name)
	}
	if init == nil {
		init = op.Nop()
	}
	l := &DefaultCellularLayer{
		name:    name,
		inShape: inputShape.Clone(),
		inBuf:   inBuf,
		inVar:   inVar,
		out:     out,
		weights: weights,
		init:    init,
		prop:    NewGradientPropagation(name, out, inVar, weights),
	}
	return l, nil
}

// Init wires the layer's cells and tracking buffers. It may run only
// once; input tracking without output tracking is rejected, because
// the backward pass reads the recorded buffers the output side owns.
func (l *DefaultCellularLayer) Init(cfg Config) error {
	if l.initialized {
		return fmt.Errorf("layers: %s: already initialized", l.name)
	}
	if cfg.InputTracking && !cfg.OutputTracking {
		return fmt.Errorf("layers: %s: input tracking requires output tracking", l.name)
	}
	l.initialized = true
	l.inputTracking = cfg.InputTracking
	l.outputTracking = cfg.OutputTracking
	if cfg.OutputTracking {
		l.outBuf = tensor.New(l.out.Shape())
	}
	if cfg.Diagnostics != nil {
		l.prop.SetDiagnostics(cfg.Diagnostics)
	}
	l.monitor.Name = l.name + ".monitor"
	l.fw = &forwardCell{layer: l}
	l.fw.out.Name = l.name
	if cfg.InputTracking {
		l.bw = NewBackPropagationCell(l.name+".backward", l.prop)
	}
	return nil
}

func (l *DefaultCellularLayer) Name() string { return l.name }

func (l *DefaultCellularLayer) InputShape() tensor.Shape { return l.inShape }

func (l *DefaultCellularLayer) OutputShape() tensor.Shape { return l.out.Shape() }

// Forward returns the forward cell, nil before Init.
func (l *DefaultCellularLayer) Forward() graph.Cell {
	if l.fw == nil {
		return nil
	}
	return l.fw
}

// Backward returns the backward cell, nil before Init or when input
// tracking is off.
func (l *DefaultCellularLayer) Backward() graph.Cell {
	if l.bw == nil {
		return nil
	}
	return l.bw
}

// Weights returns the trainable weight tensors in propagation order.
// Pinned weights, frozen ones included, are excluded.
func (l *DefaultCellularLayer) Weights() []*tensor.Tensor {
	var ts []*tensor.Tensor
	for _, w := range l.weights {
		if w.Pinned() {
			continue
		}
		ts = append(ts, w.Tensor())
	}
	return ts
}

// Setup returns the weight initialization work.
func (l *DefaultCellularLayer) Setup() (op.Operation, error) {
	if !l.initialized {
		return nil, fmt.Errorf("layers: %s: not initialized", l.name)
	}
	return l.init, nil
}

// Learning assigns the update strategy for unfrozen weights.
func (l *DefaultCellularLayer) Learning(update ParameterUpdate) {
	l.prop.SetParameterUpdate(update)
}

// Append attaches an observer pushed the recorded output after the
// main forward work of each pass.
func (l *DefaultCellularLayer) Append(r graph.Receptor) error {
	if !l.outputTracking {
		return fmt.Errorf("layers: %s: observers require output tracking", l.name)
	}
	l.observers = append(l.observers, r)
	return nil
}

// SetMonitor attaches the receptor pushed the recorded output right
// after it is written, before observers run. Requires output tracking.
func (l *DefaultCellularLayer) SetMonitor(r graph.Receptor) error {
	if !l.outputTracking {
		return fmt.Errorf("layers: %s: monitor requires output tracking", l.name)
	}
	l.monitor.Set(r)
	return nil
}

// Input returns the recorded input buffer.
func (l *DefaultCellularLayer) Input() *tensor.Tensor { return l.inBuf }

// Output returns the recorded output buffer, nil without output
// tracking.
func (l *DefaultCellularLayer) Output() *tensor.Tensor { return l.outBuf }

// SetForwardInput primes the recorded input buffer directly, for
// driving the backward cell without a prior forward push.
func (l *DefaultCellularLayer) SetForwardInput(t *tensor.Tensor) error {
	if err := l.inBuf.CopyFrom(t); err != nil {
		return fmt.Errorf("layers: %s: %w", l.name, err)
	}
	return nil
}

// forwardCell records the input, evaluates the operator into the
// output buffer and pushes the result downstream.
type forwardCell struct {
	layer *DefaultCellularLayer
	out   graph.ReceptorSlot
}

func (c *forwardCell) Setup() (op.Operation, error) {
	return op.Nop(), nil
}

func (c *forwardCell) SetReceptor(r graph.Receptor) {
	c.out.Set(r)
}

func (c *forwardCell) Push(v expr.Producer) (op.Operation, error) {
	l := c.layer
	if !l.initialized {
		return nil, fmt.Errorf("layers: %s: not initialized", l.name)
	}
	if v.Shape().NumElements() != l.inBuf.NumElements() {
		return nil, fmt.Errorf("layers: %s: input %v does not match %v",
			l.name, v.Shape(), l.inShape)
	}

	var ops op.List
	ops.Add(expr.Assign(l.name+".input", l.inBuf, v))
	if !l.outputTracking {
		push, err := c.out.Push(l.out)
		if err != nil {
			return nil, err
		}
		ops.Add(push)
		return ops, nil
	}

	ops.Add(expr.Assign(l.name+".output", l.outBuf, l.out))
	outVal := expr.Var(l.name+".output", l.outBuf)
	monitor, err := l.monitor.Push(outVal)
	if err != nil {
		return nil, err
	}
	ops.Add(monitor)
	for _, r := range l.observers {
		observe, err := r.Push(outVal)
		if err != nil {
			return nil, err
		}
		ops.Add(observe)
	}
	push, err := c.out.Push(outVal)
	if err != nil {
		return nil, err
	}
	ops.Add(push)
	return ops, nil
}
