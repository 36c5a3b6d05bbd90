package layers

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Weight couples a weight tensor with the Variable binding it into a
// layer's forward operator. The propagation differentiates the
// operator against the Variable and updates the tensor in place.
type Weight struct {
	name   string
	v      *expr.Variable
	pinned ParameterUpdate
}

// NewWeight wraps buf as a named weight.
func NewWeight(name string, buf *tensor.Tensor) *Weight {
	return &Weight{name: name, v: expr.Var(name, buf)}
}

func (w *Weight) Name() string { return w.name }

// Var returns the Variable to use when building the forward operator.
func (w *Weight) Var() *expr.Variable { return w.v }

// Tensor returns the live weight buffer.
func (w *Weight) Tensor() *tensor.Tensor { return w.v.Tensor() }

// Pin fixes the weight to its own update strategy. A pinned weight
// ignores later SetParameterUpdate calls on the propagation.
func (w *Weight) Pin(u ParameterUpdate) { w.pinned = u }

// Freeze pins the weight to the disabled update.
func (w *Weight) Freeze() { w.Pin(Disabled()) }

// Pinned reports whether the weight carries its own update strategy.
func (w *Weight) Pinned() bool { return w.pinned != nil }

// Frozen reports whether the weight is pinned to the disabled update.
func (w *Weight) Frozen() bool {
	_, ok := w.pinned.(disabled)
	return ok
}

// Diagnostics receives materialized Jacobians and pre-update weight
// gradients during backward passes. The recorded gradients are the
// same buffers the updates consume, so they match the applied values
// exactly.
type Diagnostics interface {
	RecordJacobian(weight string, jacobian *tensor.Tensor)
	RecordGradient(weight string, gradient *tensor.Tensor)
}

// GradientDiagnostics is a Diagnostics sink keeping the latest
// recorded tensors by weight name.
type GradientDiagnostics struct {
	Jacobians map[string]*tensor.Tensor
	Gradients map[string]*tensor.Tensor
}

// NewGradientDiagnostics returns an empty sink.
func NewGradientDiagnostics() *GradientDiagnostics {
	return &GradientDiagnostics{
		Jacobians: make(map[string]*tensor.Tensor),
		Gradients: make(map[string]*tensor.Tensor),
	}
}

func (d *GradientDiagnostics) RecordJacobian(weight string, jacobian *tensor.Tensor) {
	d.Jacobians[weight] = jacobian
}

func (d *GradientDiagnostics) RecordGradient(weight string, gradient *tensor.Tensor) {
	d.Gradients[weight] = gradient
}

// GradientPropagation derives the backward pass of a layer from its
// forward operator. Given an output gradient it builds, in order:
//
//  1. materialization of each trainable weight gradient into a buffer
//     owned by this backward call, evaluated against the pre-update
//     weights (diagnostics, when enabled, record the Jacobians and
//     these same buffers);
//  2. materialization of the input gradient, skipped entirely when no
//     upstream receptor is attached;
//  3. the weight update commands, consuming the materialized buffers;
//  4. the upstream push of the input gradient.
//
// Materializing before updating keeps gradients of interdependent
// weights consistent within one backward pass.
type GradientPropagation struct {
	name    string
	out     expr.Producer
	in      *expr.Variable
	weights []*Weight
	update  ParameterUpdate
	diag    Diagnostics
}

// NewGradientPropagation builds the propagation for a forward operator
// out computed from the input Variable in and the given weights.
func NewGradientPropagation(name string, out expr.Producer, in *expr.Variable, weights []*Weight) *GradientPropagation {
	return &GradientPropagation{name: name, out: out, in: in, weights: weights}
}

// SetParameterUpdate assigns the update strategy for unfrozen weights.
func (p *GradientPropagation) SetParameterUpdate(u ParameterUpdate) { p.update = u }

// SetDiagnostics attaches a sink for Jacobians and weight gradients.
// A nil sink disables the extra materialization.
func (p *GradientPropagation) SetDiagnostics(d Diagnostics) { p.diag = d }

// Weights returns the propagation weights, frozen ones included.
func (p *GradientPropagation) Weights() []*Weight { return p.weights }

// Propagate returns the deferred backward work for one output
// gradient. next receives the input gradient; a nil next skips the
// input-gradient work. Every unpinned weight requires a
// ParameterUpdate; a missing one is a configuration error.
func (p *GradientPropagation) Propagate(outGrad expr.Producer, next graph.Receptor) (op.Operation, error) {
	if outGrad.Shape().NumElements() != p.out.Shape().NumElements() {
		return nil, fmt.Errorf("layers: %s: output gradient %v does not match output %v",
			p.name, outGrad.Shape(), p.out.Shape())
	}
	for _, w := range p.weights {
		if !w.Pinned() && p.update == nil {
			return nil, fmt.Errorf("layers: %s: no parameter update for weight %s",
				p.name, w.Name())
		}
	}

	var ops op.List
	grads := make(map[*Weight]*tensor.Tensor)
	for _, w := range p.weights {
		if w.Frozen() && p.diag == nil {
			continue
		}
		if p.diag != nil {
			ops.Add(&recordJacobian{sink: p.diag, weight: w.Name(), jacobian: p.out.Delta(w.Var())})
		}
		buf := tensor.New(w.Tensor().Shape())
		ops.Add(expr.Assign(w.Name()+".gradient", buf, expr.Grad(p.out, w.Var(), outGrad)))
		if p.diag != nil {
			ops.Add(&recordGradient{sink: p.diag, weight: w.Name(), buf: buf})
		}
		grads[w] = buf
	}

	var inGrad *tensor.Tensor
	if next != nil {
		inGrad = tensor.New(p.in.Tensor().Shape())
		ops.Add(expr.Assign(p.name+".gradient", inGrad, expr.Grad(p.out, p.in, outGrad)))
	}

	for _, w := range p.weights {
		update := p.update
		if w.pinned != nil {
			update = w.pinned
		}
		buf, ok := grads[w]
		if !ok {
			continue
		}
		cmd, err := update.Apply(w.Name(), w.Tensor(), expr.Var(w.Name()+".gradient", buf))
		if err != nil {
			return nil, err
		}
		ops.Add(cmd)
	}

	if next != nil {
		push, err := next.Push(expr.Var(p.name+".gradient", inGrad))
		if err != nil {
			return nil, fmt.Errorf("layers: %s: push gradient upstream: %w", p.name, err)
		}
		ops.Add(push)
	}
	return ops, nil
}

// recordJacobian materializes a weight Jacobian into the diagnostics
// sink when run.
type recordJacobian struct {
	sink     Diagnostics
	weight   string
	jacobian expr.Producer
}

func (r *recordJacobian) Describe() string {
	return fmt.Sprintf("record jacobian %s", r.weight)
}

func (r *recordJacobian) Run() error {
	r.sink.RecordJacobian(r.weight, r.jacobian.Evaluate().Clone())
	return nil
}

// recordGradient hands the materialized weight gradient to the
// diagnostics sink. It runs after the gradient assignment and clones
// so the sink survives buffer reuse.
type recordGradient struct {
	sink   Diagnostics
	weight string
	buf    *tensor.Tensor
}

func (r *recordGradient) Describe() string {
	return fmt.Sprintf("record gradient %s", r.weight)
}

func (r *recordGradient) Run() error {
	r.sink.RecordGradient(r.weight, r.buf.Clone())
	return nil
}
