package layers

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// ParameterUpdate maps an accumulated weight gradient to an in-place
// mutation of the weight tensor.
//
// Apply returns the deferred command performing the mutation; nothing
// changes until the command runs. Implementations may keep per-tensor
// state (Adam's moments), keyed by the weight tensor instance.
type ParameterUpdate interface {
	Apply(name string, weights *tensor.Tensor, gradient expr.Producer) (op.Operation, error)
}

// UpdateOperator transforms a weight gradient into the step subtracted
// from the weights. It is a tagged variant: either a plain scale
// factor or a general expression transform. The scale variant is the
// common case and multiplies without building a transform expression.
type UpdateOperator struct {
	kind   updateOperatorKind
	factor expr.Producer
	fn     func(expr.Producer) expr.Producer
}

type updateOperatorKind int

const (
	scaleFactorKind updateOperatorKind = iota + 1
	generalOperatorKind
)

// ScaleFactor returns the variant multiplying gradients by a
// single-element factor, usually a learning rate.
func ScaleFactor(factor expr.Producer) UpdateOperator {
	if factor.Shape().NumElements() != 1 {
		panic(fmt.Sprintf("layers: scale factor must be a single element, got %v",
			factor.Shape()))
	}
	return UpdateOperator{kind: scaleFactorKind, factor: factor}
}

// GeneralOperator returns the variant applying an arbitrary transform
// to the gradient.
func GeneralOperator(fn func(expr.Producer) expr.Producer) UpdateOperator {
	if fn == nil {
		panic("layers: nil update operator transform")
	}
	return UpdateOperator{kind: generalOperatorKind, fn: fn}
}

// Step maps a gradient to the step to subtract, dispatching on the
// variant.
func (u UpdateOperator) Step(gradient expr.Producer) expr.Producer {
	switch u.kind {
	case scaleFactorKind:
		return expr.Mul(gradient, u.factor)
	case generalOperatorKind:
		return u.fn(gradient)
	}
	panic("layers: update operator not initialized")
}

// Scaled returns the plain update weights -= lr * gradient.
func Scaled(lr float64) ParameterUpdate {
	return ScaledBy(expr.Scalar(lr))
}

// ScaledBy generalizes Scaled to a produced factor, re-evaluated on
// every step. A learning-rate schedule is a factor reading a mutable
// buffer.
func ScaledBy(factor expr.Producer) ParameterUpdate {
	return Of(ScaleFactor(factor))
}

// Of builds the update weights -= operator(gradient).
func Of(operator UpdateOperator) ParameterUpdate {
	return &operatorUpdate{operator: operator}
}

type operatorUpdate struct {
	operator UpdateOperator
}

func (u *operatorUpdate) Apply(name string, weights *tensor.Tensor, gradient expr.Producer) (op.Operation, error) {
	if gradient.Shape().NumElements() != weights.NumElements() {
		return nil, fmt.Errorf("layers: gradient %v does not match weights %s %v",
			gradient.Shape(), name, weights.Shape())
	}
	step := u.operator.Step(gradient)
	if step.Shape().NumElements() != weights.NumElements() {
		return nil, fmt.Errorf("layers: update step %v does not match weights %s %v",
			step.Shape(), name, weights.Shape())
	}
	w := expr.Var(name, weights)
	return expr.Assign(name, weights, expr.Sub(w, step)), nil
}

// Disabled returns the update that leaves weights untouched. Frozen
// weights, such as the LoRA base projection, use it.
func Disabled() ParameterUpdate {
	return disabled{}
}

type disabled struct{}

func (disabled) Apply(name string, weights *tensor.Tensor, gradient expr.Producer) (op.Operation, error) {
	return op.Nop(), nil
}
