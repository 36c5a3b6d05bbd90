// Package expr implements symbolic tensor expressions with reverse-mode
// differentiation.
//
// A Producer describes a tensor-valued computation over named Variables.
// Evaluation is strict: compute nodes allocate a fresh output tensor on
// every call, while Var returns its live backing buffer, so a producer
// can be re-evaluated after the buffers behind its variables change.
//
// Differentiation is symbolic. Delta returns another Producer computing
// the Jacobian of the flattened output with respect to one Variable, as
// a 2-D producer of shape [output elements, variable elements]. Grad
// contracts that Jacobian with an output gradient, so the materialized
// Jacobian and the fast gradient path always agree: they evaluate the
// same nodes.
//
// This package provides:
//   - Leaves: Var, Const, Scalar, Zeros, Identity
//   - Arithmetic: Add, Sub, Mul, Div, Neg, Scale
//   - Element-wise: Exp, Log, Sqrt, Pow, Sigmoid, Tanh, ReLU, SiLU, GELU
//   - Reductions: Sum, Mean
//   - Structure: Reshape, Transpose, Slice, Concat, Repeat
//   - Linear algebra: MatMul, Conv2D
//   - Differentiation: Delta (Jacobian), Grad (vector-Jacobian product)
//   - Deferred commands: Assign, AddAssign
//
// Example usage:
//
//	x := expr.Var("x", tensor.Vector(1, 2, 3))
//	y := expr.Mul(x, x)
//	g := expr.Grad(y, x, expr.Const(tensor.Vector(1, 1, 1)))
//	fmt.Println(g.Evaluate().Data()) // [2 4 6]
package expr

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// Producer is a tensor-valued expression node.
//
// Shape describes the output without evaluating. Evaluate computes the
// value; compute nodes never mutate their inputs and allocate fresh
// outputs. Delta returns the Jacobian of the flattened output with
// respect to the flattened variable, always 2-D with shape
// [out elements, variable elements].
//
// Shape agreement is checked by constructors, which panic on mismatch:
// a malformed expression is a programmer error, not a runtime
// condition. Element counts are what must agree for element-wise
// operations; a [4] operand combines with a [2, 2] operand.
type Producer interface {
	Shape() tensor.Shape
	Evaluate() *tensor.Tensor
	Delta(wrt *Variable) Producer
}

// Grad returns the gradient of out with respect to wrt, given the
// gradient of some scalar objective with respect to out.
//
// It is defined as the contraction of out.Delta(wrt) with outGrad:
// grad_m = sum_n jacobian[n, m] * outGrad_n. Materializing the Jacobian
// and multiplying it out therefore yields exactly the values Grad
// produces.
func Grad(out Producer, wrt *Variable, outGrad Producer) Producer {
	if outGrad.Shape().NumElements() != out.Shape().NumElements() {
		panic(fmt.Sprintf("expr: gradient shape %v does not match output shape %v",
			outGrad.Shape(), out.Shape()))
	}
	d := out.Delta(wrt)
	if isZero(d) {
		return Zeros(wrt.Tensor().Shape())
	}
	return contract(d, outGrad, wrt.Tensor().Shape())
}

// sameCount panics unless both operands hold the same number of
// elements.
func sameCount(op string, a, b Producer) {
	if a.Shape().NumElements() != b.Shape().NumElements() {
		panic(fmt.Sprintf("expr: %s operands have incompatible shapes %v and %v",
			op, a.Shape(), b.Shape()))
	}
}
