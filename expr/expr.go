// Copyright 2025 Axon ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package expr provides the public API for the symbolic expression
// graph in the Axon ML framework.
//
// A Producer describes a tensor-valued computation without running
// it. Expressions evaluate on demand, differentiate symbolically
// through Delta and Grad, and read live buffers through Var, so one
// built expression tracks buffer contents across repeated runs.
//
// Example:
//
//	x := expr.Var("x", buf)
//	y := expr.Add(expr.MatMul(expr.Const(w), x), expr.Const(b))
//	out := y.Evaluate()
//	dw := expr.Grad(y, x, expr.Const(g))
package expr

import (
	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Producer describes a tensor-valued computation.
type Producer = expr.Producer

// Variable is a named reference to a live tensor buffer.
type Variable = expr.Variable

// Var creates a variable reading buf at evaluation time.
func Var(name string, buf *tensor.Tensor) *Variable {
	return expr.Var(name, buf)
}

// Const wraps a tensor as a fixed expression. The tensor is read at
// evaluation time but never differentiated through.
func Const(t *tensor.Tensor) Producer {
	return expr.Const(t)
}

// Scalar wraps a single value.
func Scalar(v float64) Producer {
	return expr.Scalar(v)
}

// Zeros produces a zero tensor of the given shape.
func Zeros(shape tensor.Shape) Producer {
	return expr.Zeros(shape)
}

// Identity produces the n x n identity matrix.
func Identity(n int) Producer {
	return expr.Identity(n)
}

// Arithmetic

// Add produces a + b elementwise. Single-element operands broadcast.
func Add(a, b Producer) Producer { return expr.Add(a, b) }

// Sub produces a - b elementwise.
func Sub(a, b Producer) Producer { return expr.Sub(a, b) }

// Mul produces a * b elementwise.
func Mul(a, b Producer) Producer { return expr.Mul(a, b) }

// Div produces a / b elementwise.
func Div(a, b Producer) Producer { return expr.Div(a, b) }

// Neg produces -a.
func Neg(a Producer) Producer { return expr.Neg(a) }

// Scale produces a * c for a constant factor.
func Scale(a Producer, c float64) Producer { return expr.Scale(a, c) }

// Pointwise functions

// Exp produces e^x elementwise.
func Exp(x Producer) Producer { return expr.Exp(x) }

// Log produces the natural log elementwise.
func Log(x Producer) Producer { return expr.Log(x) }

// Sqrt produces the square root elementwise.
func Sqrt(x Producer) Producer { return expr.Sqrt(x) }

// Pow produces x^k elementwise for a constant exponent.
func Pow(x Producer, k float64) Producer { return expr.Pow(x, k) }

// Sigmoid produces 1 / (1 + e^-x) elementwise.
func Sigmoid(x Producer) Producer { return expr.Sigmoid(x) }

// Tanh produces tanh(x) elementwise.
func Tanh(x Producer) Producer { return expr.Tanh(x) }

// ReLU produces max(0, x) elementwise.
func ReLU(x Producer) Producer { return expr.ReLU(x) }

// SiLU produces x * sigmoid(x) elementwise.
func SiLU(x Producer) Producer { return expr.SiLU(x) }

// GELU produces the tanh-approximated Gaussian error linear unit.
func GELU(x Producer) Producer { return expr.GELU(x) }

// Reductions

// Sum produces the scalar sum of all elements.
func Sum(x Producer) Producer { return expr.Sum(x) }

// Mean produces the scalar mean of all elements.
func Mean(x Producer) Producer { return expr.Mean(x) }

// Structure

// Reshape reinterprets x with a new shape of equal element count.
func Reshape(x Producer, shape tensor.Shape) Producer {
	return expr.Reshape(x, shape)
}

// Transpose produces the matrix transpose of a 2D value.
func Transpose(x Producer) Producer { return expr.Transpose(x) }

// Slice produces count elements of the flattened x starting at start.
func Slice(x Producer, start, count int) Producer {
	return expr.Slice(x, start, count)
}

// Concat joins values along a new flat axis.
func Concat(xs ...Producer) Producer { return expr.Concat(xs...) }

// Repeat tiles x n times along a new leading axis.
func Repeat(x Producer, n int) Producer { return expr.Repeat(x, n) }

// Contractions

// MatMul produces the matrix product of a 2D value and a 1D or 2D
// value.
func MatMul(a, b Producer) Producer { return expr.MatMul(a, b) }

// Conv2D produces the valid 2D convolution of input with a filter
// bank.
func Conv2D(input, filters Producer) Producer {
	return expr.Conv2D(input, filters)
}

// Differentiation

// Grad produces the gradient of out with respect to wrt, contracted
// against outGrad: the vector-Jacobian product.
func Grad(out Producer, wrt *Variable, outGrad Producer) Producer {
	return expr.Grad(out, wrt, outGrad)
}

// Assignment

// Assign returns an operation writing src into dst on every run.
func Assign(label string, dst *tensor.Tensor, src Producer) op.Operation {
	return expr.Assign(label, dst, src)
}

// AddAssign returns an operation accumulating src into dst on every
// run.
func AddAssign(label string, dst *tensor.Tensor, src Producer) op.Operation {
	return expr.AddAssign(label, dst, src)
}
