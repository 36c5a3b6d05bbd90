// Copyright 2025 Axon ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor shapes and buffers
// in the Axon ML framework.
//
// A Tensor is a dense float64 buffer with a row-major Shape. Buffers
// are plain, mutable storage; everything computed over them lives in
// the expr package.
//
// Example:
//
//	x := tensor.New(tensor.Of(2, 3))
//	x.Set(1.5, 0, 2)
//	y := tensor.Vector(1, 2, 3)
package tensor

import (
	"math/rand"

	"github.com/axon-ml/axon/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Of(2, 3, 4) is a 3D tensor with dimensions 2x3x4.
type Shape = tensor.Shape

// Of builds a shape from its dimensions.
func Of(dims ...int) Shape {
	return tensor.Of(dims...)
}

// Tensor is a dense float64 buffer with a shape.
type Tensor = tensor.Tensor

// New creates a zero-filled tensor of the given shape.
func New(shape Shape) *Tensor {
	return tensor.New(shape)
}

// FromSlice creates a tensor over a copy of data.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Vector creates a 1D tensor from its arguments.
//
// Example:
//
//	v := tensor.Vector(1, 2, 3)  // shape [3]
func Vector(values ...float64) *Tensor {
	return tensor.Vector(values...)
}

// Randn creates a tensor with entries drawn from N(0, std^2).
func Randn(shape Shape, std float64, rng *rand.Rand) *Tensor {
	return tensor.Randn(shape, std, rng)
}
