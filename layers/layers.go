// Copyright 2025 Axon ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides the public API for trainable layers in the
// Axon ML framework.
//
// # Overview
//
// This package contains:
//   - CellularLayer: a forward cell paired with an automatic backward cell
//   - Layer factories: Dense, Conv2D, Softmax, RMSNorm, activations, LoRA
//   - ParameterUpdate strategies: Scaled, Adam, Disabled
//
// No layer implements its own backward pass. Each factory states its
// forward expression once and gradient propagation differentiates it
// symbolically, so the diagnostic and fast paths always agree.
//
// # Basic Usage
//
//	layer, err := layers.Dense(784, 128, true, layers.DefaultConfig())
//	if err != nil { ... }
//	layer.Learning(layers.Scaled(0.01))
package layers

import (
	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Config controls layer construction.
type Config = layers.Config

// DefaultConfig enables full input and output tracking with no
// diagnostics.
func DefaultConfig() Config {
	return layers.DefaultConfig()
}

// CellularLayer is a layer participating in the push dataflow with
// both forward and backward cells.
type CellularLayer = layers.CellularLayer

// DefaultCellularLayer is the standard CellularLayer implementation
// returned by the layer factories.
type DefaultCellularLayer = layers.DefaultCellularLayer

// NewLayer builds a layer from a forward expression. The backward
// pass is derived from the same expression.
func NewLayer(name string, inputShape tensor.Shape, weights []*Weight, init op.Operation,
	build func(x *expr.Variable) expr.Producer) (*DefaultCellularLayer, error) {
	return layers.NewLayer(name, inputShape, weights, init, build)
}

// Weight is a named trainable tensor.
type Weight = layers.Weight

// NewWeight wraps a buffer as a trainable weight.
func NewWeight(name string, buf *tensor.Tensor) *Weight {
	return layers.NewWeight(name, buf)
}

// Gradient propagation

// GradientPropagation computes weight and input gradients for one
// layer from its forward expression.
type GradientPropagation = layers.GradientPropagation

// NewGradientPropagation derives the backward pass of out with
// respect to in and each weight.
func NewGradientPropagation(name string, out expr.Producer, in *expr.Variable, weights []*Weight) *GradientPropagation {
	return layers.NewGradientPropagation(name, out, in, weights)
}

// BackPropagationCell receives output gradients and drives one
// layer's gradient propagation.
type BackPropagationCell = layers.BackPropagationCell

// NewBackPropagationCell wraps prop as a cell.
func NewBackPropagationCell(name string, prop *GradientPropagation) *BackPropagationCell {
	return layers.NewBackPropagationCell(name, prop)
}

// Diagnostics receives materialized gradients during a backward pass.
type Diagnostics = layers.Diagnostics

// GradientDiagnostics records every gradient it sees, keyed by name.
type GradientDiagnostics = layers.GradientDiagnostics

// NewGradientDiagnostics creates an empty recorder.
func NewGradientDiagnostics() *GradientDiagnostics {
	return layers.NewGradientDiagnostics()
}

// Parameter updates

// ParameterUpdate turns a materialized gradient into an update
// operation for one weight tensor.
type ParameterUpdate = layers.ParameterUpdate

// UpdateOperator describes how a gradient becomes a weight delta.
type UpdateOperator = layers.UpdateOperator

// ScaleFactor multiplies gradients by factor before subtraction.
func ScaleFactor(factor expr.Producer) UpdateOperator {
	return layers.ScaleFactor(factor)
}

// GeneralOperator applies an arbitrary transform to the gradient
// before subtraction.
func GeneralOperator(fn func(expr.Producer) expr.Producer) UpdateOperator {
	return layers.GeneralOperator(fn)
}

// Scaled steps weights by lr times the gradient.
//
// Example:
//
//	layer.Learning(layers.Scaled(0.01))
func Scaled(lr float64) ParameterUpdate {
	return layers.Scaled(lr)
}

// ScaledBy steps weights by a produced factor times the gradient.
func ScaledBy(factor expr.Producer) ParameterUpdate {
	return layers.ScaledBy(factor)
}

// Of applies one operator to every weight.
func Of(operator UpdateOperator) ParameterUpdate {
	return layers.Of(operator)
}

// Disabled leaves weights untouched.
func Disabled() ParameterUpdate {
	return layers.Disabled()
}

// AdamOptimizer is a ParameterUpdate implementing Adam with bias
// correction and per-weight moment state.
type AdamOptimizer = layers.AdamOptimizer

// NewAdamOptimizer creates an Adam update.
//
// Example:
//
//	update := layers.NewAdamOptimizer(0.001, 0.9, 0.999)
func NewAdamOptimizer(lr, beta1, beta2 float64) *AdamOptimizer {
	return layers.NewAdamOptimizer(lr, beta1, beta2)
}

// Layer factories

// Dense creates a fully connected layer, out = Wx (+ b).
//
// Example:
//
//	layer := layers.Dense(784, 128, true, layers.DefaultConfig())
func Dense(in, out int, bias bool, cfg Config) (*DefaultCellularLayer, error) {
	return layers.Dense(in, out, bias, cfg)
}

// MatMulLayer creates a dense layer over existing weights with no
// bias.
func MatMulLayer(weights *tensor.Tensor, cfg Config) (*DefaultCellularLayer, error) {
	return layers.MatMulLayer(weights, cfg)
}

// Conv2D creates a valid 2D convolution layer over an h x w input
// with filterCount size x size filters.
//
// Example:
//
//	layer := layers.Conv2D(28, 28, 3, 8, layers.DefaultConfig())
func Conv2D(h, w, size, filterCount int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.Conv2D(h, w, size, filterCount, cfg)
}

// Softmax creates a softmax layer.
func Softmax(size int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.Softmax(size, cfg)
}

// LogSoftmax creates a log-softmax layer.
func LogSoftmax(size int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.LogSoftmax(size, cfg)
}

// ReLU creates a rectified linear activation layer.
func ReLU(size int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.ReLU(size, cfg)
}

// SiLU creates a sigmoid-weighted linear activation layer.
func SiLU(size int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.SiLU(size, cfg)
}

// Sigmoid creates a sigmoid activation layer.
func Sigmoid(size int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.Sigmoid(size, cfg)
}

// Tanh creates a tanh activation layer.
func Tanh(size int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.Tanh(size, cfg)
}

// GELU creates a Gaussian error linear activation layer.
func GELU(size int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.GELU(size, cfg)
}

// RMSNorm creates a root-mean-square normalization layer with a
// learned gain.
func RMSNorm(size int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.RMSNorm(size, cfg)
}

// GroupNorm creates a group normalization layer, optionally with
// learned gain and bias.
func GroupNorm(size, groups int, affine bool, cfg Config) (*DefaultCellularLayer, error) {
	return layers.GroupNorm(size, groups, affine, cfg)
}

// Scale creates a layer multiplying its input by a constant.
func Scale(size int, factor float64, cfg Config) (*DefaultCellularLayer, error) {
	return layers.Scale(size, factor, cfg)
}

// Subset creates a layer extracting count contiguous elements
// starting at offset.
func Subset(inputShape tensor.Shape, offset, count int, cfg Config) (*DefaultCellularLayer, error) {
	return layers.Subset(inputShape, offset, count, cfg)
}

// Accum creates a layer adding a produced value onto its input.
func Accum(size int, value expr.Producer, cfg Config) (*DefaultCellularLayer, error) {
	return layers.Accum(size, value, cfg)
}

// Product creates a layer multiplying its input by a produced value.
func Product(size int, value expr.Producer, cfg Config) (*DefaultCellularLayer, error) {
	return layers.Product(size, value, cfg)
}

// AccumCell creates a layer adding the captured output of another
// cell onto its input.
func AccumCell(size int, value graph.Cell, cfg Config) (*DefaultCellularLayer, error) {
	return layers.AccumCell(size, value, cfg)
}

// ProductCells creates a layer multiplying the captured outputs of
// two cells.
func ProductCells(size int, a, b graph.Cell, cfg Config) (*DefaultCellularLayer, error) {
	return layers.ProductCells(size, a, b, cfg)
}

// LoRALayer is a dense layer with frozen base weights and a trainable
// low-rank adapter.
type LoRALayer = layers.LoRALayer

// LoRALinear creates a low-rank adapter over frozen base weights.
//
// Example:
//
//	layer := layers.LoRALinear(w, b, 8, 16, layers.DefaultConfig())
func LoRALinear(baseWeights, baseBias *tensor.Tensor, rank int, alpha float64, cfg Config) (*LoRALayer, error) {
	return layers.LoRALinear(baseWeights, baseBias, rank, alpha, cfg)
}
