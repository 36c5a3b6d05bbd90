// Copyright 2025 Axon ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package model provides the public API for assembling layers into
// trainable networks in the Axon ML framework.
//
// # Overview
//
// This package contains:
//   - Block: the composable unit a network is assembled from
//   - SequentialBlock: a chain of blocks with branching and composition
//   - Model: a chain bound to one parameter update strategy
//   - CompiledModel: reusable forward and backward passes over fixed buffers
//
// # Basic Usage
//
//	m := model.New(tensor.Of(784), layers.NewAdamOptimizer(0.001, 0.9, 0.999))
//	m.Add(layers.Dense(784, 128, true, cfg))
//	m.Add(layers.Sigmoid(128, cfg))
//	compiled, err := m.Compile(true, false)
//	out, err := compiled.Forward(x)
//	_, err = compiled.Backward(lossGradient)
package model

import (
	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/model"
	"github.com/axon-ml/axon/internal/tensor"
)

// Block is one composable stage of a network.
type Block = model.Block

// Learner is implemented by blocks that accept an update strategy for
// their trainable weights.
type Learner = model.Learner

// Layer builds a weightless layer from a forward transform.
func Layer(name string, shape tensor.Shape, cfg layers.Config,
	fn func(in expr.Producer) expr.Producer) (*layers.DefaultCellularLayer, error) {
	return model.Layer(name, shape, cfg, fn)
}

// NewReshape returns a block reinterpreting values of shape in as
// shape out.
func NewReshape(in, out tensor.Shape) (Block, error) {
	return model.NewReshape(in, out)
}

// SequentialBlock chains blocks in order, with branching, splitting
// and composition.
type SequentialBlock = model.SequentialBlock

// NewSequential creates an empty chain accepting the given shape.
func NewSequential(inputShape tensor.Shape) *SequentialBlock {
	return model.NewSequential(inputShape)
}

// Model is a network assembled from blocks sharing one parameter
// update strategy.
type Model = model.Model

// New creates a model accepting input of the given shape. A nil
// update builds an inference-only model.
func New(inputShape tensor.Shape, update layers.ParameterUpdate) *Model {
	return model.New(inputShape, update)
}

// CompiledModel executes a model against fixed buffers.
type CompiledModel = model.CompiledModel
