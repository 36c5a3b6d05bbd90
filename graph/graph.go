// Copyright 2025 Axon ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the public API for the push dataflow graph
// in the Axon ML framework.
//
// Cells receive values and forward results to a downstream Receptor.
// Pushing builds deferred operations rather than computing, so a
// wired graph compiles once into a pass that reruns over live
// buffers.
//
// Example:
//
//	double := graph.CellOf("double", func(v expr.Producer) expr.Producer {
//	    return expr.Scale(v, 2)
//	})
//	double.SetReceptor(graph.Into("result", buf))
//	ops, err := double.Push(expr.Const(x))
package graph

import (
	"io"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/tensor"
)

// Receptor accepts pushed values.
type Receptor = graph.Receptor

// Cell receives values, transforms them, and forwards the result to
// at most one downstream receptor.
type Cell = graph.Cell

// ReceptorFunc adapts a function to the Receptor interface.
type ReceptorFunc = graph.ReceptorFunc

// ReceptorSlot holds at most one downstream receptor; setting a
// second warns.
type ReceptorSlot = graph.ReceptorSlot

// Into returns a receptor assigning every pushed value into dst.
func Into(label string, dst *tensor.Tensor) Receptor {
	return graph.Into(label, dst)
}

// CellOf builds a cell from a value transform.
func CellOf(name string, transform func(v expr.Producer) expr.Producer) Cell {
	return graph.CellOf(name, transform)
}

// Accumulator sums a fixed number of pushed values per round before
// forwarding the total.
type Accumulator = graph.Accumulator

// NewAccumulator creates an accumulator expecting expect pushes of
// the given shape per round.
func NewAccumulator(name string, shape tensor.Shape, expect int) *Accumulator {
	return graph.NewAccumulator(name, shape, expect)
}

// CaptureReceptor records the last pushed producer without consuming
// it.
type CaptureReceptor = graph.CaptureReceptor

// CSVReceptor streams pushed values as CSV rows, one row per push.
type CSVReceptor = graph.CSVReceptor

// NewCSVReceptor writes rows for every value pushed under label to w.
func NewCSVReceptor(label string, w io.Writer) *CSVReceptor {
	return graph.NewCSVReceptor(label, w)
}
