// Copyright 2025 Axon ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package op provides the public API for deferred operations in the
// Axon ML framework.
//
// Pushing a value through a cell graph does not execute anything; it
// returns an Operation that runs the whole pass later, as many times
// as needed. Lists sequence operations in order.
//
// Example:
//
//	ops, err := cell.Push(expr.Const(x))
//	if err != nil { ... }
//	if err := ops.Run(); err != nil { ... }
package op

import (
	"github.com/axon-ml/axon/internal/op"
)

// Operation is a deferred unit of work.
type Operation = op.Operation

// Func wraps a function as an operation.
func Func(desc string, fn func() error) Operation {
	return op.Func(desc, fn)
}

// Nop returns an operation that does nothing.
func Nop() Operation {
	return op.Nop()
}

// List sequences operations; running it runs each member in order.
type List = op.List

// Sequence builds a list from its arguments.
func Sequence(ops ...Operation) List {
	return op.Sequence(ops...)
}
