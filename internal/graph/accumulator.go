package graph

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Accumulator joins forked dataflow. It collects pushes from a known
// number of branches into one buffer and continues downstream once
// every branch has delivered.
//
// Within a round, the first push assigns the buffer and later pushes
// add into it. The push that completes the round also carries the
// downstream continuation, reading the summed buffer. Rounds reset
// automatically, so the same wiring serves every execution.
type Accumulator struct {
	name   string
	buf    *tensor.Tensor
	out    ReceptorSlot
	expect int
	seen   int
}

// NewAccumulator creates an accumulator over the given shape that
// waits for expect pushes per round.
func NewAccumulator(name string, shape tensor.Shape, expect int) *Accumulator {
	if expect <= 0 {
		panic("graph: accumulator must expect at least one push")
	}
	a := &Accumulator{name: name, buf: tensor.New(shape), expect: expect}
	a.out.Name = name
	return a
}

// Expect returns the number of pushes per round.
func (a *Accumulator) Expect() int {
	return a.expect
}

// AddExpected raises the number of pushes per round by one. Used when
// a composition attaches an extra contributor to an existing join.
func (a *Accumulator) AddExpected() {
	a.expect++
}

// Buffer returns the joined sum. Valid after a round completes.
func (a *Accumulator) Buffer() *tensor.Tensor {
	return a.buf
}

// Setup resets the round and returns work that clears the buffer.
func (a *Accumulator) Setup() (op.Operation, error) {
	a.seen = 0
	buf := a.buf
	return op.Func("clear "+a.name, func() error {
		buf.Fill(0)
		return nil
	}), nil
}

// SetReceptor directs the joined value downstream.
func (a *Accumulator) SetReceptor(r Receptor) {
	a.out.Set(r)
}

func (a *Accumulator) Push(value expr.Producer) (op.Operation, error) {
	if value.Shape().NumElements() != a.buf.NumElements() {
		return nil, fmt.Errorf("graph: accumulator %s cannot receive %v into %v",
			a.name, value.Shape(), a.buf.Shape())
	}

	var ops op.List
	if a.seen == 0 {
		ops.Add(expr.Assign(a.name, a.buf, value))
	} else {
		ops.Add(expr.AddAssign(a.name, a.buf, value))
	}
	a.seen++
	if a.seen < a.expect {
		return ops, nil
	}

	a.seen = 0
	down, err := a.out.Push(expr.Var(a.name, a.buf))
	if err != nil {
		return nil, err
	}
	ops.Add(down)
	return ops, nil
}
