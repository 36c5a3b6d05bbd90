package model

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// branchBlock forks the forward dataflow. Each pushed value goes to
// every attached branch first and then continues down the trunk
// unchanged.
//
// On the way back, gradients from branch backward passes add into a
// join buffer as they arrive. The trunk gradient arrives last within a
// pass, because anything consuming a branch output sits downstream of
// the fork, so its arrival emits the joined sum upstream and clears
// the buffer for the next pass. Branches whose output is never
// consumed receive no backward push and contribute nothing.
type branchBlock struct {
	shape    tensor.Shape
	branches []Block
	joined   *tensor.Tensor
	sum      *tensor.Tensor
	fw       *branchForward
	bw       *branchBackward
}

func newBranchBlock(shape tensor.Shape) *branchBlock {
	b := &branchBlock{
		shape:  shape.Clone(),
		joined: tensor.New(shape),
		sum:    tensor.New(shape),
	}
	b.fw = &branchForward{block: b, out: graph.ReceptorSlot{Name: "branch"}}
	b.bw = &branchBackward{block: b, out: graph.ReceptorSlot{Name: "branch gradient"}}
	return b
}

// adopt attaches a branch whose input shape already matches the fork.
func (b *branchBlock) adopt(blk Block) {
	if bw := blk.Backward(); bw != nil {
		joined := b.joined
		bw.SetReceptor(graph.ReceptorFunc(func(v expr.Producer) (op.Operation, error) {
			if v.Shape().NumElements() != joined.NumElements() {
				return nil, fmt.Errorf("model: branch gradient %v does not match fork %v",
					v.Shape(), b.shape)
			}
			return expr.AddAssign("branch gradient", joined, v), nil
		}))
	}
	b.branches = append(b.branches, blk)
}

func (b *branchBlock) InputShape() tensor.Shape  { return b.shape }
func (b *branchBlock) OutputShape() tensor.Shape { return b.shape }
func (b *branchBlock) Forward() graph.Cell       { return b.fw }
func (b *branchBlock) Backward() graph.Cell      { return b.bw }

func (b *branchBlock) Setup() (op.Operation, error) {
	var ops op.List
	for _, blk := range b.branches {
		setup, err := blk.Setup()
		if err != nil {
			return nil, err
		}
		ops.Add(setup)
	}
	joined := b.joined
	ops.Add(op.Func("clear branch gradient", func() error {
		joined.Fill(0)
		return nil
	}))
	return ops, nil
}

func (b *branchBlock) Learning(update layers.ParameterUpdate) {
	for _, blk := range b.branches {
		if l, ok := blk.(Learner); ok {
			l.Learning(update)
		}
	}
}

type branchForward struct {
	block *branchBlock
	out   graph.ReceptorSlot
}

func (c *branchForward) Setup() (op.Operation, error) {
	return op.Nop(), nil
}

func (c *branchForward) SetReceptor(r graph.Receptor) {
	c.out.Set(r)
}

func (c *branchForward) Push(v expr.Producer) (op.Operation, error) {
	var ops op.List
	for _, blk := range c.block.branches {
		push, err := blk.Forward().Push(v)
		if err != nil {
			return nil, err
		}
		ops.Add(push)
	}
	push, err := c.out.Push(v)
	if err != nil {
		return nil, err
	}
	ops.Add(push)
	return ops, nil
}

type branchBackward struct {
	block *branchBlock
	out   graph.ReceptorSlot
}

func (c *branchBackward) Setup() (op.Operation, error) {
	return op.Nop(), nil
}

func (c *branchBackward) SetReceptor(r graph.Receptor) {
	c.out.Set(r)
}

func (c *branchBackward) Push(v expr.Producer) (op.Operation, error) {
	b := c.block
	if v.Shape().NumElements() != b.shape.NumElements() {
		return nil, fmt.Errorf("model: trunk gradient %v does not match fork %v",
			v.Shape(), b.shape)
	}

	var ops op.List
	ops.Add(expr.Assign("joined gradient", b.sum, expr.Add(v, expr.Var("branch gradient", b.joined))))
	joined := b.joined
	ops.Add(op.Func("clear branch gradient", func() error {
		joined.Fill(0)
		return nil
	}))
	push, err := c.out.Push(expr.Var("joined gradient", b.sum))
	if err != nil {
		return nil, err
	}
	ops.Add(push)
	return ops, nil
}
