package model

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// SequentialBlock chains blocks in order. Values pushed into its
// forward cell run the chain front to back; gradients pushed into its
// backward cell run it back to front. A SequentialBlock is itself a
// Block, so chains nest.
type SequentialBlock struct {
	inputShape tensor.Shape
	blocks     []Block

	downstream graph.ReceptorSlot
	upstream   graph.ReceptorSlot
}

// NewSequential creates an empty chain accepting the given shape.
func NewSequential(inputShape tensor.Shape) *SequentialBlock {
	s := &SequentialBlock{inputShape: inputShape.Clone()}
	s.downstream.Name = "sequential"
	s.upstream.Name = "sequential gradient"
	return s
}

func (s *SequentialBlock) InputShape() tensor.Shape { return s.inputShape }

// OutputShape returns the last block's output shape, or the input
// shape while the chain is empty.
func (s *SequentialBlock) OutputShape() tensor.Shape {
	if len(s.blocks) == 0 {
		return s.inputShape
	}
	return s.blocks[len(s.blocks)-1].OutputShape()
}

// Blocks returns the chained blocks in order.
func (s *SequentialBlock) Blocks() []Block { return s.blocks }

// Forward returns the chain's entry cell. Its receptor observes
// values leaving the final block.
func (s *SequentialBlock) Forward() graph.Cell { return sequentialForward{s} }

// Backward returns the chain's gradient entry cell, feeding the final
// block's backward pass. Its receptor observes the gradient with
// respect to the chain input.
func (s *SequentialBlock) Backward() graph.Cell { return sequentialBackward{s} }

// Setup aggregates the setup work of every chained block.
func (s *SequentialBlock) Setup() (op.Operation, error) {
	var ops op.List
	for _, b := range s.blocks {
		setup, err := b.Setup()
		if err != nil {
			return nil, err
		}
		ops.Add(setup)
	}
	return ops, nil
}

// Learning forwards the update strategy to every block that trains.
func (s *SequentialBlock) Learning(update layers.ParameterUpdate) {
	for _, b := range s.blocks {
		if l, ok := b.(Learner); ok {
			l.Learning(update)
		}
	}
}

// Add appends a block, which must accept the chain's current output
// element count.
func (s *SequentialBlock) Add(b Block) error {
	if b.InputShape().NumElements() != s.OutputShape().NumElements() {
		return fmt.Errorf("model: cannot chain %v input after %v output",
			b.InputShape(), s.OutputShape())
	}
	s.chain(b)
	return nil
}

// chain appends b and wires its cells to hop relays. The relays
// resolve neighbors when a value is pushed, so blocks appended later
// extend the chain without rewiring.
func (s *SequentialBlock) chain(b Block) {
	i := len(s.blocks)
	s.blocks = append(s.blocks, b)

	b.Forward().SetReceptor(graph.ReceptorFunc(func(v expr.Producer) (op.Operation, error) {
		if i+1 < len(s.blocks) {
			return s.blocks[i+1].Forward().Push(v)
		}
		return s.downstream.Push(v)
	}))

	if bw := b.Backward(); bw != nil {
		bw.SetReceptor(graph.ReceptorFunc(func(v expr.Producer) (op.Operation, error) {
			if i > 0 {
				if prev := s.blocks[i-1].Backward(); prev != nil {
					return prev.Push(v)
				}
				return op.Nop(), nil
			}
			return s.upstream.Push(v)
		}))
	}
}

// Branch forks the chain's current output into a new empty chain.
// Values reaching this point flow into the returned branch and then
// continue down the trunk unchanged. The branch trains alongside the
// trunk but produces nothing until its output is consumed, typically
// by Compose.
func (s *SequentialBlock) Branch() *SequentialBlock {
	branch := NewSequential(s.OutputShape())
	split := newBranchBlock(s.OutputShape())
	split.adopt(branch)
	s.chain(split)
	return branch
}

// BranchOf forks the chain's current output into b.
func (s *SequentialBlock) BranchOf(b Block) error {
	if b.InputShape().NumElements() != s.OutputShape().NumElements() {
		return fmt.Errorf("model: cannot branch %v input from %v output",
			b.InputShape(), s.OutputShape())
	}
	split := newBranchBlock(s.OutputShape())
	split.adopt(b)
	s.chain(split)
	return nil
}

// Split divides the chain's output along its first axis into equal
// sections, each flowing through its own sub-chain. The returned
// chains start with the extracting layer and can be extended
// individually. mainIndex selects the section whose sub-chain
// continues the trunk; pass -1 to keep every section on a branch and
// leave the trunk on the undivided value.
func (s *SequentialBlock) Split(section tensor.Shape, mainIndex int, cfg layers.Config) ([]*SequentialBlock, error) {
	super := s.OutputShape()
	if len(section) > len(super) {
		return nil, fmt.Errorf("model: split %v has more dimensions than %v", section, super)
	}
	padded := make(tensor.Shape, len(super))
	for i := range padded {
		padded[i] = 1
	}
	copy(padded[len(super)-len(section):], section)
	for i := 1; i < len(super); i++ {
		if padded[i] != super[i] {
			return nil, fmt.Errorf("model: split is only permitted along the first axis, got %v of %v",
				section, super)
		}
	}
	if super[0]%padded[0] != 0 {
		return nil, fmt.Errorf("model: split %v must evenly divide %v", section, super)
	}

	count := super[0] / padded[0]
	size := padded.NumElements()
	flat := tensor.Of(size)

	split := newBranchBlock(super)
	subs := make([]*SequentialBlock, 0, count)
	var main *SequentialBlock

	for i := 0; i < count; i++ {
		sub := NewSequential(super)
		extract, err := layers.Subset(super, i*size, size, cfg)
		if err != nil {
			return nil, err
		}
		sub.chain(extract)
		if !section.Equal(flat) {
			reshape, err := NewReshape(flat, section)
			if err != nil {
				return nil, err
			}
			sub.chain(reshape)
		}

		if i == mainIndex {
			main = sub
		} else {
			split.adopt(sub)
		}
		subs = append(subs, sub)
	}

	s.chain(split)
	if main != nil {
		s.chain(main)
	}
	return subs, nil
}

// Compose appends a layer combining the trunk value x with the
// recorded output y of another block through fn. other must already
// receive values, typically from Branch, BranchOf or Split.
//
// During a backward pass the gradient with respect to y is pushed
// into other's backward cell before the trunk gradient continues
// upstream, so branch contributions reach their fork ahead of the
// trunk's own arrival there.
func (s *SequentialBlock) Compose(name string, other Block,
	fn func(x, y expr.Producer) expr.Producer, cfg layers.Config) error {
	back := other.Backward()
	if back == nil {
		return fmt.Errorf("model: compose %s: operand block has no backward cell", name)
	}

	operand := tensor.New(other.OutputShape())
	other.Forward().SetReceptor(graph.Into(name+" operand", operand))

	w := layers.NewWeight(name+".operand", operand)
	w.Pin(operandRelay{target: back})

	l, err := layers.NewLayer(name, s.OutputShape(), []*layers.Weight{w}, op.Nop(),
		func(x *expr.Variable) expr.Producer { return fn(x, w.Var()) })
	if err != nil {
		return err
	}
	if err := l.Init(cfg); err != nil {
		return err
	}
	return s.Add(l)
}

// Accum adds b's output back onto the trunk: the chain continues with
// x + b(x).
func (s *SequentialBlock) Accum(b Block, cfg layers.Config) error {
	if b.OutputShape().NumElements() != s.OutputShape().NumElements() {
		return fmt.Errorf("model: cannot accumulate %v output onto %v",
			b.OutputShape(), s.OutputShape())
	}
	if err := s.BranchOf(b); err != nil {
		return err
	}
	return s.Compose("accum", b, func(x, y expr.Producer) expr.Producer {
		return expr.Add(x, y)
	}, cfg)
}

// Product continues the chain with a(x) * b(x).
func (s *SequentialBlock) Product(a, b Block, cfg layers.Config) error {
	if a.OutputShape().NumElements() != b.OutputShape().NumElements() {
		return fmt.Errorf("model: product operands disagree, %v against %v",
			a.OutputShape(), b.OutputShape())
	}
	if err := s.BranchOf(b); err != nil {
		return err
	}
	if err := s.Add(a); err != nil {
		return err
	}
	return s.Compose("product", b, func(x, y expr.Producer) expr.Producer {
		return expr.Mul(x, y)
	}, cfg)
}

// operandRelay drives a composed operand's backward pass. The weight
// it is pinned to wraps a recorded operand buffer rather than a
// trainable tensor, so instead of stepping the buffer it forwards the
// materialized gradient into the operand block.
type operandRelay struct {
	target graph.Receptor
}

func (r operandRelay) Apply(name string, weights *tensor.Tensor, gradient expr.Producer) (op.Operation, error) {
	return r.target.Push(gradient)
}

type sequentialForward struct {
	s *SequentialBlock
}

func (c sequentialForward) Setup() (op.Operation, error) {
	return op.Nop(), nil
}

func (c sequentialForward) Push(v expr.Producer) (op.Operation, error) {
	if len(c.s.blocks) > 0 {
		return c.s.blocks[0].Forward().Push(v)
	}
	return c.s.downstream.Push(v)
}

func (c sequentialForward) SetReceptor(r graph.Receptor) {
	c.s.downstream.Set(r)
}

type sequentialBackward struct {
	s *SequentialBlock
}

func (c sequentialBackward) Setup() (op.Operation, error) {
	return op.Nop(), nil
}

func (c sequentialBackward) Push(v expr.Producer) (op.Operation, error) {
	if len(c.s.blocks) == 0 {
		return c.s.upstream.Push(v)
	}
	last := c.s.blocks[len(c.s.blocks)-1]
	bw := last.Backward()
	if bw == nil {
		return nil, fmt.Errorf("model: final block has no backward cell")
	}
	return bw.Push(v)
}

func (c sequentialBackward) SetReceptor(r graph.Receptor) {
	c.s.upstream.Set(r)
}
