package expr

import (
	"github.com/axon-ml/axon/internal/tensor"
)

// Const wraps a tensor as a constant producer. The tensor is not
// copied; callers must not mutate it afterwards.
func Const(t *tensor.Tensor) Producer {
	if t == nil {
		panic("expr: nil constant tensor")
	}
	return &constant{value: t}
}

// Scalar returns a single-element constant producer.
func Scalar(v float64) Producer {
	return Const(tensor.Vector(v))
}

type constant struct {
	value *tensor.Tensor
}

func (c *constant) Shape() tensor.Shape { return c.value.Shape() }

func (c *constant) Evaluate() *tensor.Tensor { return c.value }

func (c *constant) Delta(wrt *Variable) Producer {
	return Zeros(tensor.Of(c.value.NumElements(), wrt.Tensor().NumElements()))
}

// Zeros returns a producer of the given shape whose elements are all
// zero. The tensor is materialized on evaluation.
func Zeros(shape tensor.Shape) Producer {
	if err := shape.Validate(); err != nil {
		panic("expr: " + err.Error())
	}
	return &zeros{shape: shape.Clone()}
}

type zeros struct {
	shape tensor.Shape
}

func (z *zeros) Shape() tensor.Shape { return z.shape }

func (z *zeros) Evaluate() *tensor.Tensor { return tensor.New(z.shape) }

func (z *zeros) Delta(wrt *Variable) Producer {
	return Zeros(tensor.Of(z.shape.NumElements(), wrt.Tensor().NumElements()))
}

// isZero reports whether p is statically known to be all zeros. Delta
// implementations use it to prune vanishing Jacobian terms, which is
// what keeps weight Jacobians free of input-path work and vice versa.
func isZero(p Producer) bool {
	_, ok := p.(*zeros)
	return ok
}

// Identity returns the n by n identity matrix as a producer.
func Identity(n int) Producer {
	if n <= 0 {
		panic("expr: identity size must be positive")
	}
	return &identity{n: n}
}

type identity struct {
	n int
}

func (id *identity) Shape() tensor.Shape { return tensor.Of(id.n, id.n) }

func (id *identity) Evaluate() *tensor.Tensor {
	t := tensor.New(tensor.Of(id.n, id.n))
	for i := 0; i < id.n; i++ {
		t.Set(1, i, i)
	}
	return t
}

func (id *identity) Delta(wrt *Variable) Producer {
	return Zeros(tensor.Of(id.n*id.n, wrt.Tensor().NumElements()))
}
