package expr

import (
	"gonum.org/v1/gonum/floats"

	"github.com/axon-ml/axon/internal/tensor"
)

// Sum returns the sum of all elements of x as a single-element
// producer.
func Sum(x Producer) Producer { return &sum{x: x} }

type sum struct {
	x Producer
}

func (n *sum) Shape() tensor.Shape { return tensor.Of(1) }

func (n *sum) Evaluate() *tensor.Tensor {
	return tensor.Vector(floats.Sum(n.x.Evaluate().Data()))
}

// Delta sums the columns of the argument Jacobian: the single output
// row j is sum_i dx[i, j].
func (n *sum) Delta(wrt *Variable) Producer {
	dx := n.x.Delta(wrt)
	if isZero(dx) {
		return Zeros(tensor.Of(1, wrt.Tensor().NumElements()))
	}
	return mapColumnsStatic(dx, 1, func(col *tensor.Tensor) *tensor.Tensor {
		return tensor.Vector(floats.Sum(col.Data()))
	})
}

// Mean returns the mean of all elements of x as a single-element
// producer.
func Mean(x Producer) Producer {
	return Scale(Sum(x), 1/float64(x.Shape().NumElements()))
}
