package layers

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Dense returns a fully connected layer.
//
// Formula: y = W x + b
//
// Where:
//   - W is the weight matrix [out, in], initialized to randn / in
//   - b is the optional bias [out], initialized to zeros
//
// Shapes: input [in] -> output [out].
func Dense(in, out int, bias bool, cfg Config) (*DefaultCellularLayer, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("layers: dense requires positive sizes, got %d -> %d", in, out)
	}
	name := fmt.Sprintf("dense %d", in)

	w := tensor.New(tensor.Of(out, in))
	weights := []*Weight{NewWeight(name+".weight", w)}
	var b *tensor.Tensor
	if bias {
		b = tensor.New(tensor.Of(out))
		weights = append(weights, NewWeight(name+".bias", b))
	}
	init := initRandn(name+".weight", w, 1/float64(in), cfg.rng())

	l, err := NewLayer(name, tensor.Of(in), weights, init, func(x *expr.Variable) expr.Producer {
		y := expr.MatMul(weights[0].Var(), x)
		if bias {
			y = expr.Add(y, weights[1].Var())
		}
		return y
	})
	if err != nil {
		return nil, err
	}
	if err := l.Init(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// MatMulLayer returns a dense layer around an existing weight matrix
// [out, in], trained in place and without a bias term.
func MatMulLayer(weights *tensor.Tensor, cfg Config) (*DefaultCellularLayer, error) {
	shape := weights.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("layers: matmul requires a 2-D weight matrix, got %v", shape)
	}
	in := shape[1]

	w := NewWeight("matmul.weight", weights)
	l, err := NewLayer("matmul", tensor.Of(in), []*Weight{w}, op.Nop(),
		func(x *expr.Variable) expr.Producer {
			return expr.MatMul(w.Var(), x)
		})
	if err != nil {
		return nil, err
	}
	if err := l.Init(cfg); err != nil {
		return nil, err
	}
	return l, nil
}
