package layers

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

const normEpsilon = 1e-5

// RMSNorm returns a root mean square normalization layer.
//
// Formula: y = g * x / sqrt(mean(x^2) + eps)
//
// Where g is a learnable gain [size], initialized to ones.
//
// Shapes: input [size] -> output [size].
func RMSNorm(size int, cfg Config) (*DefaultCellularLayer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("layers: rmsnorm requires a positive size, got %d", size)
	}

	gain := tensor.New(tensor.Of(size))
	g := NewWeight("rmsnorm.gain", gain)
	init := initConst("rmsnorm.gain", gain, 1)

	l, err := NewLayer("rmsnorm", tensor.Of(size), []*Weight{g}, init,
		func(x *expr.Variable) expr.Producer {
			ss := expr.Add(expr.Mean(expr.Mul(x, x)), expr.Scalar(normEpsilon))
			return expr.Mul(expr.Mul(g.Var(), x), expr.Pow(ss, -0.5))
		})
	if err != nil {
		return nil, err
	}
	if err := l.Init(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// GroupNorm returns a group normalization layer.
//
// Formula, per group of size/groups contiguous elements:
//
//	y = (x - mean) / sqrt(var + eps)
//
// With affine set, a learnable per-element scale (ones) and bias
// (zeros) follow the normalization.
//
// Shapes: input [size] -> output [size]; size must divide evenly into
// groups.
func GroupNorm(size, groups int, affine bool, cfg Config) (*DefaultCellularLayer, error) {
	if size <= 0 || groups <= 0 {
		return nil, fmt.Errorf("layers: norm requires positive size and groups, got %d, %d",
			size, groups)
	}
	if size%groups != 0 {
		return nil, fmt.Errorf("layers: norm groups %d do not divide size %d", groups, size)
	}
	groupSize := size / groups

	var weights []*Weight
	var scale, bias *tensor.Tensor
	if affine {
		scale = tensor.New(tensor.Of(size))
		bias = tensor.New(tensor.Of(size))
		weights = []*Weight{NewWeight("norm.scale", scale), NewWeight("norm.bias", bias)}
	}
	var init op.List
	if affine {
		init.Add(initConst("norm.scale", scale, 1))
		init.Add(initConst("norm.bias", bias, 0))
	}

	l, err := NewLayer("norm", tensor.Of(size), weights, init,
		func(x *expr.Variable) expr.Producer {
			parts := make([]expr.Producer, groups)
			for gi := 0; gi < groups; gi++ {
				xg := expr.Slice(x, gi*groupSize, groupSize)
				centered := expr.Sub(xg, expr.Mean(xg))
				variance := expr.Mean(expr.Mul(centered, centered))
				rstd := expr.Pow(expr.Add(variance, expr.Scalar(normEpsilon)), -0.5)
				parts[gi] = expr.Mul(centered, rstd)
			}
			y := expr.Concat(parts...)
			if affine {
				y = expr.Add(expr.Mul(y, weights[0].Var()), weights[1].Var())
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
