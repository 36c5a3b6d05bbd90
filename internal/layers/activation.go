package layers

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// pointwise builds a weightless layer applying fn to the input.
func pointwise(name string, size int, cfg Config, fn func(expr.Producer) expr.Producer) (*DefaultCellularLayer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("layers: %s requires a positive size, got %d", name, size)
	}
	l, err := NewLayer(name, tensor.Of(size), nil, op.Nop(),
		func(x *expr.Variable) expr.Producer {
			return fn(x)
		})
	if err != nil {
		return nil, err
	}
	if err := l.Init(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// Softmax returns a softmax layer.
//
// Formula: y_i = exp(x_i) / sum(exp(x))
//
// The exponentials are taken directly, without the max-subtraction
// trick, so large logits can overflow.
func Softmax(size int, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("softmax", size, cfg, func(x expr.Producer) expr.Producer {
		e := expr.Exp(x)
		return expr.Div(e, expr.Sum(e))
	})
}

// LogSoftmax returns a log-softmax layer.
//
// Formula: y_i = x_i - log(sum(exp(x)))
func LogSoftmax(size int, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("logSoftmax", size, cfg, func(x expr.Producer) expr.Producer {
		return expr.Sub(x, expr.Log(expr.Sum(expr.Exp(x))))
	})
}

// ReLU returns a rectifier layer: y = max(x, 0).
func ReLU(size int, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("relu", size, cfg, expr.ReLU)
}

// SiLU returns a sigmoid-weighted linear layer: y = x * sigmoid(x).
func SiLU(size int, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("silu", size, cfg, expr.SiLU)
}

// Sigmoid returns a logistic layer: y = 1 / (1 + exp(-x)).
func Sigmoid(size int, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("sigmoid", size, cfg, expr.Sigmoid)
}

// Tanh returns a hyperbolic tangent layer.
func Tanh(size int, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("tanh", size, cfg, expr.Tanh)
}

// GELU returns a Gaussian error linear layer, using the tanh
// approximation:
//
//	y = 0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 * x^3)))
func GELU(size int, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("gelu", size, cfg, expr.GELU)
}
