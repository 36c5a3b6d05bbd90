package layers

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/tensor"
)

// Conv2D returns a valid-padding convolution layer.
//
// Formula: y[i, j, f] = sum over (a, b) of x[i+a, j+b] * k[f, a, b]
//
// Where:
//   - k holds filterCount filters of size x size, initialized to
//     randn / (size * size)
//
// Shapes: input [h, w] -> output [h-size+1, w-size+1, filterCount].
func Conv2D(h, w, size, filterCount int, cfg Config) (*DefaultCellularLayer, error) {
	if size <= 0 || filterCount <= 0 {
		return nil, fmt.Errorf("layers: convolution2d requires positive size and filter count, got %d, %d",
			size, filterCount)
	}
	if h < size || w < size {
		return nil, fmt.Errorf("layers: convolution2d input %dx%d smaller than filter size %d",
			h, w, size)
	}

	filters := tensor.New(tensor.Of(filterCount, size, size))
	fw := NewWeight("convolution2d.filters", filters)
	init := initRandn("convolution2d.filters", filters, 1/float64(size*size), cfg.rng())

	l, err := NewLayer("convolution2d", tensor.Of(h, w), []*Weight{fw}, init,
		func(x *expr.Variable) expr.Producer {
			return expr.Conv2D(x, fw.Var())
		})
	if err != nil {
		return nil, err
	}
	if err := l.Init(cfg); err != nil {
		return nil, err
	}
	return l, nil
}
