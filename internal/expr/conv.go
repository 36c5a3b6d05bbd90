package expr

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// Conv2D returns the valid-padding 2-D convolution of input [h, w]
// with filters [fc, s, s], producing [h-s+1, w-s+1, fc]. The filter
// channel varies fastest in the output, so each spatial position holds
// one value per filter.
func Conv2D(input, filters Producer) Producer {
	is, fs := input.Shape(), filters.Shape()
	if len(is) != 2 {
		panic(fmt.Sprintf("expr: conv2d input must be 2-D, got %v", is))
	}
	if len(fs) != 3 || fs[1] != fs[2] {
		panic(fmt.Sprintf("expr: conv2d filters must be [count, s, s], got %v", fs))
	}
	h, w, fc, s := is[0], is[1], fs[0], fs[1]
	if h-s+1 <= 0 || w-s+1 <= 0 {
		panic(fmt.Sprintf("expr: conv2d filters %v larger than input %v", fs, is))
	}
	return &conv2d{input: input, filters: filters, h: h, w: w, fc: fc, s: s}
}

type conv2d struct {
	input, filters Producer
	h, w, fc, s    int
}

func (n *conv2d) Shape() tensor.Shape {
	return tensor.Of(n.h-n.s+1, n.w-n.s+1, n.fc)
}

func (n *conv2d) Evaluate() *tensor.Tensor {
	return convValues(n.input.Evaluate(), n.filters.Evaluate(), n.h, n.w, n.fc, n.s)
}

// convValues computes the valid convolution over raw buffers: in is
// [h, w] and filters is [fc, s, s].
func convValues(in, filters *tensor.Tensor, h, w, fc, s int) *tensor.Tensor {
	oh, ow := h-s+1, w-s+1
	out := tensor.New(tensor.Of(oh, ow, fc))
	id, fd, od := in.Data(), filters.Data(), out.Data()
	for i := 0; i < oh; i++ {
		for j := 0; j < ow; j++ {
			for f := 0; f < fc; f++ {
				var acc float64
				for u := 0; u < s; u++ {
					for v := 0; v < s; v++ {
						acc += id[(i+u)*w+(j+v)] * fd[(f*s+u)*s+v]
					}
				}
				od[(i*ow+j)*fc+f] = acc
			}
		}
	}
	return out
}

// Delta maps columns of the operand Jacobians through the convolution,
// which is linear in both the input and the filters.
func (n *conv2d) Delta(wrt *Variable) Producer {
	outN := n.Shape().NumElements()
	h, w, fc, s := n.h, n.w, n.fc, n.s

	var inPath, filterPath Producer
	if di := n.input.Delta(wrt); !isZero(di) {
		filters := n.filters
		inPath = mapColumns(di, outN, func() func(*tensor.Tensor) *tensor.Tensor {
			fv := filters.Evaluate()
			return func(col *tensor.Tensor) *tensor.Tensor {
				return convValues(col, fv, h, w, fc, s)
			}
		})
	}
	if df := n.filters.Delta(wrt); !isZero(df) {
		input := n.input
		filterPath = mapColumns(df, outN, func() func(*tensor.Tensor) *tensor.Tensor {
			iv := input.Evaluate()
			return func(col *tensor.Tensor) *tensor.Tensor {
				return convValues(iv, col, h, w, fc, s)
			}
		})
	}

	switch {
	case inPath == nil && filterPath == nil:
		return Zeros(tensor.Of(outN, wrt.Tensor().NumElements()))
	case inPath == nil:
		return filterPath
	case filterPath == nil:
		return inPath
	}
	return Add(inPath, filterPath)
}
