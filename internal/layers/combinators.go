package layers

import (
	"fmt"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Scale returns a weightless layer multiplying its input by a fixed
// factor.
func Scale(size int, factor float64, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("scale", size, cfg, func(x expr.Producer) expr.Producer {
		return expr.Scale(x, factor)
	})
}

// Subset returns a weightless layer extracting count consecutive
// elements starting at offset. Backward passes scatter the gradient
// into the untouched positions as zeros.
func Subset(inputShape tensor.Shape, offset, count int, cfg Config) (*DefaultCellularLayer, error) {
	n := inputShape.NumElements()
	if offset < 0 || count <= 0 || offset+count > n {
		return nil, fmt.Errorf("layers: subset [%d, %d) outside input of %d elements",
			offset, offset+count, n)
	}
	l, err := NewLayer("subset", inputShape, nil, op.Nop(),
		func(x *expr.Variable) expr.Producer {
			return expr.Slice(x, offset, count)
		})
	if err != nil {
		return nil, err
	}
	if err := l.Init(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// Accum returns a layer adding a produced value to its input. The
// value is re-evaluated on every forward pass.
func Accum(size int, value expr.Producer, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("accum", size, cfg, func(x expr.Producer) expr.Producer {
		return expr.Add(x, value)
	})
}

// Product returns a layer multiplying its input by a produced value.
func Product(size int, value expr.Producer, cfg Config) (*DefaultCellularLayer, error) {
	return pointwise("product", size, cfg, func(x expr.Producer) expr.Producer {
		return expr.Mul(x, value)
	})
}

// AccumCell returns a layer adding the output of a cell, applied to
// the same input, to the input itself: y = x + value(x).
//
// The cell must transform values symbolically, like cells built with
// graph.CellOf; it receives a capture receptor and its transform is
// composed into the layer's operator. Cells recording into their own
// buffers are not supported as operands.
func AccumCell(size int, value graph.Cell, cfg Config) (*DefaultCellularLayer, error) {
	return combine("accum", size, cfg, []graph.Cell{value},
		func(x expr.Producer, captured []expr.Producer) expr.Producer {
			return expr.Add(x, captured[0])
		})
}

// ProductCells returns a layer multiplying the outputs of two cells
// applied to the same input: y = a(x) * b(x). The same symbolic-cell
// restriction as AccumCell applies.
func ProductCells(size int, a, b graph.Cell, cfg Config) (*DefaultCellularLayer, error) {
	return combine("product", size, cfg, []graph.Cell{a, b},
		func(x expr.Producer, captured []expr.Producer) expr.Producer {
			return expr.Mul(captured[0], captured[1])
		})
}

// combine wires cells through capture receptors and builds the layer
// operator from their captured transforms.
func combine(name string, size int, cfg Config, cells []graph.Cell,
	compose func(x expr.Producer, captured []expr.Producer) expr.Producer) (*DefaultCellularLayer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("layers: %s requires a positive size, got %d", name, size)
	}

	l, err := NewLayer(name, tensor.Of(size), nil, op.Nop(),
		func(x *expr.Variable) expr.Producer {
			captured := make([]expr.Producer, len(cells))
			for i, cell := range cells {
				capture := &graph.CaptureReceptor{}
				cell.SetReceptor(capture)
				if _, err := cell.Push(x); err != nil {
					return nil
				}
				captured[i] = capture.Value()
				if captured[i] == nil {
					return nil
				}
			}
			return compose(x, captured)
		})
	if err != nil {
		return nil, fmt.Errorf("layers: %s: operand cells must transform values symbolically", name)
	}
	if err := l.Init(cfg); err != nil {
		return nil, err
	}
	return l, nil
}
