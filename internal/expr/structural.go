package expr

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// Reshape reinterprets x with a new shape holding the same elements in
// the same flattened order.
func Reshape(x Producer, shape tensor.Shape) Producer {
	if err := x.Shape().CompatibleWith(shape); err != nil {
		panic("expr: " + err.Error())
	}
	return &reshape{x: x, shape: shape.Clone()}
}

type reshape struct {
	x     Producer
	shape tensor.Shape
}

func (n *reshape) Shape() tensor.Shape { return n.shape }

func (n *reshape) Evaluate() *tensor.Tensor {
	out := tensor.New(n.shape)
	copy(out.Data(), n.x.Evaluate().Data())
	return out
}

// Delta passes through: reshaping does not change flattened order.
func (n *reshape) Delta(wrt *Variable) Producer {
	return n.x.Delta(wrt)
}

// Transpose returns the matrix transpose of a 2-D producer.
func Transpose(x Producer) Producer {
	s := x.Shape()
	if len(s) != 2 {
		panic(fmt.Sprintf("expr: transpose requires a 2-D shape, got %v", s))
	}
	return &transpose{x: x, rows: s[0], cols: s[1]}
}

type transpose struct {
	x          Producer
	rows, cols int
}

func (n *transpose) Shape() tensor.Shape { return tensor.Of(n.cols, n.rows) }

func (n *transpose) Evaluate() *tensor.Tensor {
	xv := n.x.Evaluate()
	out := tensor.New(tensor.Of(n.cols, n.rows))
	xd, od := xv.Data(), out.Data()
	for i := 0; i < n.rows; i++ {
		for j := 0; j < n.cols; j++ {
			od[j*n.rows+i] = xd[i*n.cols+j]
		}
	}
	return out
}

// Delta permutes the Jacobian rows into the transposed element order.
func (n *transpose) Delta(wrt *Variable) Producer {
	dx := n.x.Delta(wrt)
	if isZero(dx) {
		return dx
	}
	rows, cols := n.rows, n.cols
	return mapColumnsStatic(dx, rows*cols, func(col *tensor.Tensor) *tensor.Tensor {
		out := tensor.New(tensor.Of(cols * rows))
		cd, od := col.Data(), out.Data()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				od[j*rows+i] = cd[i*cols+j]
			}
		}
		return out
	})
}

// Slice returns elements [start, start+count) of the flattened x as a
// vector.
func Slice(x Producer, start, count int) Producer {
	n := x.Shape().NumElements()
	if start < 0 || count <= 0 || start+count > n {
		panic(fmt.Sprintf("expr: slice [%d, %d) out of range for %d elements",
			start, start+count, n))
	}
	return &slice{x: x, start: start, count: count}
}

type slice struct {
	x            Producer
	start, count int
}

func (n *slice) Shape() tensor.Shape { return tensor.Of(n.count) }

func (n *slice) Evaluate() *tensor.Tensor {
	xv := n.x.Evaluate()
	out := tensor.New(tensor.Of(n.count))
	copy(out.Data(), xv.Data()[n.start:n.start+n.count])
	return out
}

// Delta keeps only the Jacobian rows of the selected elements.
func (n *slice) Delta(wrt *Variable) Producer {
	dx := n.x.Delta(wrt)
	if isZero(dx) {
		return Zeros(tensor.Of(n.count, wrt.Tensor().NumElements()))
	}
	start, count := n.start, n.count
	return mapColumnsStatic(dx, count, func(col *tensor.Tensor) *tensor.Tensor {
		out := tensor.New(tensor.Of(count))
		copy(out.Data(), col.Data()[start:start+count])
		return out
	})
}

// Concat joins the flattened operands end to end into a vector.
func Concat(xs ...Producer) Producer {
	if len(xs) == 0 {
		panic("expr: concat of no operands")
	}
	total := 0
	for _, x := range xs {
		total += x.Shape().NumElements()
	}
	return &concat{xs: xs, total: total}
}

type concat struct {
	xs    []Producer
	total int
}

func (n *concat) Shape() tensor.Shape { return tensor.Of(n.total) }

func (n *concat) Evaluate() *tensor.Tensor {
	out := tensor.New(tensor.Of(n.total))
	od := out.Data()
	pos := 0
	for _, x := range n.xs {
		xv := x.Evaluate()
		copy(od[pos:], xv.Data())
		pos += xv.NumElements()
	}
	return out
}

// Delta stacks the operand Jacobians vertically. Row-major
// concatenation of the [n_i, m] blocks is exactly the row stack.
func (n *concat) Delta(wrt *Variable) Producer {
	m := wrt.Tensor().NumElements()
	parts := make([]Producer, len(n.xs))
	allZero := true
	for i, x := range n.xs {
		parts[i] = x.Delta(wrt)
		if !isZero(parts[i]) {
			allZero = false
		}
	}
	if allZero {
		return Zeros(tensor.Of(n.total, m))
	}
	return Reshape(Concat(parts...), tensor.Of(n.total, m))
}

// Repeat tiles x n times. A single-element x broadcasts to an
// n element vector; larger operands gain a leading repetition
// dimension, so [a, b] becomes [n, a, b].
func Repeat(x Producer, n int) Producer {
	if n <= 0 {
		panic("expr: repeat count must be positive")
	}
	return &repeat{x: x, n: n}
}

type repeat struct {
	x Producer
	n int
}

func (n *repeat) Shape() tensor.Shape {
	s := n.x.Shape()
	if s.NumElements() == 1 {
		return tensor.Of(n.n)
	}
	return tensor.Shape(append([]int{n.n}, s...))
}

func (n *repeat) Evaluate() *tensor.Tensor {
	xv := n.x.Evaluate()
	c := xv.NumElements()
	out := tensor.New(n.Shape())
	od := out.Data()
	for k := 0; k < n.n; k++ {
		copy(od[k*c:(k+1)*c], xv.Data())
	}
	return out
}

// Delta tiles the operand Jacobian rows: every repetition of element i
// carries the same row i of the child Jacobian.
func (n *repeat) Delta(wrt *Variable) Producer {
	dx := n.x.Delta(wrt)
	c := n.x.Shape().NumElements()
	if isZero(dx) {
		return Zeros(tensor.Of(n.n*c, wrt.Tensor().NumElements()))
	}
	count := n.n * c
	reps := n.n
	return mapColumnsStatic(dx, count, func(col *tensor.Tensor) *tensor.Tensor {
		out := tensor.New(tensor.Of(count))
		od := out.Data()
		for k := 0; k < reps; k++ {
			copy(od[k*c:(k+1)*c], col.Data())
		}
		return out
	})
}
