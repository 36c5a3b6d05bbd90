package expr

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/axon-ml/axon/internal/tensor"
)

// Jacobian machinery.
//
// Delta implementations build Jacobians out of three primitives:
//
//   - mapColumns: for out = L(x) with L linear, column j of the output
//     Jacobian is L applied to column j of the argument Jacobian.
//   - rowScale: for element-wise out_i = g(x_i), row i of the output
//     Jacobian is g'(x)_i times row i of the argument Jacobian.
//   - contract: multiplies a transposed Jacobian with an output
//     gradient, turning an [out, wrt] Jacobian into a wrt-shaped
//     gradient.
//
// Jacobian producers are terminal: differentiating them again is not
// supported and panics.

// addJacobians sums two Jacobian terms, dropping statically zero
// sides.
func addJacobians(a, b Producer) Producer {
	if isZero(a) {
		return b
	}
	if isZero(b) {
		return a
	}
	return Add(a, b)
}

// chainRule scales the rows of an argument Jacobian by the local
// derivative values, pruning statically zero Jacobians.
func chainRule(dx Producer, deriv Producer) Producer {
	if isZero(dx) {
		return dx
	}
	return rowScale(dx, deriv)
}

// rowScale multiplies row i of the Jacobian j by element i of v.
func rowScale(j Producer, v Producer) Producer {
	js := j.Shape()
	if len(js) != 2 {
		panic(fmt.Sprintf("expr: rowScale requires a 2-D jacobian, got %v", js))
	}
	if v.Shape().NumElements() != js[0] {
		panic(fmt.Sprintf("expr: rowScale values %v do not match jacobian rows %v",
			v.Shape(), js))
	}
	return &rowScaled{j: j, v: v}
}

type rowScaled struct {
	j Producer
	v Producer
}

func (n *rowScaled) Shape() tensor.Shape { return n.j.Shape() }

func (n *rowScaled) Evaluate() *tensor.Tensor {
	jv, vv := n.j.Evaluate(), n.v.Evaluate()
	rows, cols := n.j.Shape()[0], n.j.Shape()[1]
	out := tensor.New(tensor.Of(rows, cols))
	jd, vd, od := jv.Data(), vv.Data(), out.Data()
	for i := 0; i < rows; i++ {
		s := vd[i]
		if s == 0 {
			continue
		}
		base := i * cols
		for c := 0; c < cols; c++ {
			od[base+c] = s * jd[base+c]
		}
	}
	return out
}

func (n *rowScaled) Delta(wrt *Variable) Producer {
	panic("expr: second-order differentiation is not supported")
}

// mapColumns applies a linear map to every column of the Jacobian j.
// prep runs once per evaluation and returns the per-column function,
// so fixed operands (the non-differentiated side of a product) are
// evaluated once, not once per column. The column tensor passed to the
// returned function is reused between calls and must not be retained.
func mapColumns(j Producer, rows int, prep func() func(col *tensor.Tensor) *tensor.Tensor) Producer {
	js := j.Shape()
	if len(js) != 2 {
		panic(fmt.Sprintf("expr: mapColumns requires a 2-D jacobian, got %v", js))
	}
	return &mapCols{j: j, rows: rows, prep: prep}
}

// mapColumnsStatic is mapColumns for maps with no per-evaluation
// state.
func mapColumnsStatic(j Producer, rows int, apply func(col *tensor.Tensor) *tensor.Tensor) Producer {
	return mapColumns(j, rows, func() func(*tensor.Tensor) *tensor.Tensor {
		return apply
	})
}

type mapCols struct {
	j    Producer
	rows int
	prep func() func(col *tensor.Tensor) *tensor.Tensor
}

func (n *mapCols) Shape() tensor.Shape {
	return tensor.Of(n.rows, n.j.Shape()[1])
}

func (n *mapCols) Evaluate() *tensor.Tensor {
	jv := n.j.Evaluate()
	srcRows, cols := n.j.Shape()[0], n.j.Shape()[1]
	apply := n.prep()
	out := tensor.New(tensor.Of(n.rows, cols))
	col := tensor.New(tensor.Of(srcRows))
	jd, cd, od := jv.Data(), col.Data(), out.Data()
	for c := 0; c < cols; c++ {
		for r := 0; r < srcRows; r++ {
			cd[r] = jd[r*cols+c]
		}
		res := apply(col)
		if res.NumElements() != n.rows {
			panic(fmt.Sprintf("expr: mapColumns produced %d elements, want %d",
				res.NumElements(), n.rows))
		}
		rd := res.Data()
		for r := 0; r < n.rows; r++ {
			od[r*cols+c] = rd[r]
		}
	}
	return out
}

func (n *mapCols) Delta(wrt *Variable) Producer {
	panic("expr: second-order differentiation is not supported")
}

// contract computes the vector-Jacobian product grad_m = sum_n
// jacobian[n, m] * outGrad_n, reshaped to the given shape.
func contract(j Producer, outGrad Producer, shape tensor.Shape) Producer {
	js := j.Shape()
	if len(js) != 2 || js[0] != outGrad.Shape().NumElements() || js[1] != shape.NumElements() {
		panic(fmt.Sprintf("expr: cannot contract jacobian %v with gradient %v into %v",
			js, outGrad.Shape(), shape))
	}
	return &contraction{j: j, outGrad: outGrad, shape: shape.Clone()}
}

type contraction struct {
	j       Producer
	outGrad Producer
	shape   tensor.Shape
}

func (n *contraction) Shape() tensor.Shape { return n.shape }

func (n *contraction) Evaluate() *tensor.Tensor {
	jv, gv := n.j.Evaluate(), n.outGrad.Evaluate()
	rows, cols := n.j.Shape()[0], n.j.Shape()[1]
	out := tensor.New(n.shape)
	res := mat.NewVecDense(cols, out.Data())
	res.MulVec(mat.NewDense(rows, cols, jv.Data()).T(), mat.NewVecDense(rows, gv.Data()))
	return out
}

func (n *contraction) Delta(wrt *Variable) Producer {
	panic("expr: second-order differentiation is not supported")
}
