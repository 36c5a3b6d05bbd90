package expr

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/axon-ml/axon/internal/tensor"
)

// MatMul returns the matrix product of a and b. The left operand must
// be a [r, k] matrix; the right operand is either a [k, c] matrix,
// producing [r, c], or a k element vector, producing [r].
func MatMul(a, b Producer) Producer {
	as, bs := a.Shape(), b.Shape()
	if len(as) != 2 {
		panic(fmt.Sprintf("expr: matmul left operand must be 2-D, got %v", as))
	}
	r, k := as[0], as[1]
	switch {
	case len(bs) == 1 && bs[0] == k:
		return &matmul{a: a, b: b, r: r, k: k, c: 0}
	case len(bs) == 2 && bs[0] == k:
		return &matmul{a: a, b: b, r: r, k: k, c: bs[1]}
	}
	panic(fmt.Sprintf("expr: matmul operands have incompatible shapes %v and %v", as, bs))
}

// matmul computes a * b. c == 0 marks a vector right-hand side.
type matmul struct {
	a, b    Producer
	r, k, c int
}

func (n *matmul) Shape() tensor.Shape {
	if n.c == 0 {
		return tensor.Of(n.r)
	}
	return tensor.Of(n.r, n.c)
}

func (n *matmul) Evaluate() *tensor.Tensor {
	return matmulValues(n.a.Evaluate(), n.b.Evaluate(), n.r, n.k, n.c)
}

// matmulValues multiplies raw buffers: av is [r, k], bv is [k] when
// c == 0 and [k, c] otherwise.
func matmulValues(av, bv *tensor.Tensor, r, k, c int) *tensor.Tensor {
	am := mat.NewDense(r, k, av.Data())
	if c == 0 {
		out := tensor.New(tensor.Of(r))
		res := mat.NewVecDense(r, out.Data())
		res.MulVec(am, mat.NewVecDense(k, bv.Data()))
		return out
	}
	out := tensor.New(tensor.Of(r, c))
	res := mat.NewDense(r, c, out.Data())
	res.Mul(am, mat.NewDense(k, c, bv.Data()))
	return out
}

// Delta combines both product-rule paths. The product is linear in
// each operand, so each path maps columns of that operand's Jacobian
// through the product with the other operand held fixed:
//
//	d(A*b)/dA path: column j is reshape(dA[:,j]) * b
//	d(A*b)/db path: column j is A * reshape(db[:,j])
func (n *matmul) Delta(wrt *Variable) Producer {
	outN := n.Shape().NumElements()
	r, k, c := n.r, n.k, n.c

	var aPath, bPath Producer
	if da := n.a.Delta(wrt); !isZero(da) {
		b := n.b
		aPath = mapColumns(da, outN, func() func(*tensor.Tensor) *tensor.Tensor {
			bv := b.Evaluate()
			return func(col *tensor.Tensor) *tensor.Tensor {
				return matmulValues(col, bv, r, k, c)
			}
		})
	}
	if db := n.b.Delta(wrt); !isZero(db) {
		a := n.a
		bPath = mapColumns(db, outN, func() func(*tensor.Tensor) *tensor.Tensor {
			av := a.Evaluate()
			return func(col *tensor.Tensor) *tensor.Tensor {
				return matmulValues(av, col, r, k, c)
			}
		})
	}

	switch {
	case aPath == nil && bPath == nil:
		return Zeros(tensor.Of(outN, wrt.Tensor().NumElements()))
	case aPath == nil:
		return bPath
	case bPath == nil:
		return aPath
	}
	return Add(aPath, bPath)
}
