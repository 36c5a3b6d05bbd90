package expr

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// align prepares two operands for an element-wise operation. A
// single-element operand broadcasts to the other side's element count.
// The returned shape is the shape of the non-broadcast operand.
func align(op string, a, b Producer) (Producer, Producer, tensor.Shape) {
	an, bn := a.Shape().NumElements(), b.Shape().NumElements()
	switch {
	case an == bn:
		return a, b, a.Shape().Clone()
	case an == 1:
		return Repeat(a, bn), b, b.Shape().Clone()
	case bn == 1:
		return a, Repeat(b, an), a.Shape().Clone()
	}
	panic(fmt.Sprintf("expr: %s operands have incompatible shapes %v and %v",
		op, a.Shape(), b.Shape()))
}

// Add returns the element-wise sum a + b. A single-element operand
// broadcasts to the shape of the other.
func Add(a, b Producer) Producer {
	a, b, shape := align("add", a, b)
	return &add{a: a, b: b, shape: shape}
}

type add struct {
	a, b  Producer
	shape tensor.Shape
}

func (n *add) Shape() tensor.Shape { return n.shape }

func (n *add) Evaluate() *tensor.Tensor {
	av, bv := n.a.Evaluate(), n.b.Evaluate()
	out := tensor.New(n.shape)
	od, ad, bd := out.Data(), av.Data(), bv.Data()
	for i := range od {
		od[i] = ad[i] + bd[i]
	}
	return out
}

// Delta distributes over the sum: d(a+b) = da + db.
func (n *add) Delta(wrt *Variable) Producer {
	return addJacobians(n.a.Delta(wrt), n.b.Delta(wrt))
}

// Sub returns the element-wise difference a - b. A single-element
// operand broadcasts to the shape of the other.
func Sub(a, b Producer) Producer {
	a, b, shape := align("sub", a, b)
	return &sub{a: a, b: b, shape: shape}
}

type sub struct {
	a, b  Producer
	shape tensor.Shape
}

func (n *sub) Shape() tensor.Shape { return n.shape }

func (n *sub) Evaluate() *tensor.Tensor {
	av, bv := n.a.Evaluate(), n.b.Evaluate()
	out := tensor.New(n.shape)
	od, ad, bd := out.Data(), av.Data(), bv.Data()
	for i := range od {
		od[i] = ad[i] - bd[i]
	}
	return out
}

// Delta distributes over the difference: d(a-b) = da - db.
func (n *sub) Delta(wrt *Variable) Producer {
	da, db := n.a.Delta(wrt), n.b.Delta(wrt)
	if isZero(db) {
		return da
	}
	if isZero(da) {
		return Neg(db)
	}
	return Sub(da, db)
}

// Mul returns the element-wise product a * b. A single-element operand
// broadcasts to the shape of the other.
func Mul(a, b Producer) Producer {
	a, b, shape := align("mul", a, b)
	return &mul{a: a, b: b, shape: shape}
}

type mul struct {
	a, b  Producer
	shape tensor.Shape
}

func (n *mul) Shape() tensor.Shape { return n.shape }

func (n *mul) Evaluate() *tensor.Tensor {
	av, bv := n.a.Evaluate(), n.b.Evaluate()
	out := tensor.New(n.shape)
	od, ad, bd := out.Data(), av.Data(), bv.Data()
	for i := range od {
		od[i] = ad[i] * bd[i]
	}
	return out
}

// Delta applies the product rule row-wise: row i of the Jacobian is
// b_i * da[i,:] + a_i * db[i,:].
func (n *mul) Delta(wrt *Variable) Producer {
	da, db := n.a.Delta(wrt), n.b.Delta(wrt)
	return addJacobians(chainRule(da, n.b), chainRule(db, n.a))
}

// Div returns the element-wise quotient a / b. A single-element
// operand broadcasts to the shape of the other.
func Div(a, b Producer) Producer {
	a, b, shape := align("div", a, b)
	return &div{a: a, b: b, shape: shape}
}

type div struct {
	a, b  Producer
	shape tensor.Shape
}

func (n *div) Shape() tensor.Shape { return n.shape }

func (n *div) Evaluate() *tensor.Tensor {
	av, bv := n.a.Evaluate(), n.b.Evaluate()
	out := tensor.New(n.shape)
	od, ad, bd := out.Data(), av.Data(), bv.Data()
	for i := range od {
		od[i] = ad[i] / bd[i]
	}
	return out
}

// Delta applies the quotient rule:
// d(a/b) = (1/b) * da - (a/b^2) * db.
func (n *div) Delta(wrt *Variable) Producer {
	da, db := n.a.Delta(wrt), n.b.Delta(wrt)
	first := chainRule(da, Pow(n.b, -1))
	second := chainRule(db, Neg(Div(n.a, Mul(n.b, n.b))))
	return addJacobians(first, second)
}

// Neg returns the element-wise negation of a.
func Neg(a Producer) Producer {
	return &neg{a: a}
}

type neg struct {
	a Producer
}

func (n *neg) Shape() tensor.Shape { return n.a.Shape() }

func (n *neg) Evaluate() *tensor.Tensor {
	av := n.a.Evaluate()
	out := tensor.New(n.a.Shape())
	od, ad := out.Data(), av.Data()
	for i := range od {
		od[i] = -ad[i]
	}
	return out
}

// Delta negates the argument Jacobian.
func (n *neg) Delta(wrt *Variable) Producer {
	da := n.a.Delta(wrt)
	if isZero(da) {
		return da
	}
	return Neg(da)
}

// Scale returns a multiplied by the constant factor c.
func Scale(a Producer, c float64) Producer {
	return &scale{a: a, c: c}
}

type scale struct {
	a Producer
	c float64
}

func (n *scale) Shape() tensor.Shape { return n.a.Shape() }

func (n *scale) Evaluate() *tensor.Tensor {
	av := n.a.Evaluate()
	out := tensor.New(n.a.Shape())
	od, ad := out.Data(), av.Data()
	for i := range od {
		od[i] = n.c * ad[i]
	}
	return out
}

// Delta scales the argument Jacobian by the same constant.
func (n *scale) Delta(wrt *Variable) Producer {
	da := n.a.Delta(wrt)
	if isZero(da) {
		return da
	}
	return Scale(da, n.c)
}
