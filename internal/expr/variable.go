package expr

import (
	"github.com/axon-ml/axon/internal/tensor"
)

// Variable is a named leaf bound to a live tensor buffer.
//
// Evaluate returns the buffer itself, not a copy: whatever was last
// stored in the tensor is what downstream producers see on the next
// evaluation. Layers rely on this to wire weight and activation
// buffers directly into operator expressions, then run the same
// expression once per step.
//
// Identity is by pointer. Two Variables over the same tensor are
// distinct differentiation targets.
type Variable struct {
	name string
	buf  *tensor.Tensor
}

// Var creates a Variable backed by buf.
func Var(name string, buf *tensor.Tensor) *Variable {
	if buf == nil {
		panic("expr: nil buffer for variable " + name)
	}
	return &Variable{name: name, buf: buf}
}

// Name returns the variable's diagnostic name.
func (v *Variable) Name() string { return v.name }

// Tensor returns the backing buffer.
func (v *Variable) Tensor() *tensor.Tensor { return v.buf }

func (v *Variable) Shape() tensor.Shape { return v.buf.Shape() }

func (v *Variable) Evaluate() *tensor.Tensor { return v.buf }

// Delta returns the identity Jacobian when differentiating the
// variable against itself and a zero Jacobian otherwise.
func (v *Variable) Delta(wrt *Variable) Producer {
	n := v.buf.NumElements()
	if v == wrt {
		return Identity(n)
	}
	return Zeros(tensor.Of(n, wrt.Tensor().NumElements()))
}
