package expr

import (
	"math"

	"github.com/axon-ml/axon/internal/tensor"
)

// elementwise applies fn to every element of x, producing a fresh
// tensor of the given shape.
func elementwise(x *tensor.Tensor, shape tensor.Shape, fn func(float64) float64) *tensor.Tensor {
	out := tensor.New(shape)
	od, xd := out.Data(), x.Data()
	for i := range od {
		od[i] = fn(xd[i])
	}
	return out
}

// Exp returns the element-wise exponential of x.
func Exp(x Producer) Producer { return &exp{x: x} }

type exp struct {
	x Producer
}

func (n *exp) Shape() tensor.Shape { return n.x.Shape() }

func (n *exp) Evaluate() *tensor.Tensor {
	return elementwise(n.x.Evaluate(), n.x.Shape(), math.Exp)
}

// Delta scales the argument Jacobian by exp(x), which is the node's
// own output.
func (n *exp) Delta(wrt *Variable) Producer {
	return chainRule(n.x.Delta(wrt), n)
}

// Log returns the element-wise natural logarithm of x.
func Log(x Producer) Producer { return &logn{x: x} }

type logn struct {
	x Producer
}

func (n *logn) Shape() tensor.Shape { return n.x.Shape() }

func (n *logn) Evaluate() *tensor.Tensor {
	return elementwise(n.x.Evaluate(), n.x.Shape(), math.Log)
}

// Delta scales the argument Jacobian by d(log x)/dx = 1/x.
func (n *logn) Delta(wrt *Variable) Producer {
	return chainRule(n.x.Delta(wrt), Pow(n.x, -1))
}

// Sqrt returns the element-wise square root of x.
func Sqrt(x Producer) Producer { return &sqrt{x: x} }

type sqrt struct {
	x Producer
}

func (n *sqrt) Shape() tensor.Shape { return n.x.Shape() }

func (n *sqrt) Evaluate() *tensor.Tensor {
	return elementwise(n.x.Evaluate(), n.x.Shape(), math.Sqrt)
}

// Delta scales the argument Jacobian by d(sqrt x)/dx = x^(-1/2) / 2.
func (n *sqrt) Delta(wrt *Variable) Producer {
	return chainRule(n.x.Delta(wrt), Scale(Pow(n.x, -0.5), 0.5))
}

// Pow returns x raised element-wise to the constant power k.
func Pow(x Producer, k float64) Producer { return &pow{x: x, k: k} }

type pow struct {
	x Producer
	k float64
}

func (n *pow) Shape() tensor.Shape { return n.x.Shape() }

func (n *pow) Evaluate() *tensor.Tensor {
	k := n.k
	return elementwise(n.x.Evaluate(), n.x.Shape(), func(v float64) float64 {
		return math.Pow(v, k)
	})
}

// Delta scales the argument Jacobian by d(x^k)/dx = k * x^(k-1).
func (n *pow) Delta(wrt *Variable) Producer {
	return chainRule(n.x.Delta(wrt), Scale(Pow(n.x, n.k-1), n.k))
}

// Sigmoid returns the element-wise logistic function 1 / (1 + e^-x).
func Sigmoid(x Producer) Producer { return &sigmoid{x: x} }

type sigmoid struct {
	x Producer
}

func (n *sigmoid) Shape() tensor.Shape { return n.x.Shape() }

func (n *sigmoid) Evaluate() *tensor.Tensor {
	return elementwise(n.x.Evaluate(), n.x.Shape(), func(v float64) float64 {
		return 1 / (1 + math.Exp(-v))
	})
}

// Delta scales the argument Jacobian by s * (1 - s), where s is the
// node's own output.
func (n *sigmoid) Delta(wrt *Variable) Producer {
	return chainRule(n.x.Delta(wrt), Mul(n, Sub(Scalar(1), n)))
}

// Tanh returns the element-wise hyperbolic tangent of x.
func Tanh(x Producer) Producer { return &tanh{x: x} }

type tanh struct {
	x Producer
}

func (n *tanh) Shape() tensor.Shape { return n.x.Shape() }

func (n *tanh) Evaluate() *tensor.Tensor {
	return elementwise(n.x.Evaluate(), n.x.Shape(), math.Tanh)
}

// Delta scales the argument Jacobian by 1 - tanh(x)^2.
func (n *tanh) Delta(wrt *Variable) Producer {
	return chainRule(n.x.Delta(wrt), Sub(Scalar(1), Mul(n, n)))
}

// ReLU returns max(x, 0) element-wise.
func ReLU(x Producer) Producer { return &relu{x: x} }

type relu struct {
	x Producer
}

func (n *relu) Shape() tensor.Shape { return n.x.Shape() }

func (n *relu) Evaluate() *tensor.Tensor {
	return elementwise(n.x.Evaluate(), n.x.Shape(), func(v float64) float64 {
		return math.Max(v, 0)
	})
}

// Delta uses the subgradient: 1 where x > 0, 0 elsewhere.
func (n *relu) Delta(wrt *Variable) Producer {
	return chainRule(n.x.Delta(wrt), &step{x: n.x})
}

// step evaluates to 1 where x > 0 and 0 elsewhere.
type step struct {
	x Producer
}

func (n *step) Shape() tensor.Shape { return n.x.Shape() }

func (n *step) Evaluate() *tensor.Tensor {
	return elementwise(n.x.Evaluate(), n.x.Shape(), func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	})
}

// Delta is zero almost everywhere.
func (n *step) Delta(wrt *Variable) Producer {
	return Zeros(tensor.Of(n.x.Shape().NumElements(), wrt.Tensor().NumElements()))
}

// SiLU returns x * sigmoid(x) element-wise.
func SiLU(x Producer) Producer { return &silu{x: x} }

type silu struct {
	x Producer
}

func (n *silu) Shape() tensor.Shape { return n.x.Shape() }

func (n *silu) Evaluate() *tensor.Tensor {
	return elementwise(n.x.Evaluate(), n.x.Shape(), func(v float64) float64 {
		return v / (1 + math.Exp(-v))
	})
}

// Delta scales the argument Jacobian by
// d(x * s)/dx = s + x * s * (1 - s), with s = sigmoid(x).
func (n *silu) Delta(wrt *Variable) Producer {
	s := Sigmoid(n.x)
	deriv := Add(s, Mul(Mul(n.x, s), Sub(Scalar(1), s)))
	return chainRule(n.x.Delta(wrt), deriv)
}

// geluCoeff is sqrt(2/pi) from the tanh approximation of GELU.
var geluCoeff = math.Sqrt(2 / math.Pi)

// GELU returns the Gaussian error linear unit, using the tanh
// approximation 0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 x^3))).
func GELU(x Producer) Producer { return &gelu{x: x} }

type gelu struct {
	x Producer
}

func (n *gelu) Shape() tensor.Shape { return n.x.Shape() }

func (n *gelu) Evaluate() *tensor.Tensor {
	return elementwise(n.x.Evaluate(), n.x.Shape(), func(v float64) float64 {
		return 0.5 * v * (1 + math.Tanh(geluCoeff*(v+0.044715*v*v*v)))
	})
}

// Delta scales the argument Jacobian by the derivative of the tanh
// approximation:
//
//	t = tanh(sqrt(2/pi) * (x + 0.044715 x^3))
//	d = 0.5 * (1 + t) + 0.5 * x * (1 - t^2) * sqrt(2/pi) * (1 + 3 * 0.044715 x^2)
func (n *gelu) Delta(wrt *Variable) Producer {
	x := n.x
	inner := Scale(Add(x, Scale(Pow(x, 3), 0.044715)), geluCoeff)
	t := Tanh(inner)
	left := Scale(Add(Scalar(1), t), 0.5)
	innerDeriv := Scale(Add(Scalar(1), Scale(Mul(x, x), 3*0.044715)), geluCoeff)
	right := Mul(Scale(x, 0.5), Mul(Sub(Scalar(1), Mul(t, t)), innerDeriv))
	return chainRule(x.Delta(wrt), Add(left, right))
}
