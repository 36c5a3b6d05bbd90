package layers_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

func assertForward(t *testing.T, l *layers.DefaultCellularLayer, x *tensor.Tensor, want []float64) {
	t.Helper()
	out := forward(t, l, x)
	for i, w := range want {
		if out.Data()[i] != w {
			t.Errorf("element %d = %v, expected %v", i, out.Data()[i], w)
		}
	}
}

// TestSubsetBackwardScatters checks the extracted window's gradient
// lands on its source positions and nowhere else.
func TestSubsetBackwardScatters(t *testing.T) {
	l, err := layers.Subset(tensor.Of(6), 2, 3, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	inGrad := captureInputGradient(l)

	assertForward(t, l, tensor.Vector(1, 2, 3, 4, 5, 6), []float64{3, 4, 5})
	backward(t, l, tensor.Vector(10, 20, 30))

	want := []float64{0, 0, 10, 20, 30, 0}
	for i, v := range inGrad.Data() {
		if v != want[i] {
			t.Errorf("gradient %d = %v, expected %v", i, v, want[i])
		}
	}
}

// TestSubsetValidation checks window bounds against the input.
func TestSubsetValidation(t *testing.T) {
	_, err := layers.Subset(tensor.Of(6), 4, 3, layers.DefaultConfig())
	require.Error(t, err)
	_, err = layers.Subset(tensor.Of(6), -1, 2, layers.DefaultConfig())
	require.Error(t, err)
	_, err = layers.Subset(tensor.Of(6), 0, 0, layers.DefaultConfig())
	require.Error(t, err)
}

// TestScaleBackward checks d(k*x)/dx = k flows through the derived
// backward pass.
func TestScaleBackward(t *testing.T) {
	l, err := layers.Scale(3, 2, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	inGrad := captureInputGradient(l)

	assertForward(t, l, tensor.Vector(1, 2, 3), []float64{2, 4, 6})
	backward(t, l, tensor.Vector(1, 10, 100))

	want := []float64{2, 20, 200}
	for i, v := range inGrad.Data() {
		if v != want[i] {
			t.Errorf("gradient %d = %v, expected %v", i, v, want[i])
		}
	}
}

// TestAccumAddsValue checks y = x + v for a produced operand.
func TestAccumAddsValue(t *testing.T) {
	l, err := layers.Accum(3, expr.Const(tensor.Vector(10, 20, 30)), layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	inGrad := captureInputGradient(l)

	assertForward(t, l, tensor.Vector(1, 2, 3), []float64{11, 22, 33})

	// The addend is constant, so the input gradient passes through.
	backward(t, l, tensor.Vector(5, 6, 7))
	for i, want := range []float64{5, 6, 7} {
		if inGrad.Data()[i] != want {
			t.Errorf("gradient %d = %v, expected %v", i, inGrad.Data()[i], want)
		}
	}
}

// TestAccumReevaluatesValue checks the operand is produced fresh on
// every forward pass.
func TestAccumReevaluatesValue(t *testing.T) {
	v := tensor.Vector(5, 5)
	l, err := layers.Accum(2, expr.Var("v", v), layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)

	assertForward(t, l, tensor.Vector(1, 1), []float64{6, 6})

	v.Set(7, 0)
	v.Set(9, 1)
	assertForward(t, l, tensor.Vector(1, 1), []float64{8, 10})
}

// TestProductMultiplies checks y = x * v and its input gradient.
func TestProductMultiplies(t *testing.T) {
	l, err := layers.Product(3, expr.Const(tensor.Vector(2, 3, 4)), layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	inGrad := captureInputGradient(l)

	assertForward(t, l, tensor.Vector(1, 2, 3), []float64{2, 6, 12})

	backward(t, l, tensor.Vector(1, 1, 1))
	for i, want := range []float64{2, 3, 4} {
		if inGrad.Data()[i] != want {
			t.Errorf("gradient %d = %v, expected %v", i, inGrad.Data()[i], want)
		}
	}
}

// TestAccumCellComposes checks y = x + f(x) where f is a symbolic
// cell, including the chain rule through both paths.
func TestAccumCellComposes(t *testing.T) {
	double := graph.CellOf("double", func(v expr.Producer) expr.Producer {
		return expr.Scale(v, 2)
	})
	l, err := layers.AccumCell(2, double, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	inGrad := captureInputGradient(l)

	assertForward(t, l, tensor.Vector(1, 2), []float64{3, 6})

	// d(x + 2x)/dx = 3.
	backward(t, l, tensor.Vector(1, 1))
	for i, v := range inGrad.Data() {
		if v != 3 {
			t.Errorf("gradient %d = %v, expected 3", i, v)
		}
	}
}

// TestProductCellsComposes checks y = a(x) * b(x) for two symbolic
// cells, including the product rule across the shared input.
func TestProductCellsComposes(t *testing.T) {
	a := graph.CellOf("a", func(v expr.Producer) expr.Producer {
		return expr.Scale(v, 2)
	})
	b := graph.CellOf("b", func(v expr.Producer) expr.Producer {
		return expr.Scale(v, 3)
	})
	l, err := layers.ProductCells(2, a, b, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	inGrad := captureInputGradient(l)

	// y = 2x * 3x = 6x^2.
	assertForward(t, l, tensor.Vector(1, 2), []float64{6, 24})

	// dy/dx = 12x.
	backward(t, l, tensor.Vector(1, 1))
	for i, want := range []float64{12, 24} {
		if inGrad.Data()[i] != want {
			t.Errorf("gradient %d = %v, expected %v", i, inGrad.Data()[i], want)
		}
	}
}

// opaqueCell consumes pushes without forwarding anything downstream,
// standing in for a cell that records instead of transforming.
type opaqueCell struct{}

func (opaqueCell) Setup() (op.Operation, error) { return op.Nop(), nil }

func (opaqueCell) SetReceptor(r graph.Receptor) {}

func (opaqueCell) Push(v expr.Producer) (op.Operation, error) { return op.Nop(), nil }

// TestCombineRejectsOpaqueCell checks operand cells must expose their
// transform symbolically.
func TestCombineRejectsOpaqueCell(t *testing.T) {
	_, err := layers.AccumCell(2, opaqueCell{}, layers.DefaultConfig())
	require.Error(t, err)

	_, err = layers.ProductCells(2, opaqueCell{}, opaqueCell{}, layers.DefaultConfig())
	require.Error(t, err)
}
