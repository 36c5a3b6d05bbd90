package layers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/tensor"
)

// TestDenseSoftmaxBackward drives a 12 -> 5 dense layer into a softmax,
// pushes a one-hot gradient back through both, and checks the whole
// chain against hand-derived values.
//
// Weights are W[j][i] = (i + j) * 0.01 and b[j] = 0.1 + 0.01j with
// input x[i] = i, so the pre-softmax activations are z[j] = 5.16 +
// 0.67j. For a one-hot gradient at index k the softmax passes back
// dz[j] = s[j] * (delta_jk - s[k]), the dense layer then takes
// dW[j][i] = dz[j] * x[i], db[j] = dz[j] and dx = W^T dz.
func TestDenseSoftmaxBackward(t *testing.T) {
	cfg := layers.DefaultConfig()
	dense, err := layers.Dense(12, 5, true, cfg)
	require.NoError(t, err)
	softmax, err := layers.Softmax(5, cfg)
	require.NoError(t, err)

	dense.Forward().SetReceptor(softmax.Forward())
	softmax.Backward().SetReceptor(dense.Backward())
	inGrad := captureInputGradient(dense)

	setup(t, dense)
	setup(t, softmax)

	w := dense.Weights()[0]
	b := dense.Weights()[1]
	for j := 0; j < 5; j++ {
		for i := 0; i < 12; i++ {
			w.Set(float64(i+j)*0.01, j, i)
		}
		b.Set(0.1+0.01*float64(j), j)
	}
	lr := 0.1
	dense.Learning(layers.Scaled(lr))

	x := tensor.New(tensor.Of(12))
	for i := range x.Data() {
		x.Data()[i] = float64(i)
	}
	forward(t, dense, x)

	wantOut := []float64{
		0.034696079790592194,
		0.06780441105365753,
		0.13250578939914703,
		0.2589479088783264,
		0.5060457587242126,
	}
	s := softmax.Output().Clone()
	for j, want := range wantOut {
		assert.InDelta(t, want, s.Data()[j], 1e-6, "softmax output %d", j)
	}

	wBefore := w.Clone()
	bBefore := b.Clone()
	g := tensor.New(tensor.Of(5))
	g.Set(1, 3)
	backward(t, softmax, g)

	dz := make([]float64, 5)
	for j := range dz {
		kron := 0.0
		if j == 3 {
			kron = 1
		}
		dz[j] = s.Data()[j] * (kron - s.Data()[3])
	}

	for j := 0; j < 5; j++ {
		for i := 0; i < 12; i++ {
			delta := wBefore.At(j, i) - w.At(j, i)
			assert.InDelta(t, lr*dz[j]*x.Data()[i], delta, 1e-12, "dW[%d][%d]", j, i)
		}
		assert.InDelta(t, lr*dz[j], bBefore.At(j)-b.At(j), 1e-12, "db[%d]", j)
	}

	for i := 0; i < 12; i++ {
		want := 0.0
		for j := 0; j < 5; j++ {
			want += wBefore.At(j, i) * dz[j]
		}
		assert.InDelta(t, want, inGrad.Data()[i], 1e-12, "dx[%d]", i)
	}
}

// TestDenseWeightCount checks the bias toggles the second weight.
func TestDenseWeightCount(t *testing.T) {
	withBias, err := layers.Dense(4, 3, true, layers.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, withBias.Weights(), 2)

	without, err := layers.Dense(4, 3, false, layers.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, without.Weights(), 1)
}

// TestDenseShapes checks the declared shapes and the layer name.
func TestDenseShapes(t *testing.T) {
	l, err := layers.Dense(12, 5, false, layers.DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, "dense 12", l.Name())
	if !l.InputShape().Equal(tensor.Shape{12}) {
		t.Errorf("input shape = %v, expected [12]", l.InputShape())
	}
	if !l.OutputShape().Equal(tensor.Shape{5}) {
		t.Errorf("output shape = %v, expected [5]", l.OutputShape())
	}
}

// TestDenseRejectsNonPositiveSizes checks constructor validation.
func TestDenseRejectsNonPositiveSizes(t *testing.T) {
	_, err := layers.Dense(0, 3, false, layers.DefaultConfig())
	require.Error(t, err)
	_, err = layers.Dense(3, -1, false, layers.DefaultConfig())
	require.Error(t, err)
}

// TestMatMulLayerTrainsInPlace checks the wrapping layer mutates the
// caller's weight tensor directly.
func TestMatMulLayerTrainsInPlace(t *testing.T) {
	w, err := tensor.FromSlice([]float64{2, 0, 0, 3}, tensor.Of(2, 2))
	require.NoError(t, err)

	l, err := layers.MatMulLayer(w, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)

	out := forward(t, l, tensor.Vector(1, 1))
	if out.Data()[0] != 2 || out.Data()[1] != 3 {
		t.Fatalf("forward: got %v, expected [2 3]", out.Data())
	}

	lr := 0.1
	l.Learning(layers.Scaled(lr))
	backward(t, l, tensor.Vector(1, 1))

	// dW[j][i] = g[j] * x[i] = 1 everywhere.
	want := []float64{2 - lr, 0 - lr, 0 - lr, 3 - lr}
	for i, v := range w.Data() {
		assert.InDelta(t, want[i], v, 1e-15, "W element %d", i)
	}
}

// TestMatMulLayerRejectsVector checks the weight matrix must be 2-D.
func TestMatMulLayerRejectsVector(t *testing.T) {
	_, err := layers.MatMulLayer(tensor.Vector(1, 2, 3), layers.DefaultConfig())
	require.Error(t, err)
}
