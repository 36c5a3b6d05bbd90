package layers_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/tensor"
)

// TestRMSNormForward checks the normalization against hand-computed
// values.
//
// For x = [1, 2, 3]: mean(x^2) = 14/3, so every element is divided by
// sqrt(14/3 + 1e-5).
func TestRMSNormForward(t *testing.T) {
	l, err := layers.RMSNorm(3, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)

	x := tensor.Vector(1, 2, 3)
	out := forward(t, l, x)

	rstd := math.Pow(14.0/3+1e-5, -0.5)
	for i, v := range x.Data() {
		assert.InDelta(t, v*rstd, out.Data()[i], 1e-12, "element %d", i)
	}
}

// TestRMSNormGain checks the learnable gain scales each element.
func TestRMSNormGain(t *testing.T) {
	l, err := layers.RMSNorm(3, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)

	gain := l.Weights()[0]
	require.Len(t, l.Weights(), 1)
	gain.Set(2, 0)
	gain.Set(3, 1)
	gain.Set(4, 2)

	x := tensor.Vector(1, 1, 1)
	out := forward(t, l, x)

	rstd := math.Pow(1+1e-5, -0.5)
	want := []float64{2 * rstd, 3 * rstd, 4 * rstd}
	for i := range want {
		assert.InDelta(t, want[i], out.Data()[i], 1e-12, "element %d", i)
	}
}

// TestRMSNormGainTrains checks a backward pass moves the gain.
func TestRMSNormGainTrains(t *testing.T) {
	l, err := layers.RMSNorm(3, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	l.Learning(layers.Scaled(0.1))

	forward(t, l, tensor.Vector(1, 2, 3))
	backward(t, l, tensor.Vector(1, 1, 1))

	moved := false
	for _, v := range l.Weights()[0].Data() {
		if v != 1 {
			moved = true
		}
	}
	if !moved {
		t.Error("gain did not move")
	}
}

// TestGroupNormNormalizesPerGroup checks each group is centered and
// scaled independently.
//
// x = [1, 2, 3, 10, 20, 30] with two groups: the first has mean 2 and
// variance 2/3, the second mean 20 and variance 200/3.
func TestGroupNormNormalizesPerGroup(t *testing.T) {
	l, err := layers.GroupNorm(6, 2, false, layers.DefaultConfig())
	require.NoError(t, err)
	require.Empty(t, l.Weights())
	setup(t, l)

	out := forward(t, l, tensor.Vector(1, 2, 3, 10, 20, 30))

	rstd1 := math.Pow(2.0/3+1e-5, -0.5)
	rstd2 := math.Pow(200.0/3+1e-5, -0.5)
	want := []float64{
		-1 * rstd1, 0, 1 * rstd1,
		-10 * rstd2, 0, 10 * rstd2,
	}
	for i := range want {
		assert.InDelta(t, want[i], out.Data()[i], 1e-12, "element %d", i)
	}

	for g := 0; g < 2; g++ {
		sum := 0.0
		for i := 0; i < 3; i++ {
			sum += out.Data()[g*3+i]
		}
		assert.InDelta(t, 0, sum, 1e-12, "group %d mean", g)
	}
}

// TestGroupNormAffine checks the identity-initialized affine transform
// and the effect of moving it.
func TestGroupNormAffine(t *testing.T) {
	plain, err := layers.GroupNorm(6, 2, false, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, plain)

	affine, err := layers.GroupNorm(6, 2, true, layers.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, affine.Weights(), 2)
	setup(t, affine)

	x := tensor.Vector(1, 2, 3, 10, 20, 30)
	want := forward(t, plain, x).Clone()
	got := forward(t, affine, x)
	for i := range want.Data() {
		assert.InDelta(t, want.Data()[i], got.Data()[i], 1e-15, "identity affine element %d", i)
	}

	scale := affine.Weights()[0]
	bias := affine.Weights()[1]
	scale.Fill(2)
	bias.Fill(1)
	got = forward(t, affine, x)
	for i := range want.Data() {
		assert.InDelta(t, want.Data()[i]*2+1, got.Data()[i], 1e-12, "scaled element %d", i)
	}
}

// TestGroupNormValidation checks group and size constraints.
func TestGroupNormValidation(t *testing.T) {
	_, err := layers.GroupNorm(6, 4, false, layers.DefaultConfig())
	require.Error(t, err)
	_, err = layers.GroupNorm(0, 1, false, layers.DefaultConfig())
	require.Error(t, err)
	_, err = layers.GroupNorm(6, 0, false, layers.DefaultConfig())
	require.Error(t, err)
}

// TestRMSNormRejectsNonPositiveSize checks constructor validation.
func TestRMSNormRejectsNonPositiveSize(t *testing.T) {
	_, err := layers.RMSNorm(0, layers.DefaultConfig())
	require.Error(t, err)
}
