package layers_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// TestDenseGradientDescentStep checks one full descent step with
// hand-checkable numbers.
//
// W = [[1, 0, 0, 0], [0, 1, 0, 0]], x = [1, 2, 3, 4], so y = [1, 2].
// With output gradient [1, 1], dW[j][i] = x[i] and dx = W^T [1, 1].
func TestDenseGradientDescentStep(t *testing.T) {
	l, err := layers.Dense(4, 2, false, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)

	w := l.Weights()[0]
	w.Fill(0)
	w.Set(1, 0, 0)
	w.Set(1, 1, 1)
	l.Learning(layers.Scaled(0.1))
	inGrad := captureInputGradient(l)

	x := tensor.Vector(1, 2, 3, 4)
	out := forward(t, l, x)
	if out.Data()[0] != 1 || out.Data()[1] != 2 {
		t.Fatalf("forward: got %v, expected [1 2]", out.Data())
	}

	g := tensor.Vector(1, 1)
	before := w.Clone()
	backward(t, l, g)

	want := [][]float64{
		{0.9, -0.2, -0.3, -0.4},
		{-0.1, 0.8, -0.3, -0.4},
	}
	for j := 0; j < 2; j++ {
		for i := 0; i < 4; i++ {
			// Mirror the descent arithmetic exactly, then check the
			// decimal literals to a tight tolerance.
			mirror := before.At(j, i) - (x.Data()[i]*g.Data()[j])*0.1
			if w.At(j, i) != mirror {
				t.Errorf("W[%d][%d] = %v, expected %v", j, i, w.At(j, i), mirror)
			}
			assert.InDelta(t, want[j][i], w.At(j, i), 1e-15, "W[%d][%d]", j, i)
		}
	}

	wantGrad := []float64{1, 1, 0, 0}
	for i, v := range inGrad.Data() {
		if v != wantGrad[i] {
			t.Errorf("input gradient %d = %v, expected %v", i, v, wantGrad[i])
		}
	}
}

// TestZeroGradientLeavesWeights checks that an all-zero output gradient
// changes nothing, bit for bit, and propagates zeros upstream.
func TestZeroGradientLeavesWeights(t *testing.T) {
	l, err := layers.Dense(3, 2, false, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	l.Learning(layers.Scaled(0.5))
	inGrad := captureInputGradient(l)
	inGrad.Fill(7)

	forward(t, l, tensor.Vector(0.5, -1, 2))
	before := l.Weights()[0].Clone()
	backward(t, l, tensor.New(tensor.Of(2)))

	after := l.Weights()[0]
	for i := range after.Data() {
		if after.Data()[i] != before.Data()[i] {
			t.Errorf("weight %d changed: %v -> %v", i, before.Data()[i], after.Data()[i])
		}
	}
	for i, v := range inGrad.Data() {
		if v != 0 {
			t.Errorf("input gradient %d = %v, expected 0", i, v)
		}
	}
}

// TestMissingUpdateFails checks that propagating through a trainable
// weight without a ParameterUpdate is rejected.
func TestMissingUpdateFails(t *testing.T) {
	l, err := layers.Dense(3, 2, false, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	forward(t, l, tensor.Vector(1, 2, 3))

	_, err = l.Backward().Push(expr.Const(tensor.Vector(1, 1)))
	require.Error(t, err)
}

// TestGradientsMaterializeBeforeUpdates checks the backward ordering
// for interdependent weights: every gradient is evaluated against the
// pre-update values, so updating w1 first must not leak into dL/dw2.
func TestGradientsMaterializeBeforeUpdates(t *testing.T) {
	w1 := layers.NewWeight("w1", tensor.Vector(2, 3))
	w2 := layers.NewWeight("w2", tensor.Vector(5, 7))
	in := expr.Var("in", tensor.New(tensor.Of(2)))

	out := expr.Mul(w1.Var(), w2.Var())
	prop := layers.NewGradientPropagation("pair", out, in, []*layers.Weight{w1, w2})
	lr := 0.1
	prop.SetParameterUpdate(layers.Scaled(lr))

	before1 := w1.Tensor().Clone()
	before2 := w2.Tensor().Clone()
	g := tensor.Vector(1, 1)
	ops, err := prop.Propagate(expr.Const(g), nil)
	require.NoError(t, err)
	require.NoError(t, ops.Run())

	// dL/dw1 = w2 * g and dL/dw2 = w1 * g, both at pre-update values.
	for i := range g.Data() {
		want1 := before1.Data()[i] - (before2.Data()[i]*g.Data()[i])*lr
		want2 := before2.Data()[i] - (before1.Data()[i]*g.Data()[i])*lr
		if w1.Tensor().Data()[i] != want1 {
			t.Errorf("w1[%d] = %v, expected %v", i, w1.Tensor().Data()[i], want1)
		}
		if w2.Tensor().Data()[i] != want2 {
			t.Errorf("w2[%d] = %v, expected %v", i, w2.Tensor().Data()[i], want2)
		}
	}
}

// captureUpdate records the materialized gradient it is asked to apply
// and leaves the weights alone.
type captureUpdate struct {
	got *tensor.Tensor
}

func (c *captureUpdate) Apply(name string, weights *tensor.Tensor, gradient expr.Producer) (op.Operation, error) {
	return op.Func("capture "+name, func() error {
		c.got = gradient.Evaluate().Clone()
		return nil
	}), nil
}

// TestPinnedWeightUsesOwnUpdate checks that a pinned weight bypasses
// the propagation-level update and still receives its materialized
// gradient.
func TestPinnedWeightUsesOwnUpdate(t *testing.T) {
	w1 := layers.NewWeight("w1", tensor.Vector(2, 3))
	w2 := layers.NewWeight("w2", tensor.Vector(5, 7))
	capture := &captureUpdate{}
	w2.Pin(capture)

	in := expr.Var("in", tensor.New(tensor.Of(2)))
	out := expr.Mul(w1.Var(), w2.Var())
	prop := layers.NewGradientPropagation("pair", out, in, []*layers.Weight{w1, w2})
	lr := 0.1
	prop.SetParameterUpdate(layers.Scaled(lr))

	before1 := w1.Tensor().Clone()
	ops, err := prop.Propagate(expr.Const(tensor.Vector(1, 1)), nil)
	require.NoError(t, err)
	require.NoError(t, ops.Run())

	if w2.Tensor().Data()[0] != 5 || w2.Tensor().Data()[1] != 7 {
		t.Errorf("pinned weight changed: %v", w2.Tensor().Data())
	}
	require.NotNil(t, capture.got)
	// dL/dw2 = w1 * g at pre-update values.
	if capture.got.Data()[0] != 2 || capture.got.Data()[1] != 3 {
		t.Errorf("captured gradient = %v, expected [2 3]", capture.got.Data())
	}
	want := before1.Data()[0] - (5*1.0)*lr
	if w1.Tensor().Data()[0] != want {
		t.Errorf("w1[0] = %v, expected %v", w1.Tensor().Data()[0], want)
	}
}

// TestDiagnosticsRecording checks the shapes and values handed to the
// diagnostics sink for a dense layer.
func TestDiagnosticsRecording(t *testing.T) {
	sink := layers.NewGradientDiagnostics()
	cfg := layers.DefaultConfig()
	cfg.Diagnostics = sink

	l, err := layers.Dense(3, 2, false, cfg)
	require.NoError(t, err)
	setup(t, l)
	l.Learning(layers.Scaled(0.1))

	x := tensor.Vector(0.5, -1, 2)
	g := tensor.Vector(1, -2)
	forward(t, l, x)
	backward(t, l, g)

	jac := sink.Jacobians["dense 3.weight"]
	require.NotNil(t, jac)
	if !jac.Shape().Equal(tensor.Shape{2, 6}) {
		t.Fatalf("jacobian shape = %v, expected [2 6]", jac.Shape())
	}
	// Output j depends only on weight row j: J[j][j*3+i] = x[i].
	for j := 0; j < 2; j++ {
		for c := 0; c < 6; c++ {
			want := 0.0
			if c/3 == j {
				want = x.Data()[c%3]
			}
			assert.InDelta(t, want, jac.At(j, c), 1e-15, "J[%d][%d]", j, c)
		}
	}

	grad := sink.Gradients["dense 3.weight"]
	require.NotNil(t, grad)
	if !grad.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("gradient shape = %v, expected [2 3]", grad.Shape())
	}
	for j := 0; j < 2; j++ {
		for i := 0; i < 3; i++ {
			assert.InDelta(t, x.Data()[i]*g.Data()[j], grad.At(j, i), 1e-12, "dW[%d][%d]", j, i)
		}
	}
}

// TestDiagnosticsKeepWeightsBitIdentical runs the same step with and
// without a diagnostics sink and demands identical resulting weights.
// Diagnostics only add observations; they never reroute the math.
func TestDiagnosticsKeepWeightsBitIdentical(t *testing.T) {
	build := func(diag layers.Diagnostics) *layers.DefaultCellularLayer {
		cfg := layers.DefaultConfig()
		cfg.Rand = rand.New(rand.NewSource(11))
		cfg.Diagnostics = diag
		l, err := layers.Dense(3, 2, false, cfg)
		require.NoError(t, err)
		setup(t, l)
		l.Learning(layers.Scaled(0.1))
		return l
	}

	plain := build(nil)
	observed := build(layers.NewGradientDiagnostics())

	x := tensor.Vector(0.5, -1, 2)
	g := tensor.Vector(1, -2)
	outPlain := forward(t, plain, x).Clone()
	outObserved := forward(t, observed, x)
	for i := range outPlain.Data() {
		if outPlain.Data()[i] != outObserved.Data()[i] {
			t.Fatalf("forward output diverged at %d", i)
		}
	}

	backward(t, plain, g)
	backward(t, observed, g)
	wp := plain.Weights()[0]
	wo := observed.Weights()[0]
	for i := range wp.Data() {
		if wp.Data()[i] != wo.Data()[i] {
			t.Errorf("weight %d diverged: %v vs %v", i, wp.Data()[i], wo.Data()[i])
		}
	}
}

// TestFrozenWeightDiagnostics checks that a frozen weight is skipped by
// the update but still observable: with a sink attached its Jacobian
// and gradient are recorded, and the weight never moves.
func TestFrozenWeightDiagnostics(t *testing.T) {
	w := layers.NewWeight("w", tensor.Vector(2, 3))
	w.Freeze()
	in := expr.Var("in", tensor.New(tensor.Of(2)))
	out := expr.Mul(w.Var(), expr.Const(tensor.Vector(10, 100)))

	prop := layers.NewGradientPropagation("frozen", out, in, []*layers.Weight{w})
	sink := layers.NewGradientDiagnostics()
	prop.SetDiagnostics(sink)

	ops, err := prop.Propagate(expr.Const(tensor.Vector(1, 1)), nil)
	require.NoError(t, err)
	require.NoError(t, ops.Run())

	if w.Tensor().Data()[0] != 2 || w.Tensor().Data()[1] != 3 {
		t.Errorf("frozen weight changed: %v", w.Tensor().Data())
	}
	require.NotNil(t, sink.Jacobians["w"])
	grad := sink.Gradients["w"]
	require.NotNil(t, grad)
	if grad.Data()[0] != 10 || grad.Data()[1] != 100 {
		t.Errorf("recorded gradient = %v, expected [10 100]", grad.Data())
	}
}

// TestFrozenWeightWithoutDiagnostics checks the propagation needs no
// update at all when every weight is frozen.
func TestFrozenWeightWithoutDiagnostics(t *testing.T) {
	w := layers.NewWeight("w", tensor.Vector(2, 3))
	w.Freeze()
	in := expr.Var("in", tensor.New(tensor.Of(2)))
	out := expr.Mul(w.Var(), expr.Const(tensor.Vector(10, 100)))

	prop := layers.NewGradientPropagation("frozen", out, in, []*layers.Weight{w})
	ops, err := prop.Propagate(expr.Const(tensor.Vector(1, 1)), nil)
	require.NoError(t, err)
	require.NoError(t, ops.Run())

	if w.Tensor().Data()[0] != 2 || w.Tensor().Data()[1] != 3 {
		t.Errorf("frozen weight changed: %v", w.Tensor().Data())
	}
}

// TestOutputGradientSizeMismatch checks the backward cell rejects a
// gradient that does not match the layer output.
func TestOutputGradientSizeMismatch(t *testing.T) {
	l, err := layers.Dense(3, 2, false, layers.DefaultConfig())
	require.NoError(t, err)
	setup(t, l)
	l.Learning(layers.Scaled(0.1))
	forward(t, l, tensor.Vector(1, 2, 3))

	_, err = l.Backward().Push(expr.Const(tensor.Vector(1, 1, 1)))
	require.Error(t, err)
}
