package layers_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/graph"
	"github.com/axon-ml/axon/internal/layers"
	"github.com/axon-ml/axon/internal/tensor"
)

// testRand returns a deterministic source so weight initialization is
// reproducible across runs.
func testRand() *rand.Rand {
	return rand.New(rand.NewSource(99))
}

// setup runs a layer's initialization work.
func setup(t *testing.T, l *layers.DefaultCellularLayer) {
	t.Helper()
	init, err := l.Setup()
	require.NoError(t, err)
	require.NoError(t, init.Run())
}

// forward pushes x through the layer and returns the recorded output
// buffer. The buffer is live; clone it before anything else runs.
func forward(t *testing.T, l *layers.DefaultCellularLayer, x *tensor.Tensor) *tensor.Tensor {
	t.Helper()
	ops, err := l.Forward().Push(expr.Const(x))
	require.NoError(t, err)
	require.NoError(t, ops.Run())
	return l.Output()
}

// backward pushes an output gradient into the layer's backward cell.
func backward(t *testing.T, l *layers.DefaultCellularLayer, grad *tensor.Tensor) {
	t.Helper()
	ops, err := l.Backward().Push(expr.Const(grad))
	require.NoError(t, err)
	require.NoError(t, ops.Run())
}

// captureInputGradient attaches a buffer receiving the layer's input
// gradient on every backward pass.
func captureInputGradient(l *layers.DefaultCellularLayer) *tensor.Tensor {
	buf := tensor.New(l.InputShape())
	l.Backward().SetReceptor(graph.Into("input gradient", buf))
	return buf
}
