package layers

import (
	"math/rand"

	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// weightInit fills a weight tensor when run. Factories return these
// from Setup so weights stay untouched until the caller runs the
// setup work.
type weightInit struct {
	name string
	dst  *tensor.Tensor
	fill func(*tensor.Tensor)
}

func (w *weightInit) Describe() string { return "init " + w.name }

func (w *weightInit) Run() error {
	w.fill(w.dst)
	return nil
}

func initRandn(name string, dst *tensor.Tensor, std float64, rng *rand.Rand) op.Operation {
	return &weightInit{name: name, dst: dst, fill: func(t *tensor.Tensor) {
		d := t.Data()
		for i := range d {
			d[i] = rng.NormFloat64() * std
		}
	}}
}

func initConst(name string, dst *tensor.Tensor, value float64) op.Operation {
	return &weightInit{name: name, dst: dst, fill: func(t *tensor.Tensor) {
		t.Fill(value)
	}}
}
