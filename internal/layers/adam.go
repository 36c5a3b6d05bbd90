package layers

import (
	"fmt"
	"math"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// adamEpsilon keeps the denominator of the Adam step away from zero.
const adamEpsilon = 1e-7

// AdamOptimizer implements the Adam update rule as a ParameterUpdate:
//
//	m_t = beta1*m_{t-1} + (1-beta1)*g
//	v_t = beta2*v_{t-1} + (1-beta2)*g^2
//	w  -= lr * (m_t / (1-beta1^t)) / (sqrt(v_t / (1-beta2^t)) + eps)
//
// Moment buffers and the step counter are allocated lazily per weight
// tensor on the first step that touches it, so one optimizer instance
// can serve every weight in a model. Not safe for concurrent use.
type AdamOptimizer struct {
	lr    float64
	beta1 float64
	beta2 float64
	state map[*tensor.Tensor]*adamState
}

type adamState struct {
	m *tensor.Tensor
	v *tensor.Tensor
	t int
}

// NewAdamOptimizer returns an Adam update with the given learning rate
// and moment decay rates. Common values are beta1 0.9 and beta2 0.999.
func NewAdamOptimizer(lr, beta1, beta2 float64) *AdamOptimizer {
	return &AdamOptimizer{
		lr:    lr,
		beta1: beta1,
		beta2: beta2,
		state: make(map[*tensor.Tensor]*adamState),
	}
}

func (a *AdamOptimizer) stateFor(weights *tensor.Tensor) *adamState {
	st, ok := a.state[weights]
	if !ok {
		st = &adamState{
			m: tensor.New(weights.Shape()),
			v: tensor.New(weights.Shape()),
		}
		a.state[weights] = st
	}
	return st
}

func (a *AdamOptimizer) Apply(name string, weights *tensor.Tensor, gradient expr.Producer) (op.Operation, error) {
	if gradient.Shape().NumElements() != weights.NumElements() {
		return nil, fmt.Errorf("layers: gradient %v does not match weights %s %v",
			gradient.Shape(), name, weights.Shape())
	}
	return &adamStep{opt: a, name: name, weights: weights, gradient: gradient}, nil
}

// adamStep advances the moments for one weight tensor and applies the
// bias-corrected step when run.
type adamStep struct {
	opt      *AdamOptimizer
	name     string
	weights  *tensor.Tensor
	gradient expr.Producer
}

func (s *adamStep) Describe() string {
	return fmt.Sprintf("adam %s %v", s.name, s.weights.Shape())
}

func (s *adamStep) Run() error {
	g := s.gradient.Evaluate()
	st := s.opt.stateFor(s.weights)
	st.t++

	c1 := 1 - math.Pow(s.opt.beta1, float64(st.t))
	c2 := 1 - math.Pow(s.opt.beta2, float64(st.t))

	wd := s.weights.Data()
	gd := g.Data()
	md := st.m.Data()
	vd := st.v.Data()
	for i := range wd {
		md[i] = s.opt.beta1*md[i] + (1-s.opt.beta1)*gd[i]
		vd[i] = s.opt.beta2*vd[i] + (1-s.opt.beta2)*gd[i]*gd[i]
		mhat := md[i] / c1
		vhat := vd[i] / c2
		wd[i] -= s.opt.lr * mhat / (math.Sqrt(vhat) + adamEpsilon)
	}
	return nil
}
