package expr

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/axon-ml/axon/internal/op"
	"github.com/axon-ml/axon/internal/tensor"
)

// Assign returns a deferred command that evaluates src and stores the
// result into dst. The element counts must match when the command
// runs.
func Assign(label string, dst *tensor.Tensor, src Producer) op.Operation {
	return &assign{label: label, dst: dst, src: src}
}

type assign struct {
	label string
	dst   *tensor.Tensor
	src   Producer
}

func (a *assign) Describe() string {
	return fmt.Sprintf("%s <- %v", a.label, a.src.Shape())
}

func (a *assign) Run() error {
	v := a.src.Evaluate()
	if v == a.dst {
		return nil
	}
	if err := a.dst.CopyFrom(v); err != nil {
		return fmt.Errorf("assign %s: %w", a.label, err)
	}
	return nil
}

// AddAssign returns a deferred command that evaluates src and adds the
// result element-wise into dst.
func AddAssign(label string, dst *tensor.Tensor, src Producer) op.Operation {
	return &addAssign{label: label, dst: dst, src: src}
}

type addAssign struct {
	label string
	dst   *tensor.Tensor
	src   Producer
}

func (a *addAssign) Describe() string {
	return fmt.Sprintf("%s += %v", a.label, a.src.Shape())
}

func (a *addAssign) Run() error {
	v := a.src.Evaluate()
	if v.NumElements() != a.dst.NumElements() {
		return fmt.Errorf("accumulate %s: cannot add %v into %v",
			a.label, v.Shape(), a.dst.Shape())
	}
	floats.Add(a.dst.Data(), v.Data())
	return nil
}
