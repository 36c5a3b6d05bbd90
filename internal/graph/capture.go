package graph

import (
	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
)

// CaptureReceptor records the last pushed producer without consuming
// it. Combinators use it to lift one cell's output into an operand of
// another expression.
type CaptureReceptor struct {
	value expr.Producer
}

func (c *CaptureReceptor) Push(value expr.Producer) (op.Operation, error) {
	c.value = value
	return op.Nop(), nil
}

// Value returns the captured producer, or nil before the first push.
func (c *CaptureReceptor) Value() expr.Producer {
	return c.value
}
