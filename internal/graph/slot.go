package graph

import (
	"log/slog"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
)

// ReceptorSlot holds at most one downstream receptor.
//
// Set stores a receptor and logs a warning if a different one was
// already present: wiring the same outlet twice is almost always a
// composition bug, but the engine recovers by keeping the newer
// receptor. Replace swaps receptors silently for callers that mean to
// rewire.
//
// The zero value is an empty slot.
type ReceptorSlot struct {
	// Name identifies the owning cell in replacement warnings.
	Name string

	r Receptor
}

// Set stores r, warning when it displaces a different receptor.
func (s *ReceptorSlot) Set(r Receptor) {
	if s.r != nil && s.r != r {
		slog.Warn("replacing receptor", "cell", s.Name)
	}
	s.r = r
}

// Replace stores r without the duplicate warning.
func (s *ReceptorSlot) Replace(r Receptor) {
	s.r = r
}

// Get returns the held receptor, if any.
func (s *ReceptorSlot) Get() (Receptor, bool) {
	return s.r, s.r != nil
}

// Present reports whether the slot holds a receptor.
func (s *ReceptorSlot) Present() bool {
	return s.r != nil
}

// Push forwards value to the held receptor, or returns Nop when the
// slot is empty.
func (s *ReceptorSlot) Push(value expr.Producer) (op.Operation, error) {
	if s.r == nil {
		return op.Nop(), nil
	}
	return s.r.Push(value)
}
