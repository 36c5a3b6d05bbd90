// Package op implements deferred operations.
//
// Public engine entry points (layer setup, forward push, backward push)
// return Operation values describing work instead of performing it.
// Callers collect and run them later, usually batched into a List.
//
// Execution is strictly sequential: operations run in the order they
// were composed, and the first failure stops the run. There is no
// scheduler and no reordering, so any dependency expressed by list
// order is honored exactly.
//
// Example usage:
//
//	setup, _ := cell.Setup()
//	fw, _ := cell.Push(input)
//	if err := op.Sequence(setup, fw).Run(); err != nil {
//	    log.Fatal(err)
//	}
package op

import "strings"

// An Operation is a unit of deferred work.
//
// Describing and running are separate so callers can inspect or log a
// schedule before executing it. Run performs the side effect (buffer
// assignment, weight step, downstream push) and reports failure.
type Operation interface {
	// Describe returns a short human-readable summary of the work.
	Describe() string

	// Run performs the work. Operations assume everything scheduled
	// before them in the same List has already completed.
	Run() error
}

// Func wraps a function as an Operation with a fixed description.
//
// Most engine commands are named types with typed fields; Func covers
// one-off glue where a dedicated type would not carry its weight.
func Func(desc string, fn func() error) Operation {
	return funcOp{desc: desc, fn: fn}
}

type funcOp struct {
	desc string
	fn   func() error
}

func (o funcOp) Describe() string { return o.desc }
func (o funcOp) Run() error       { return o.fn() }

// Nop returns an Operation that does nothing.
//
// Setup paths with no work return it instead of nil so callers can run
// results unconditionally.
func Nop() Operation {
	return funcOp{desc: "nop", fn: func() error { return nil }}
}

// List is an ordered sequence of Operations, itself an Operation.
//
// Running a List runs each member in order. The first error aborts the
// remainder and is returned to the caller.
type List []Operation

// Sequence builds a List from the given operations. Nil members are
// permitted and skipped at run time.
func Sequence(ops ...Operation) List {
	return List(ops)
}

// Add appends operations to the list.
func (l *List) Add(ops ...Operation) {
	*l = append(*l, ops...)
}

// Describe joins the member descriptions with "; ".
func (l List) Describe() string {
	if len(l) == 0 {
		return "nop"
	}
	parts := make([]string, 0, len(l))
	for _, o := range l {
		if o == nil {
			continue
		}
		parts = append(parts, o.Describe())
	}
	if len(parts) == 0 {
		return "nop"
	}
	return strings.Join(parts, "; ")
}

// Run executes the members in order, stopping at the first error.
func (l List) Run() error {
	for _, o := range l {
		if o == nil {
			continue
		}
		if err := o.Run(); err != nil {
			return err
		}
	}
	return nil
}
