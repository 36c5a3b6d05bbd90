package op

import (
	"errors"
	"testing"
)

func TestFunc(t *testing.T) {
	ran := false
	o := Func("set flag", func() error {
		ran = true
		return nil
	})

	if o.Describe() != "set flag" {
		t.Errorf("Describe() = %q, want %q", o.Describe(), "set flag")
	}
	if err := o.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !ran {
		t.Error("Run should invoke the wrapped function")
	}
}

func TestNop(t *testing.T) {
	o := Nop()
	if err := o.Run(); err != nil {
		t.Errorf("Nop().Run() = %v, want nil", err)
	}
	if o.Describe() != "nop" {
		t.Errorf("Describe() = %q, want %q", o.Describe(), "nop")
	}
}

func TestListRunsInOrder(t *testing.T) {
	var order []int
	step := func(i int) Operation {
		return Func("step", func() error {
			order = append(order, i)
			return nil
		})
	}

	l := Sequence(step(1), step(2), step(3))
	if err := l.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("ran %d operations, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("execution order = %v, want %v", order, want)
			break
		}
	}
}

func TestListStopsAtFirstError(t *testing.T) {
	var order []int
	boom := errors.New("boom")

	l := Sequence(
		Func("a", func() error { order = append(order, 1); return nil }),
		Func("b", func() error { return boom }),
		Func("c", func() error { order = append(order, 3); return nil }),
	)

	if err := l.Run(); !errors.Is(err, boom) {
		t.Errorf("Run() = %v, want %v", err, boom)
	}
	if len(order) != 1 || order[0] != 1 {
		t.Errorf("operations after the failure should not run, got %v", order)
	}
}

func TestListSkipsNilMembers(t *testing.T) {
	ran := false
	l := Sequence(nil, Func("x", func() error { ran = true; return nil }), nil)

	if err := l.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !ran {
		t.Error("non-nil member should still run")
	}
}

func TestListAdd(t *testing.T) {
	var l List
	l.Add(Nop())
	l.Add(Nop(), Nop())

	if len(l) != 3 {
		t.Errorf("len = %d, want 3", len(l))
	}
}

func TestListDescribe(t *testing.T) {
	l := Sequence(Func("first", nil), Func("second", nil))
	if got := l.Describe(); got != "first; second" {
		t.Errorf("Describe() = %q, want %q", got, "first; second")
	}

	if got := (List{}).Describe(); got != "nop" {
		t.Errorf("empty Describe() = %q, want %q", got, "nop")
	}
}

func TestNestedList(t *testing.T) {
	count := 0
	inc := Func("inc", func() error { count++; return nil })

	inner := Sequence(inc, inc)
	outer := Sequence(inc, inner)

	if err := outer.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
