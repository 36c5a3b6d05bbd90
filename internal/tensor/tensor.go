package tensor

import (
	"fmt"
	"math/rand"
)

// Tensor is a dense multi-dimensional array of float64 values in
// row-major order.
//
// Tensors are plain storage: they carry no gradient state and perform no
// computation of their own. Symbolic producers read from them and deferred
// operations write into them, so a Tensor behaves as a named buffer that
// is stable across repeated runs of the same operation list.
//
// Example:
//
//	t := tensor.New(tensor.Shape{3, 4})
//	t.Set(2.5, 1, 2)
//	value := t.At(1, 2)
type Tensor struct {
	shape Shape
	data  []float64
}

// New creates a zero-filled tensor with the given shape.
// Panics if the shape has non-positive dimensions.
func New(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.New: %v", err))
	}
	return &Tensor{
		shape: shape.Clone(),
		data:  make([]float64, shape.NumElements()),
	}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	t := New(shape)
	copy(t.data, data)
	return t, nil
}

// Vector creates a 1-D tensor holding the given values.
func Vector(values ...float64) *Tensor {
	t := New(Shape{len(values)})
	copy(t.data, values)
	return t
}

// Randn creates a tensor filled with values drawn from N(0, 1) scaled
// by std, using the provided random source.
func Randn(shape Shape, std float64, rng *rand.Rand) *Tensor {
	t := New(shape)
	for i := range t.data {
		t.data[i] = rng.NormFloat64() * std
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// Data returns the underlying slice of the tensor's data.
// The slice directly accesses the tensor's memory (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Item returns the value of a single-element tensor.
// Panics if the tensor holds more than one element.
func (t *Tensor) Item() float64 {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for single-element tensors, got shape %v", t.shape))
	}
	return t.data[0]
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.shape.Index(indices...)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.shape.Index(indices...)] = value
}

// Fill sets every element to the given value.
func (t *Tensor) Fill(value float64) {
	for i := range t.data {
		t.data[i] = value
	}
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := New(t.shape)
	copy(c.data, t.data)
	return c
}

// CopyFrom copies the contents of src into this tensor.
// The element counts must match; the shapes themselves may differ
// when one side is a reshaped view of the same data layout.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if len(t.data) != len(src.data) {
		return fmt.Errorf("cannot copy %v into %v: element count mismatch (%d vs %d)",
			src.shape, t.shape, len(src.data), len(t.data))
	}
	copy(t.data, src.data)
	return nil
}

// Reshape returns a tensor with the given shape sharing this tensor's
// data. The total number of elements must be preserved.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := t.shape.CompatibleWith(shape); err != nil {
		return nil, err
	}
	return &Tensor{shape: shape.Clone(), data: t.data}, nil
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}
