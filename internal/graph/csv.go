package graph

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/axon-ml/axon/internal/expr"
	"github.com/axon-ml/axon/internal/op"
)

// CSVReceptor streams pushed values as CSV rows. Each row starts with
// the zero-based push index followed by the flattened elements.
// Attached as an observer, it records the trajectory of an activation
// or weight buffer across training steps.
type CSVReceptor struct {
	label string
	w     *csv.Writer
	row   int
}

// NewCSVReceptor writes rows for every value pushed under label to w.
func NewCSVReceptor(label string, w io.Writer) *CSVReceptor {
	return &CSVReceptor{label: label, w: csv.NewWriter(w)}
}

func (c *CSVReceptor) Push(value expr.Producer) (op.Operation, error) {
	return op.Func("record "+c.label, func() error {
		v := value.Evaluate()
		record := make([]string, 0, v.NumElements()+1)
		record = append(record, strconv.Itoa(c.row))
		for _, x := range v.Data() {
			record = append(record, strconv.FormatFloat(x, 'g', -1, 64))
		}
		c.row++
		if err := c.w.Write(record); err != nil {
			return err
		}
		c.w.Flush()
		return c.w.Error()
	}), nil
}
