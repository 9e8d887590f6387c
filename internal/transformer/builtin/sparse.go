package builtin

import (
	"saftetl/internal/table"
	"saftetl/internal/transformer"
)

// DefaultSparseThreshold is the null fraction above which a column is dropped.
const DefaultSparseThreshold = 0.5

// DropSparse removes every column whose null fraction exceeds Threshold
// (0..1). An empty table keeps all of its columns.
type DropSparse struct {
	Threshold float64
}

func (DropSparse) Name() string { return "drop_sparse" }

// Apply drops sparse columns from t in place.
func (d DropSparse) Apply(t *table.Table) transformer.Outcome {
	if t.Len() == 0 {
		return transformer.Outcome{}
	}
	var sparse []string
	for _, col := range t.Columns() {
		if float64(t.NullCount(col))/float64(t.Len()) > d.Threshold {
			sparse = append(sparse, col)
		}
	}
	return transformer.Outcome{Columns: t.Drop(sparse...)}
}
