// Package transformer defines the contract for in-place table transforms used
// by the pipeline. Concrete transforms live in transformer/builtin.
package transformer

import "saftetl/internal/table"

// Outcome reports what a transform changed.
type Outcome struct {
	// Rows is the number of rows removed.
	Rows int
	// Columns is the number of columns renamed, coerced or removed, depending
	// on the transform.
	Columns int
	// Nulled is the number of values that could not be converted and were
	// replaced by nil.
	Nulled int
}

// Transformer mutates a table in place.
type Transformer interface {
	Name() string
	Apply(t *table.Table) Outcome
}
