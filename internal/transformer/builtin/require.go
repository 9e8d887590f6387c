// Package builtin contains the table transforms used by the SAF-T pipeline.
package builtin

import (
	"saftetl/internal/table"
	"saftetl/internal/transformer"
	"saftetl/pkg/records"
)

// Require removes any row missing a value for one of the specified fields.
// A field that is not a column of the table is missing in every row.
type Require struct {
	Fields []string
}

func (Require) Name() string { return "require" }

// Apply filters t in place, keeping only rows where every field is non-null.
func (r Require) Apply(t *table.Table) transformer.Outcome {
	removed := t.Filter(func(rec records.Record) bool {
		for _, f := range r.Fields {
			if records.IsNull(rec[f]) {
				return false
			}
		}
		return true
	})
	return transformer.Outcome{Rows: removed}
}
