package builtin

import (
	"saftetl/internal/table"
	"saftetl/internal/transformer"
	"saftetl/pkg/records"
)

// DeDup drops rows that duplicate an earlier row across Keys. The first
// occurrence wins and survivors keep their relative order. An empty Keys
// slice compares rows across every column of the table.
type DeDup struct {
	Keys []string
}

func (DeDup) Name() string { return "dedup" }

// Apply removes duplicate rows from t in place.
func (d DeDup) Apply(t *table.Table) transformer.Outcome {
	if t.Len() == 0 {
		return transformer.Outcome{}
	}
	keys := d.Keys
	if len(keys) == 0 {
		keys = t.Columns()
	}

	seen := make(map[table.Key]struct{}, t.Len())
	removed := t.Filter(func(r records.Record) bool {
		k := table.KeyOf(r, keys)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
	return transformer.Outcome{Rows: removed}
}
