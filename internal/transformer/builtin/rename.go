package builtin

import (
	"strings"

	"saftetl/internal/table"
	"saftetl/internal/transformer"
)

// DefaultPrefix is the XML namespace prefix SAF-T exports carry on column names.
const DefaultPrefix = "ns1:"

// StripPrefix removes Prefix from every column name that contains it. A column
// whose stripped name already exists is left untouched and reported through
// OnConflict.
type StripPrefix struct {
	Prefix     string
	OnConflict func(from, to string)
}

func (StripPrefix) Name() string { return "strip_prefix" }

// Apply renames the columns of t in place.
func (s StripPrefix) Apply(t *table.Table) transformer.Outcome {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	var out transformer.Outcome
	for _, col := range t.Columns() {
		if !strings.Contains(col, prefix) {
			continue
		}
		to := strings.ReplaceAll(col, prefix, "")
		if t.Rename(col, to) {
			out.Columns++
		} else if s.OnConflict != nil {
			s.OnConflict(col, to)
		}
	}
	return out
}
