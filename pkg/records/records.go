// Package records defines the row representation shared by every stage of the
// pipeline.
package records

import (
	"math"
	"time"
)

// Record is a single row keyed by column name. Values are one of string,
// float64, int64, time.Time or nil.
type Record map[string]any

// Clone returns a shallow copy of r. Values are immutable scalars, so a shallow
// copy is enough to decouple two rows.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsNull reports whether v counts as an absent value. Empty strings are
// treated as null, matching how spreadsheet exports represent blank cells,
// and so is a NaN float.
func IsNull(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	case time.Time:
		return t.IsZero()
	}
	return false
}

// Float returns v as float64 when it is numeric.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float32:
		return float64(t), true
	case int32:
		return float64(t), true
	}
	return 0, false
}
