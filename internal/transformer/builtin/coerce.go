package builtin

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"saftetl/internal/table"
	"saftetl/internal/transformer"
	"saftetl/pkg/records"
)

// DateLayouts are tried in order when a text value is coerced to a datetime.
// Day-first layouts put the day before the month, whatever the year width.
var DateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"02.01.2006",
	"02-01-2006",
	"2006/01/02",
	"02-01-06",
}

// Excel serial numbers outside this range are not treated as dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

// Coerce converts columns to target kinds. Values that cannot be converted
// become nil; a failed conversion never aborts the transform. Columns that are
// not present in the table are skipped.
type Coerce struct {
	Types map[string]table.Kind
}

func (Coerce) Name() string { return "coerce" }

// Apply converts every mapped column of t in place and declares its kind.
func (c Coerce) Apply(t *table.Table) transformer.Outcome {
	var out transformer.Outcome
	// Map iteration order is random; sort so logs and outcomes are stable.
	cols := make([]string, 0, len(c.Types))
	for col := range c.Types {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		if !t.Has(col) {
			continue
		}
		kind := c.Types[col]
		for _, r := range t.Rows() {
			v, ok := CoerceValue(r[col], kind)
			if !ok && !records.IsNull(r[col]) {
				out.Nulled++
			}
			r[col] = v
		}
		t.SetKind(col, kind)
		out.Columns++
	}
	return out
}

// CoerceValue converts v to kind. It returns (nil, false) when v is null or
// cannot be represented as kind.
func CoerceValue(v any, kind table.Kind) (any, bool) {
	if records.IsNull(v) {
		return nil, false
	}
	switch kind {
	case table.KindFloat:
		return toFloat(v)
	case table.KindInt:
		return toInt(v)
	case table.KindTime:
		return toTime(v)
	case table.KindString:
		return toString(v), true
	default:
		return nil, false
	}
}

func toFloat(v any) (any, bool) {
	if f, ok := records.Float(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(f) {
			return f, true
		}
	}
	return nil, false
}

func toInt(v any) (any, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return integral(f)
		}
		return nil, false
	}
	if f, ok := records.Float(v); ok {
		return integral(f)
	}
	return nil, false
}

func integral(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, false
	}
	return int64(f), true
}

func toTime(v any) (any, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range DateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		// Spreadsheet cells sometimes surface dates as their serial number.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
		return nil, false
	}
	if f, ok := records.Float(v); ok {
		return fromSerial(f)
	}
	return nil, false
}

func fromSerial(f float64) (any, bool) {
	if f < minExcelSerial || f > maxExcelSerial {
		return nil, false
	}
	ts, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return nil, false
	}
	return ts, true
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(t)
	}
}
