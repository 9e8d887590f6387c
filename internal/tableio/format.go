// Package tableio reads and writes Record Tables as spreadsheet, delimited
// text and parquet files.
package tableio

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"saftetl/internal/etlerr"
)

// Format names a tabular file format.
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatParquet Format = "parquet"
)

// TimeLayout is the layout datetimes are written with.
const TimeLayout = "2006-01-02 15:04:05"

// ParseFormat resolves a user supplied format name. "excel" is accepted as an
// alias of xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xlsx", "xlsm", "excel":
		return FormatXLSX, nil
	case "csv", "txt":
		return FormatCSV, nil
	case "tsv", "tab":
		return FormatTSV, nil
	case "parquet":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %q", etlerr.ErrUnsupportedFormat, s)
}

// FormatFromPath derives the format from the file extension of path.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", etlerr.ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// FormatValue renders a cell value as text. Nil renders as "".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(TimeLayout)
	default:
		return fmt.Sprint(t)
	}
}
