package tableio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"saftetl/internal/etlerr"
	"saftetl/internal/table"
	"saftetl/pkg/records"
)

const utf8BOM = "\ufeff"

// ReadOptions tune how a source file is parsed.
type ReadOptions struct {
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
	// Comma is the field delimiter for csv sources. Zero means ','.
	Comma rune
}

// Read loads the file at path into a table. The format is taken from the
// file extension. Cell text is typed per column: a column whose non-empty
// cells all parse as integers becomes int64, one whose cells all parse as
// numbers becomes float64, anything else stays text. Codes with a leading
// zero ("007") keep the column as text, and so does any xlsx cell stored as
// a string. Empty cells are nil.
func Read(ctx context.Context, path string, opts ReadOptions) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", etlerr.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	var header []string
	var rows [][]string
	var text []bool
	switch format {
	case FormatXLSX:
		header, rows, text, err = readXLSX(path, opts.Sheet)
	case FormatCSV:
		comma := opts.Comma
		if comma == 0 {
			comma = ','
		}
		header, rows, err = readDelimited(ctx, path, comma)
	case FormatTSV:
		header, rows, err = readDelimited(ctx, path, '\t')
	default:
		return nil, fmt.Errorf("%w: cannot read %s", etlerr.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return build(header, rows, text), nil
}

// readXLSX returns the sheet cells plus, per column, whether any data cell
// is stored as a string.
func readXLSX(path, sheet string) ([]string, [][]string, []bool, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	// Raw values keep numbers and date serials free of display formatting.
	all, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(all) == 0 {
		return nil, nil, nil, nil
	}
	header, rows := all[0], all[1:]

	text := make([]bool, len(header))
	for i, cells := range rows {
		for j, c := range cells {
			if j >= len(text) || text[j] || strings.TrimSpace(c) == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, nil, nil, err
			}
			typ, err := f.GetCellType(sheet, axis)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("cell type %s: %w", axis, err)
			}
			text[j] = textCell(typ)
		}
	}
	return header, rows, text, nil
}

func textCell(typ excelize.CellType) bool {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return true
	}
	return false
}

func readDelimited(ctx context.Context, path string, comma rune) ([]string, [][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows [][]string
	for {
		if len(rows)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// build turns raw cells into a typed table. Columns flagged in text are
// never sniffed as numbers. Rows shorter than the header are padded with nil;
// extra cells are dropped.
func build(header []string, raw [][]string, text []bool) *table.Table {
	cols := uniqueHeaders(header)
	kinds := make([]table.Kind, len(cols))
	for j := range cols {
		if j < len(text) && text[j] {
			kinds[j] = table.KindString
			continue
		}
		kinds[j] = sniff(raw, j)
	}

	rows := make([]records.Record, 0, len(raw))
	for _, cells := range raw {
		if blank(cells) {
			continue
		}
		r := make(records.Record, len(cols))
		for j, c := range cols {
			var s string
			if j < len(cells) {
				s = strings.TrimSpace(cells[j])
			}
			r[c] = parseCell(s, kinds[j])
		}
		rows = append(rows, r)
	}
	return table.New(cols, rows)
}

// uniqueHeaders fills empty names and suffixes repeats (".1", ".2", ...).
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; seen[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func sniff(raw [][]string, j int) table.Kind {
	kind := table.KindInt
	found := false
	for _, cells := range raw {
		if j >= len(cells) {
			continue
		}
		s := strings.TrimSpace(cells[j])
		if s == "" {
			continue
		}
		found = true
		if leadingZero(s) {
			return table.KindString
		}
		if kind == table.KindInt {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				continue
			}
			kind = table.KindFloat
		}
		if f, err := strconv.ParseFloat(s, 64); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return table.KindString
		}
	}
	if !found {
		return table.KindNull
	}
	return kind
}

// leadingZero reports integer-looking text such as "007" or "-01" whose
// zeros would be lost by a numeric parse. "0" and "0.5" do not count.
func leadingZero(s string) bool {
	s = strings.TrimLeft(s, "+-")
	if len(s) < 2 || s[0] != '0' || s[1] < '0' || s[1] > '9' {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func parseCell(s string, kind table.Kind) any {
	if s == "" {
		return nil
	}
	switch kind {
	case table.KindInt:
		i, _ := strconv.ParseInt(s, 10, 64)
		return i
	case table.KindFloat:
		f, _ := strconv.ParseFloat(s, 64)
		return f
	default:
		return s
	}
}
