package tableio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	json "github.com/goccy/go-json"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"github.com/xuri/excelize/v2"

	"saftetl/internal/etlerr"
	"saftetl/internal/table"
)

// SheetName is the worksheet written to xlsx outputs.
const SheetName = "Sheet1"

// Write stores t at path in the given format. No row index column is
// written. Parent directories are created as needed.
func Write(path string, t *table.Table, format Format) error {
	if t == nil {
		return etlerr.ErrNoData
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	switch format {
	case FormatXLSX:
		return writeXLSX(path, t)
	case FormatCSV:
		return writeDelimited(path, t, ',')
	case FormatTSV:
		return writeDelimited(path, t, '\t')
	case FormatParquet:
		return writeParquet(path, t)
	}
	return fmt.Errorf("%w: %q", etlerr.ErrUnsupportedFormat, format)
}

func writeDelimited(path string, t *table.Table, comma rune) (err error) {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(fh)
	w.Comma = comma
	cols := t.Columns()
	if err := w.Write(cols); err != nil {
		return err
	}
	line := make([]string, len(cols))
	for _, r := range t.Rows() {
		for j, c := range cols {
			line[j] = FormatValue(r[c])
		}
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path string, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("xlsx stream writer: %w", err)
	}
	cols := t.Columns()
	header := make([]any, len(cols))
	for j, c := range cols {
		header[j] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, r := range t.Rows() {
		cells := make([]any, len(cols))
		for j, c := range cols {
			cells[j] = xlsxValue(r[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx flush: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func xlsxValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return FormatValue(t)
	default:
		return t
	}
}

var unsafeFieldChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// parquetFields maps column names to unique names the parquet schema tag
// syntax accepts.
func parquetFields(cols []string) []string {
	out := make([]string, len(cols))
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		base := unsafeFieldChars.ReplaceAllString(c, "_")
		name := base
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func parquetType(k table.Kind) string {
	switch k {
	case table.KindFloat:
		return "type=DOUBLE"
	case table.KindInt:
		return "type=INT64"
	default:
		return "type=BYTE_ARRAY, convertedtype=UTF8"
	}
}

func parquetSchema(t *table.Table, names []string) (string, error) {
	cols := t.Columns()
	fields := make([]map[string]string, 0, len(cols))
	for j, c := range cols {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", names[j], parquetType(t.Kind(c))),
		})
	}
	b, err := json.Marshal(map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	})
	return string(b), err
}

func parquetValue(v any, k table.Kind) any {
	switch k {
	case table.KindFloat, table.KindInt:
		return v
	}
	if v == nil {
		return nil
	}
	return FormatValue(v)
}

func writeParquet(path string, t *table.Table) error {
	cols := t.Columns()
	names := parquetFields(cols)
	schema, err := parquetSchema(t, names)
	if err != nil {
		return fmt.Errorf("parquet schema: %w", err)
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	pw, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, r := range t.Rows() {
		row := make(map[string]any, len(cols))
		for j, c := range cols {
			row[names[j]] = parquetValue(r[c], t.Kind(c))
		}
		b, err := json.Marshal(row)
		if err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("parquet row %d: %w", i+1, err)
		}
		if err := pw.Write(string(b)); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("parquet row %d: %w", i+1, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet finish: %w", err)
	}
	return fw.Close()
}
