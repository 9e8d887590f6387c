package quality

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"saftetl/internal/table"
	"saftetl/pkg/records"
)

func f64(v float64) *float64 { return &v }

func column(name string, values ...any) *table.Table {
	rows := make([]records.Record, len(values))
	for i, v := range values {
		rows[i] = records.Record{name: v}
	}
	return table.New([]string{name}, rows)
}

func TestCompleteness(t *testing.T) {
	values := make([]any, 100)
	for i := range values {
		values[i] = float64(i)
	}
	values[3], values[50], values[99] = nil, "", nil
	s := NewSuite(column("CreditAmount", values...), "vendas")

	r := s.Completeness("CreditAmount", DefaultMaxNullPct)
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, 3, r.Details[KeyNulls])
	assert.Equal(t, 3.0, r.Details[KeyNullPct])

	r = s.Completeness("CreditAmount", 2.0)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "limit: 2%")
}

func TestCompletenessMissingColumn(t *testing.T) {
	s := NewSuite(column("a", 1.0), "")
	r := s.Completeness("b", 5)
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, []string{"a"}, r.Details[KeyValidColumns])

	rs := s.CompletenessAll([]string{"a", "b"}, 5)
	require.Len(t, rs, 2)
	assert.Equal(t, StatusPass, rs[0].Status)
	assert.Equal(t, StatusFail, rs[1].Status)
	assert.Len(t, s.Results(), 3)
}

func TestTypeMatch(t *testing.T) {
	tb := table.New([]string{"d", "n"}, []records.Record{{"d": time.Now(), "n": "x"}})
	s := NewSuite(tb, "")
	assert.Equal(t, StatusPass, s.TypeMatch("d", table.KindTime).Status)

	r := s.TypeMatch("n", table.KindFloat)
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, "string", r.Details[KeyActualType])
	assert.Equal(t, "float64", r.Details[KeyExpectedType])

	assert.Equal(t, StatusFail, s.TypeMatch("zz", table.KindFloat).Status)
}

func TestRange(t *testing.T) {
	s := NewSuite(column("q", -1.0, 0.0, 5.0, 10.0, nil), "")
	r := s.Range("q", f64(0), nil)
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, 1, r.Details[KeyViolations])
	assert.Equal(t, -1.0, r.Details[KeyMin])
	assert.Equal(t, 10.0, r.Details[KeyMax])

	r = s.Range("q", f64(-5), f64(10))
	assert.Equal(t, StatusPass, r.Status)

	r = s.Range("q", nil, f64(5))
	assert.Equal(t, 1, r.Details[KeyViolations])
}

func TestRangeCountsNonNumericAsViolation(t *testing.T) {
	s := NewSuite(column("tax", 23.0, "abc", int64(6)), "")
	r := s.Range("tax", f64(0), f64(100))
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, 1, r.Details[KeyViolations])
}

func TestRangeAllNull(t *testing.T) {
	s := NewSuite(column("q", nil, nil), "")
	r := s.Range("q", f64(0), nil)
	assert.Equal(t, StatusPass, r.Status)
	assert.Nil(t, r.Details[KeyMin])
}

func pairs() *table.Table {
	return table.New([]string{"a", "b"}, []records.Record{
		{"a": 1.0, "b": 1.0},
		{"a": 1.0, "b": 1.0},
		{"a": 2.0, "b": 2.0},
	})
}

func TestPrimaryKey(t *testing.T) {
	s := NewSuite(pairs(), "")
	r := s.PrimaryKey([]string{"a", "b"})
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, 2, r.Details[KeyUnique])
	assert.Equal(t, 3, r.Details[KeyTotal])

	assert.Equal(t, StatusFail, s.PrimaryKey([]string{"a", "c"}).Status)
}

func TestDuplicates(t *testing.T) {
	s := NewSuite(pairs(), "")
	r := s.Duplicates([]string{"a", "b"}, true)
	assert.Equal(t, StatusWarning, r.Status)
	assert.Equal(t, 1, r.Details[KeyDuplicates])
	assert.Equal(t, 33.33, r.Details[KeyPercentage])

	assert.Equal(t, StatusFail, s.Duplicates([]string{"a"}, false).Status)
	assert.Equal(t, StatusFail, s.Duplicates([]string{"a", "zz"}, true).Status, "missing column")
}

func TestDuplicatesUnique(t *testing.T) {
	s := NewSuite(column("a", 1.0, 2.0), "")
	r := s.Duplicates([]string{"a"}, false)
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, 0.0, r.Details[KeyPercentage])
}

func TestPositive(t *testing.T) {
	s := NewSuite(column("v", 1.0, -2.0, nil, -0.5), "")
	r := s.Positive("v")
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, 2, r.Details[KeyNegatives])
}

func TestValidDates(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	s := NewSuite(column("InvoiceDate", d2, nil, d1), "")
	r := s.ValidDates("InvoiceDate")
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, "2024-01-01 00:00:00", r.Details[KeyMinDate])
	assert.Equal(t, "2024-03-31 12:00:00", r.Details[KeyMaxDate])

	s = NewSuite(column("InvoiceDate", "2024-01-01"), "")
	assert.Equal(t, StatusFail, s.ValidDates("InvoiceDate").Status)
}

func TestCustom(t *testing.T) {
	s := NewSuite(column("v", 1.0, 2.0, 3.0), "")
	r := s.Custom("small values", func(r records.Record) bool {
		f, _ := records.Float(r["v"])
		return f < 3
	}, "", "values too large")
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, 1, r.Details[KeyFailures])
	assert.Equal(t, "values too large (1 rows)", r.Message)
}

func TestConsistentBilling(t *testing.T) {
	tb := table.New([]string{"CreditAmount", "Quantity", "UnitPrice"}, []records.Record{
		{"CreditAmount": 10.0, "Quantity": 2.0, "UnitPrice": 5.0},
		{"CreditAmount": 3.5, "Quantity": 1.0, "UnitPrice": 3.0},
		{"CreditAmount": nil, "Quantity": 1.0, "UnitPrice": 3.0},
		{"CreditAmount": 0.3, "Quantity": 3.0, "UnitPrice": 0.1},
	})
	s := NewSuite(tb, "")
	r := s.ConsistentBilling("CreditAmount", "Quantity", "UnitPrice")
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, 1, r.Details[KeyInconsistent])

	r = s.ConsistentBilling("CreditAmount", "Qty", "UnitPrice")
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "Qty")
}

func TestReportEmptySuite(t *testing.T) {
	_, err := NewSuite(pairs(), "").Report()
	assert.ErrorIs(t, err, ErrNoTestsRun)
}

func fixedSuite() *Suite {
	ts := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	s := NewSuite(pairs(), "SAF-T", WithClock(func() time.Time { return ts }))
	s.Completeness("a", 5)
	s.PrimaryKey([]string{"a", "b"})
	s.Duplicates([]string{"a", "b"}, true)
	return s
}

func TestReport(t *testing.T) {
	rep, err := fixedSuite().Report()
	require.NoError(t, err)
	assert.Equal(t, "SAF-T", rep.Dataset)
	assert.Equal(t, "2025-02-03T04:05:06Z", rep.Timestamp)
	assert.Equal(t, 3, rep.Rows)
	assert.Equal(t, 2, rep.Columns)
	assert.Equal(t, Totals{Total: 3, Passed: 1, Failed: 1, Warnings: 1}, rep.Tests)
	assert.Equal(t, 33.33, rep.SuccessRate)
	assert.Len(t, rep.Results, 3)
}

func TestExportJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	s := fixedSuite()

	jp := filepath.Join(dir, "quality_report.json")
	require.NoError(t, s.ExportJSON(jp))
	b, err := os.ReadFile(jp)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "SAF-T", got["dataset"])
	assert.Equal(t, 33.33, got["success_rate"])
	tests := got["tests"].(map[string]any)
	assert.Equal(t, 3.0, tests["total"])
	results := got["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "PASS", first["status"])
	assert.Contains(t, first["details"], KeyNullPct)
	assert.NotContains(t, got, "error")

	rep, err := s.Report()
	require.NoError(t, err)
	yp := filepath.Join(dir, "quality_report.yaml")
	require.NoError(t, rep.ExportYAML(yp))
	yb, err := os.ReadFile(yp)
	require.NoError(t, err)
	var back Report
	require.NoError(t, yaml.Unmarshal(yb, &back))
	assert.Equal(t, rep.Tests, back.Tests)
	assert.Equal(t, rep.Results[2].Status, back.Results[2].Status)
}

func TestWriteText(t *testing.T) {
	rep, err := fixedSuite().Report()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "DATA QUALITY REPORT - SAF-T")
	assert.Contains(t, out, "Success rate: 33.33%")
	assert.Contains(t, out, "[WARNING] 1 duplicate rows found")
	assert.Contains(t, out, "- unicos: 2")
}

func TestSuiteDoesNotMutateTable(t *testing.T) {
	tb := pairs()
	before := tb.Clone()
	s := NewSuite(tb, "")
	s.Range("a", f64(0), nil)
	s.Duplicates([]string{"a"}, false)
	s.ValidDates("a")
	assert.Equal(t, before.Rows(), tb.Rows())
	assert.Equal(t, before.Columns(), tb.Columns())
}
