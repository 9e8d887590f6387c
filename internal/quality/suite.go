// Package quality implements the data-quality stage: a suite of checks run
// against a cleaned table, each producing a PASS, FAIL or WARNING result, and
// the report built from those results.
//
// Checks never return errors. A check that names a column the table does not
// have records a FAIL result and the suite carries on.
package quality

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"saftetl/internal/metrics"
	"saftetl/internal/table"
	"saftetl/pkg/records"
)

// DefaultMaxNullPct is the completeness threshold used when none is given.
const DefaultMaxNullPct = 5.0

// BillingTolerance is the largest accepted difference between an amount and
// quantity times unit price.
const BillingTolerance = 0.01

// Suite accumulates check results for one table. It never mutates the table.
type Suite struct {
	t       *table.Table
	dataset string
	started time.Time
	results []Result
	log     *zap.Logger
}

// Option configures a Suite.
type Option func(*Suite)

// WithLogger sets the logger used for per-check debug lines.
func WithLogger(l *zap.Logger) Option {
	return func(s *Suite) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock fixes the report timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Suite) { s.started = now() }
}

// NewSuite prepares a suite over t. dataset names the table in reports.
func NewSuite(t *table.Table, dataset string, opts ...Option) *Suite {
	if t == nil {
		t = table.New(nil, nil)
	}
	if dataset == "" {
		dataset = "Dataset"
	}
	s := &Suite{t: t, dataset: dataset, started: time.Now(), log: zap.NewNop()}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

// Results returns a copy of the results recorded so far, in run order.
func (s *Suite) Results() []Result {
	return append([]Result(nil), s.results...)
}

func (s *Suite) record(kind string, r Result) Result {
	s.results = append(s.results, r)
	metrics.RecordCheck(s.dataset, kind, string(r.Status))
	s.log.Debug("quality check",
		zap.String("check", r.Name),
		zap.String("status", string(r.Status)),
		zap.String("message", r.Message))
	return r
}

func (s *Suite) missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if !s.t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func missingColumn(name, col string) Result {
	return Result{
		Name:    name,
		Status:  StatusFail,
		Message: fmt.Sprintf("column '%s' does not exist", col),
	}
}

func missingColumns(name string, cols []string) Result {
	return Result{
		Name:    name,
		Status:  StatusFail,
		Message: fmt.Sprintf("missing column(s): %s", strings.Join(cols, ", ")),
	}
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(n) / float64(total) * 100)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func listCols(cols []string) string { return "[" + strings.Join(cols, ", ") + "]" }

// Completeness fails when more than maxNullPct percent of col is null.
func (s *Suite) Completeness(col string, maxNullPct float64) Result {
	name := "Completeness: " + col
	if !s.t.Has(col) {
		r := missingColumn(name, col)
		r.Details = map[string]any{KeyValidColumns: s.t.Columns()}
		return s.record("completeness", r)
	}
	nulls := s.t.NullCount(col)
	p := pct(nulls, s.t.Len())
	r := Result{
		Name:    name,
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %.2f%% null (acceptable)", col, p),
		Details: map[string]any{KeyNulls: nulls, KeyNullPct: p},
	}
	if p > maxNullPct {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%s: %.2f%% null (limit: %g%%)", col, p, maxNullPct)
	}
	return s.record("completeness", r)
}

// CompletenessAll runs Completeness for each column.
func (s *Suite) CompletenessAll(cols []string, maxNullPct float64) []Result {
	out := make([]Result, 0, len(cols))
	for _, c := range cols {
		out = append(out, s.Completeness(c, maxNullPct))
	}
	return out
}

// TypeMatch passes when the declared kind of col equals expected.
func (s *Suite) TypeMatch(col string, expected table.Kind) Result {
	name := "Data Type: " + col
	if !s.t.Has(col) {
		return s.record("type", missingColumn(name, col))
	}
	actual := s.t.Kind(col)
	r := Result{
		Name:    name,
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: type '%s' as expected", col, expected),
		Details: map[string]any{KeyActualType: string(actual), KeyExpectedType: string(expected)},
	}
	if actual != expected {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%s: type '%s' (expected: '%s')", col, actual, expected)
	}
	return s.record("type", r)
}

func bound(b *float64) string {
	if b == nil {
		return "none"
	}
	return fmt.Sprintf("%g", *b)
}

// Range counts non-null values of col outside [min, max]. A nil bound is
// open. Values that are not numbers count as violations.
func (s *Suite) Range(col string, min, max *float64) Result {
	name := "Range: " + col
	if !s.t.Has(col) {
		return s.record("range", missingColumn(name, col))
	}
	var (
		violations int
		lo, hi     float64
		seen       bool
	)
	for _, v := range s.t.Column(col) {
		if records.IsNull(v) {
			continue
		}
		f, ok := records.Float(v)
		if !ok {
			violations++
			continue
		}
		if !seen || f < lo {
			lo = f
		}
		if !seen || f > hi {
			hi = f
		}
		seen = true
		if min != nil && f < *min {
			violations++
		}
		if max != nil && f > *max {
			violations++
		}
	}
	details := map[string]any{KeyMin: nil, KeyMax: nil, KeyViolations: violations}
	if seen {
		details[KeyMin] = lo
		details[KeyMax] = hi
	}
	r := Result{
		Name:    name,
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: all values within [%s, %s]", col, bound(min), bound(max)),
		Details: details,
	}
	if violations > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%s: %d values outside [%s, %s]", col, violations, bound(min), bound(max))
	}
	return s.record("range", r)
}

// Duplicates counts rows repeating an earlier row across cols. With
// allowSome, duplicates produce a WARNING instead of a FAIL.
func (s *Suite) Duplicates(cols []string, allowSome bool) Result {
	name := "Duplicates: " + listCols(cols)
	if miss := s.missing(cols...); len(miss) > 0 {
		return s.record("duplicates", missingColumns(name, miss))
	}
	seen := make(map[table.Key]struct{}, s.t.Len())
	dups := 0
	for _, row := range s.t.Rows() {
		k := table.KeyOf(row, cols)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	r := Result{
		Name:    name,
		Status:  StatusPass,
		Message: "no duplicate rows in " + listCols(cols),
		Details: map[string]any{KeyDuplicates: dups, KeyPercentage: pct(dups, s.t.Len())},
	}
	if dups > 0 {
		r.Status = StatusFail
		if allowSome {
			r.Status = StatusWarning
		}
		r.Message = fmt.Sprintf("%d duplicate rows found", dups)
	}
	return s.record("duplicates", r)
}

// PrimaryKey passes when every row has a distinct combination of cols.
func (s *Suite) PrimaryKey(cols []string) Result {
	name := "Primary Key: " + listCols(cols)
	if miss := s.missing(cols...); len(miss) > 0 {
		return s.record("primary_key", missingColumns(name, miss))
	}
	distinct := make(map[table.Key]struct{}, s.t.Len())
	for _, row := range s.t.Rows() {
		distinct[table.KeyOf(row, cols)] = struct{}{}
	}
	unique, total := len(distinct), s.t.Len()
	r := Result{
		Name:    name,
		Status:  StatusPass,
		Message: "valid primary key on " + listCols(cols),
		Details: map[string]any{KeyUnique: unique, KeyTotal: total},
	}
	if unique != total {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%d duplicated combinations in %s", total-unique, listCols(cols))
	}
	return s.record("primary_key", r)
}

// Positive fails when any non-null numeric value of col is negative.
func (s *Suite) Positive(col string) Result {
	name := "Positive: " + col
	if !s.t.Has(col) {
		return s.record("positive", missingColumn(name, col))
	}
	negatives := 0
	for _, v := range s.t.Column(col) {
		if f, ok := records.Float(v); ok && f < 0 {
			negatives++
		}
	}
	r := Result{
		Name:    name,
		Status:  StatusPass,
		Message: col + ": all values positive",
		Details: map[string]any{KeyNegatives: negatives},
	}
	if negatives > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%s: %d negative values found", col, negatives)
	}
	return s.record("positive", r)
}

// ValidDates passes when col is a datetime column, recording its earliest
// and latest values.
func (s *Suite) ValidDates(col string) Result {
	name := "Valid Dates: " + col
	if !s.t.Has(col) {
		return s.record("dates", missingColumn(name, col))
	}
	if s.t.Kind(col) != table.KindTime {
		return s.record("dates", Result{
			Name:    name,
			Status:  StatusFail,
			Message: col + ": not a datetime column",
			Details: map[string]any{},
		})
	}
	var lo, hi time.Time
	for _, v := range s.t.Column(col) {
		ts, ok := v.(time.Time)
		if !ok || ts.IsZero() {
			continue
		}
		if lo.IsZero() || ts.Before(lo) {
			lo = ts
		}
		if hi.IsZero() || ts.After(hi) {
			hi = ts
		}
	}
	details := map[string]any{KeyMinDate: nil, KeyMaxDate: nil}
	if !lo.IsZero() {
		details[KeyMinDate] = lo.Format(time.DateTime)
		details[KeyMaxDate] = hi.Format(time.DateTime)
	}
	return s.record("dates", Result{
		Name:    name,
		Status:  StatusPass,
		Message: col + ": valid dates",
		Details: details,
	})
}

// Custom fails when pred is false for any row.
func (s *Suite) Custom(name string, pred func(records.Record) bool, okMsg, failMsg string) Result {
	if okMsg == "" {
		okMsg = "check passed"
	}
	if failMsg == "" {
		failMsg = "check failed"
	}
	failures := 0
	for _, row := range s.t.Rows() {
		if !pred(row) {
			failures++
		}
	}
	r := Result{
		Name:    name,
		Status:  StatusPass,
		Message: okMsg,
		Details: map[string]any{KeyFailures: failures},
	}
	if failures > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%s (%d rows)", failMsg, failures)
	}
	return s.record("custom", r)
}

// ConsistentBilling checks amount = quantity × unit price within
// BillingTolerance. Rows missing any of the three numbers are skipped.
func (s *Suite) ConsistentBilling(valueCol, qtyCol, priceCol string) Result {
	const name = "Consistent Billing"
	if miss := s.missing(valueCol, qtyCol, priceCol); len(miss) > 0 {
		return s.record("billing", missingColumns(name, miss))
	}
	inconsistent := 0
	for _, row := range s.t.Rows() {
		v, ok1 := records.Float(row[valueCol])
		q, ok2 := records.Float(row[qtyCol])
		p, ok3 := records.Float(row[priceCol])
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		if math.Abs(v-q*p) > BillingTolerance {
			inconsistent++
		}
	}
	r := Result{
		Name:    name,
		Status:  StatusPass,
		Message: "billing consistent (quantity × price)",
		Details: map[string]any{KeyInconsistent: inconsistent},
	}
	if inconsistent > 0 {
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%d rows with inconsistent billing", inconsistent)
	}
	return s.record("billing", r)
}
