// Package pipeline implements the SAF-T transform stage: a fluent chain of
// table operations over a loaded sales export.
//
// Every step method returns the same *Pipeline. The first failing step makes
// the chain sticky: later steps do nothing and Err reports that failure.
//
//	p := pipeline.New("vendas.xlsx").
//		Load(ctx).
//		StripPrefixes().
//		FilterValid("", "").
//		CoerceTypes(nil)
//	if err := p.Err(); err != nil { ... }
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"saftetl/internal/etlerr"
	"saftetl/internal/metrics"
	"saftetl/internal/table"
	"saftetl/internal/tableio"
	"saftetl/internal/transformer"
	"saftetl/internal/transformer/builtin"
)

// Default column names used by FilterValid.
const (
	DefaultDateColumn   = "InvoiceDate"
	DefaultAmountColumn = "CreditAmount"
)

// DefaultTypes is the coercion map CoerceTypes applies when given nil.
func DefaultTypes() map[string]table.Kind {
	return map[string]table.Kind{
		"InvoiceDate":   table.KindTime,
		"CreditAmount":  table.KindFloat,
		"Quantity":      table.KindFloat,
		"UnitPrice":     table.KindFloat,
		"TaxPercentage": table.KindFloat,
	}
}

// Pipeline holds the state of one transform run over a source file.
type Pipeline struct {
	path string
	opts options
	log  *zap.Logger

	original *table.Table // as loaded; never mutated
	work     *table.Table
	stats    Stats
	err      error
}

// New binds a pipeline to the source file at path. Nothing is read until Load.
func New(path string, opts ...Option) *Pipeline {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Pipeline{
		path: path,
		opts: o,
		log:  o.log.With(zap.String("dataset", o.dataset), zap.String("source", path)),
	}
}

// Path returns the source file path.
func (p *Pipeline) Path() string { return p.path }

// Err returns the first error raised by a step, if any.
func (p *Pipeline) Err() error { return p.err }

// step runs fn unless the chain already failed, recording its duration and
// outcome.
func (p *Pipeline) step(name string, fn func() error) *Pipeline {
	if p.err != nil {
		return p
	}
	start := time.Now()
	err := fn()
	metrics.RecordStep(p.opts.dataset, name, err, time.Since(start))
	if err != nil {
		p.err = fmt.Errorf("%s: %w", name, err)
		p.log.Error("step failed", zap.String("step", name), zap.Error(err))
	}
	return p
}

func (p *Pipeline) ready() error {
	if p.work == nil {
		return etlerr.ErrNotReady
	}
	return nil
}

// apply runs a transform on the working table after the readiness check.
func (p *Pipeline) apply(name string, tr transformer.Transformer, record func(transformer.Outcome)) *Pipeline {
	return p.step(name, func() error {
		if err := p.ready(); err != nil {
			return err
		}
		out := tr.Apply(p.work)
		record(out)
		return nil
	})
}

// Load reads the source file. It fails with etlerr.ErrNotFound when the file
// does not exist.
func (p *Pipeline) Load(ctx context.Context) *Pipeline {
	return p.step("load", func() error {
		t, err := p.opts.reader(ctx, p.path, p.opts.read)
		if err != nil {
			return err
		}
		p.original = t
		p.work = t.Clone()
		p.stats = Stats{
			InitialRows:    t.Len(),
			InitialColumns: t.Width(),
			Loaded:         true,
		}
		if p.opts.normalize {
			out := builtin.Normalize{}.Apply(p.work)
			p.stats.NulledValues += out.Nulled
		}
		metrics.RecordRows(p.opts.dataset, "loaded", t.Len())
		p.log.Info("loaded source",
			zap.Int("rows", t.Len()),
			zap.Int("columns", t.Width()))
		return nil
	})
}

// StripPrefixes removes the configured namespace prefix (default "ns1:")
// from column names. A rename that would collide with an existing column is
// skipped with a warning.
func (p *Pipeline) StripPrefixes() *Pipeline {
	tr := builtin.StripPrefix{
		Prefix: p.opts.prefix,
		OnConflict: func(from, to string) {
			p.log.Warn("prefix not stripped: column exists",
				zap.String("column", from), zap.String("target", to))
		},
	}
	return p.apply("strip_prefixes", tr, func(out transformer.Outcome) {
		p.stats.RenamedColumns += out.Columns
		p.log.Info("prefixes stripped", zap.String("prefix", p.opts.prefix), zap.Int("columns", out.Columns))
	})
}

// FilterValid keeps rows that have both a date and an amount. Empty names
// select InvoiceDate and CreditAmount.
func (p *Pipeline) FilterValid(dateCol, amountCol string) *Pipeline {
	if dateCol == "" {
		dateCol = DefaultDateColumn
	}
	if amountCol == "" {
		amountCol = DefaultAmountColumn
	}
	tr := builtin.Require{Fields: []string{dateCol, amountCol}}
	return p.apply("filter_valid", tr, func(out transformer.Outcome) {
		p.stats.FilteredRows += out.Rows
		metrics.RecordRows(p.opts.dataset, "filtered", out.Rows)
		if !p.work.HasAll(dateCol, amountCol) {
			p.log.Warn("filter column missing; no row can qualify",
				zap.String("date_column", dateCol), zap.String("amount_column", amountCol))
		}
		p.log.Info("invalid rows removed", zap.Int("removed", out.Rows), zap.Int("remaining", p.work.Len()))
	})
}

// CoerceTypes converts columns to the given kinds; nil selects DefaultTypes.
// Values that cannot be converted become nil and columns that are absent are
// skipped.
func (p *Pipeline) CoerceTypes(types map[string]table.Kind) *Pipeline {
	if types == nil {
		types = DefaultTypes()
	}
	return p.apply("coerce_types", builtin.Coerce{Types: types}, func(out transformer.Outcome) {
		p.stats.CoercedColumns += out.Columns
		p.stats.NulledValues += out.Nulled
		metrics.RecordRows(p.opts.dataset, "nulled", out.Nulled)
		p.log.Info("columns coerced", zap.Int("columns", out.Columns), zap.Int("nulled", out.Nulled))
	})
}

// Dedupe removes duplicate rows across subset, keeping the first occurrence.
// No subset compares all columns.
func (p *Pipeline) Dedupe(subset ...string) *Pipeline {
	return p.apply("dedupe", builtin.DeDup{Keys: subset}, func(out transformer.Outcome) {
		p.stats.DuplicateRows += out.Rows
		metrics.RecordRows(p.opts.dataset, "duplicates", out.Rows)
		p.log.Info("duplicate rows removed", zap.Int("removed", out.Rows), zap.Strings("subset", subset))
	})
}

// DropSparse removes columns whose null fraction is greater than threshold.
// builtin.DefaultSparseThreshold is the usual choice; Run uses the stricter
// DefaultFullSparseThreshold.
func (p *Pipeline) DropSparse(threshold float64) *Pipeline {
	return p.apply("drop_sparse", builtin.DropSparse{Threshold: threshold}, func(out transformer.Outcome) {
		p.stats.SparseColumns += out.Columns
		p.log.Info("sparse columns removed", zap.Float64("threshold", threshold), zap.Int("columns", out.Columns))
	})
}

// Export writes the working table to path. It fails with etlerr.ErrNoData when
// nothing has been loaded.
func (p *Pipeline) Export(path string, format tableio.Format) *Pipeline {
	return p.step("export", func() error {
		if p.work == nil {
			return etlerr.ErrNoData
		}
		if err := tableio.Write(path, p.work, format); err != nil {
			return err
		}
		metrics.RecordRows(p.opts.dataset, "exported", p.work.Len())
		p.log.Info("data exported", zap.String("path", path), zap.String("format", string(format)))
		return nil
	})
}

// Run executes load, prefix stripping, filtering and coercion. With full it
// also removes duplicate rows and columns that are mostly empty. It returns
// a copy of the resulting table.
func (p *Pipeline) Run(ctx context.Context, full bool) (*table.Table, error) {
	p.Load(ctx).
		StripPrefixes().
		FilterValid(p.opts.dateCol, p.opts.amountCol).
		CoerceTypes(p.opts.types)
	if full {
		p.Dedupe(p.opts.dedupeKeys...).DropSparse(p.opts.fullThreshold)
	}
	p.finalize()
	if p.err != nil {
		return nil, p.err
	}
	return p.Table()
}

func (p *Pipeline) finalize() {
	if p.err != nil || p.work == nil {
		return
	}
	p.stats.FinalRows = p.work.Len()
	p.stats.FinalColumns = p.work.Width()
	p.stats.Retention = Retention(p.stats.InitialRows, p.stats.FinalRows)
	p.stats.Finalized = true
	p.log.Info("pipeline finished",
		zap.Int("initial_rows", p.stats.InitialRows),
		zap.Int("final_rows", p.stats.FinalRows),
		zap.Float64("retention", p.stats.Retention))
}

// Table returns a copy of the working table.
func (p *Pipeline) Table() (*table.Table, error) {
	if p.work == nil {
		return nil, etlerr.ErrNotReady
	}
	return p.work.Clone(), nil
}

// Original returns a copy of the table as it was loaded.
func (p *Pipeline) Original() (*table.Table, error) {
	if p.original == nil {
		return nil, etlerr.ErrNotReady
	}
	return p.original.Clone(), nil
}

// Stats returns a copy of the run statistics.
func (p *Pipeline) Stats() Stats { return p.stats }

// WriteReport prints the ETL report for this run to w.
func (p *Pipeline) WriteReport(w io.Writer) error { return p.stats.WriteReport(w) }
