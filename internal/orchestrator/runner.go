// Package orchestrator sequences the transform stage, the quality stage and
// the exports of one SAF-T run.
//
// A Runner is a fluent builder with a sticky error: once a step fails every
// later step is skipped and Err reports the first failure.
//
//	r := orchestrator.New("vendas.xlsx").
//		RunETL(ctx, true).
//		RunQuality().
//		ExportData("dados_limpos.xlsx", "").
//		ExportReports("relatorios")
//	if err := r.Err(); err != nil { ... }
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"saftetl/internal/etlerr"
	"saftetl/internal/fetch"
	"saftetl/internal/pipeline"
	"saftetl/internal/quality"
	"saftetl/internal/storage"
	"saftetl/internal/table"
	"saftetl/internal/tableio"
)

// Report file names written by ExportReports.
const (
	QualityReportFile  = "quality_report.json"
	PipelineReportFile = "pipeline_report.json"
)

// DefaultDataset names the quality report when no dataset is configured.
const DefaultDataset = "SAF-T Processed"

// Option configures a Runner.
type Option func(*Runner)

// WithPipelineOptions forwards options to the transform stage.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(r *Runner) { r.pipeOpts = append(r.pipeOpts, opts...) }
}

// WithDataset names the dataset in the quality report.
func WithDataset(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.dataset = name
		}
	}
}

// WithRules replaces DefaultRules.
func WithRules(rules []Rule) Option {
	return func(r *Runner) { r.rules = rules }
}

// WithLogger sets the logger for the runner and both stages.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithYAMLReports also writes each report as YAML.
func WithYAMLReports(on bool) Option {
	return func(r *Runner) { r.yaml = on }
}

// WithClock overrides time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// PipelineReport combines the transform statistics and the quality report.
type PipelineReport struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	Input       string          `json:"input" yaml:"input"`
	GeneratedAt string          `json:"generated_at" yaml:"generated_at"`
	ETL         pipeline.Stats  `json:"etl" yaml:"etl"`
	Quality     *quality.Report `json:"quality,omitempty" yaml:"quality,omitempty"`
	// Loaded is the number of rows written to the database sink, if any.
	Loaded int64 `json:"loaded_rows,omitempty" yaml:"loaded_rows,omitempty"`
}

// Runner drives one run over an input file.
type Runner struct {
	input    string
	local    string // downloaded copy of a remote input
	runID    string
	dataset  string
	rules    []Rule
	pipeOpts []pipeline.Option
	yaml     bool
	now      func() time.Time
	log      *zap.Logger

	pipe    *pipeline.Pipeline
	clean   *table.Table
	suite   *quality.Suite
	report  *quality.Report
	skipped []string
	loaded  int64
	output  string
	files   []string
	err     error
}

// New binds a runner to the input file. Nothing is read until RunETL.
func New(input string, opts ...Option) *Runner {
	r := &Runner{
		input:   input,
		runID:   uuid.NewString(),
		dataset: DefaultDataset,
		rules:   DefaultRules(),
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, fn := range opts {
		fn(r)
	}
	r.log = r.log.With(zap.String("run_id", r.runID))
	return r
}

// Err returns the first error raised by a step.
func (r *Runner) Err() error { return r.err }

// RunID identifies this run in logs and the pipeline report.
func (r *Runner) RunID() string { return r.runID }

func (r *Runner) step(name string, fn func() error) *Runner {
	if r.err != nil {
		return r
	}
	if err := fn(); err != nil {
		r.err = fmt.Errorf("%s: %w", name, err)
		r.log.Error("run step failed", zap.String("step", name), zap.Error(err))
	}
	return r
}

// RunETL runs the transform stage; full adds duplicate and sparse-column
// removal.
func (r *Runner) RunETL(ctx context.Context, full bool) *Runner {
	return r.step("etl", func() error {
		r.log.Info("starting transform stage", zap.String("input", r.input), zap.Bool("full", full))
		opts := append([]pipeline.Option{pipeline.WithLogger(r.log)}, r.pipeOpts...)
		src := r.input
		if r.local != "" {
			src = r.local
		}
		r.pipe = pipeline.New(src, opts...)
		t, err := r.pipe.Run(ctx, full)
		if err != nil {
			return err
		}
		r.clean = t
		return nil
	})
}

// Fetch downloads a remote input into dir so RunETL reads the local copy.
// Local inputs are left alone.
func (r *Runner) Fetch(ctx context.Context, cfg fetch.Config, dir string) *Runner {
	return r.step("fetch", func() error {
		if !fetch.IsRemote(r.input) {
			return nil
		}
		p, err := fetch.NewClient(cfg, r.log).Download(ctx, r.input, dir)
		if err != nil {
			return err
		}
		r.local = p
		return nil
	})
}

// UseTable skips the transform stage and checks t as is. The check command
// uses it for files that were cleaned by an earlier run.
func (r *Runner) UseTable(t *table.Table) *Runner {
	return r.step("use_table", func() error {
		if t == nil {
			return etlerr.ErrNoData
		}
		r.clean = t
		return nil
	})
}

// RunQuality evaluates the rules against the cleaned table.
func (r *Runner) RunQuality() *Runner {
	return r.step("quality", func() error {
		if r.clean == nil {
			return etlerr.ErrNotReady
		}
		r.log.Info("starting quality stage", zap.Int("rules", len(r.rules)))
		r.suite = quality.NewSuite(r.clean, r.dataset, quality.WithLogger(r.log), quality.WithClock(r.now))
		r.skipped = Apply(r.suite, r.clean, r.rules)
		if len(r.skipped) > 0 {
			r.log.Info("rules skipped for absent columns", zap.Strings("rules", r.skipped))
		}
		rep, err := r.suite.Report()
		if err != nil {
			rep = quality.Report{Dataset: r.dataset, Error: err.Error()}
		}
		r.report = &rep
		return nil
	})
}

// ExportData writes the cleaned table. An empty format is derived from the
// path's extension.
func (r *Runner) ExportData(path string, format tableio.Format) *Runner {
	return r.step("export_data", func() error {
		if r.clean == nil {
			return etlerr.ErrNoData
		}
		if format == "" {
			f, err := tableio.FormatFromPath(path)
			if err != nil {
				return err
			}
			format = f
		}
		if err := tableio.Write(path, r.clean, format); err != nil {
			return err
		}
		r.output = path
		r.files = append(r.files, path)
		r.log.Info("data exported", zap.String("path", path), zap.String("format", string(format)))
		return nil
	})
}

// ExportReports creates dir and writes the quality report (when the quality
// stage ran) and the pipeline report.
func (r *Runner) ExportReports(dir string) *Runner {
	return r.step("export_reports", func() error {
		if r.clean == nil {
			return etlerr.ErrNotReady
		}
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		if r.report != nil {
			if err := r.writeReport(filepath.Join(dir, QualityReportFile), *r.report); err != nil {
				return err
			}
		}
		return r.writeReport(filepath.Join(dir, PipelineReportFile), r.PipelineReport())
	})
}

func (r *Runner) writeReport(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return err
	}
	r.files = append(r.files, path)
	if !r.yaml {
		return nil
	}
	y, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	ypath := path[:len(path)-len(filepath.Ext(path))] + ".yaml"
	if err := os.WriteFile(ypath, y, 0o644); err != nil {
		return err
	}
	r.files = append(r.files, ypath)
	return nil
}

// LoadInto writes the cleaned table to a database.
func (r *Runner) LoadInto(ctx context.Context, cfg storage.Config) *Runner {
	return r.step("load_db", func() error {
		if r.clean == nil {
			return etlerr.ErrNoData
		}
		n, err := storage.Load(ctx, cfg, r.clean, storage.WithLogger(r.log), storage.WithDataset(r.dataset))
		if err != nil {
			return err
		}
		r.loaded = n
		r.log.Info("table loaded", zap.String("kind", cfg.Kind), zap.String("table", cfg.Table), zap.Int64("rows", n))
		return nil
	})
}

// Table returns a copy of the cleaned table.
func (r *Runner) Table() (*table.Table, error) {
	if r.clean == nil {
		return nil, etlerr.ErrNotReady
	}
	return r.clean.Clone(), nil
}

// Stats returns the transform statistics; zero before RunETL.
func (r *Runner) Stats() pipeline.Stats {
	if r.pipe == nil {
		return pipeline.Stats{}
	}
	return r.pipe.Stats()
}

// QualityReport returns the quality report, or nil before RunQuality.
func (r *Runner) QualityReport() *quality.Report { return r.report }

// Skipped lists the rules skipped for absent columns.
func (r *Runner) Skipped() []string { return append([]string(nil), r.skipped...) }

// Files lists the files written so far, in order.
func (r *Runner) Files() []string { return append([]string(nil), r.files...) }

// PipelineReport assembles the combined report.
func (r *Runner) PipelineReport() PipelineReport {
	return PipelineReport{
		RunID:       r.runID,
		Input:       r.input,
		GeneratedAt: r.now().Format(time.RFC3339),
		ETL:         r.Stats(),
		Quality:     r.report,
		Loaded:      r.loaded,
	}
}
