package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"saftetl/internal/config"
	"saftetl/internal/fetch"
	"saftetl/internal/pipeline"
	"saftetl/internal/storage"
	"saftetl/internal/tableio"
)

// Summary is the end-of-run digest printed by ProcessSAFT.
type Summary struct {
	RunID       string
	Input       string
	Output      string
	ReportsDir  string
	InitialRows int
	FinalRows   int
	Retention   float64
	Tests       int
	Passed      int
	Failed      int
	Warnings    int
	SuccessRate float64
	LoadedRows  int64
	Files       []string
}

// Summary digests the run so far.
func (r *Runner) Summary() Summary {
	st := r.Stats()
	s := Summary{
		RunID:       r.runID,
		Input:       r.input,
		Output:      r.output,
		InitialRows: st.InitialRows,
		FinalRows:   st.FinalRows,
		Retention:   st.Retention,
		LoadedRows:  r.loaded,
		Files:       r.Files(),
	}
	if r.report != nil {
		s.Tests = r.report.Tests.Total
		s.Passed = r.report.Tests.Passed
		s.Failed = r.report.Tests.Failed
		s.Warnings = r.report.Tests.Warnings
		s.SuccessRate = r.report.SuccessRate
	}
	return s
}

// Write prints the summary with grouped thousands.
func (s Summary) Write(w io.Writer) error {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", 80)

	p.Fprintf(w, "\n%s\nFINAL PROCESSING SUMMARY\n%s\n", rule, rule)
	p.Fprintf(w, "\nETL:\n   Initial rows: %d\n   Final rows: %d\n   Retention: %.2f%%\n",
		s.InitialRows, s.FinalRows, s.Retention)
	p.Fprintf(w, "\nDATA QUALITY:\n   Tests run: %d\n   Passed: %d\n   Failed: %d\n   Warnings: %d\n   Success rate: %v%%\n",
		s.Tests, s.Passed, s.Failed, s.Warnings, s.SuccessRate)
	if s.LoadedRows > 0 {
		p.Fprintf(w, "\nDATABASE:\n   Rows loaded: %d\n", s.LoadedRows)
	}
	p.Fprintf(w, "\nGENERATED FILES:\n")
	if s.Output != "" {
		p.Fprintf(w, "   Clean data: %s\n", s.Output)
	}
	if s.ReportsDir != "" {
		p.Fprintf(w, "   Reports: %s/\n", strings.TrimSuffix(s.ReportsDir, "/"))
	}
	_, err := p.Fprintf(w, "\n%s\n", rule)
	return err
}

// PipelineOptions maps the transform section of cfg to pipeline options.
func PipelineOptions(cfg config.Pipeline) ([]pipeline.Option, error) {
	kinds, err := cfg.Transform.Kinds()
	if err != nil {
		return nil, err
	}
	return []pipeline.Option{
		pipeline.WithDataset(cfg.Job),
		pipeline.WithPrefix(cfg.Transform.Prefix),
		pipeline.WithReadOptions(tableio.ReadOptions{Sheet: cfg.Source.Sheet, Comma: cfg.Source.Comma()}),
		pipeline.WithNormalize(cfg.Transform.Normalize),
		pipeline.WithFullSparseThreshold(cfg.Transform.SparseThreshold),
		pipeline.WithFilterColumns(cfg.Transform.DateColumn, cfg.Transform.AmountColumn),
		pipeline.WithTypes(kinds),
	}, nil
}

// StorageConfig maps the storage section of cfg.
func StorageConfig(cfg config.Pipeline) storage.Config {
	return storage.Config{
		Kind:            cfg.Storage.Kind,
		DSN:             cfg.Storage.DSN,
		Table:           cfg.Storage.Table,
		BatchSize:       cfg.Storage.BatchSize,
		AutoCreateTable: cfg.Storage.AutoCreateTable,
		Truncate:        cfg.Storage.Truncate,
	}
}

// FetchConfig maps the remote-source settings of cfg.
func FetchConfig(cfg config.Pipeline) fetch.Config {
	return fetch.Config{
		Timeout:            cfg.Source.Timeout,
		MaxRetries:         cfg.Source.Retries,
		InsecureSkipVerify: cfg.Source.InsecureSkipVerify,
	}
}

// ProcessSAFT runs the whole chain described by cfg: the download of a remote
// source, transform, quality (unless skipped), data export, the optional
// database load and reports. It prints the summary to w and returns it.
// Extra options are applied after the ones derived from cfg.
func ProcessSAFT(ctx context.Context, cfg config.Pipeline, w io.Writer, opts ...Option) (Summary, error) {
	pipeOpts, err := PipelineOptions(cfg)
	if err != nil {
		return Summary{}, fmt.Errorf("config: %w", err)
	}
	var format tableio.Format
	if cfg.Output.Format != "" {
		if format, err = tableio.ParseFormat(cfg.Output.Format); err != nil {
			return Summary{}, err
		}
	}

	all := append([]Option{
		WithPipelineOptions(pipeOpts...),
		WithDataset(cfg.Quality.Dataset),
		WithYAMLReports(cfg.Output.YAML),
	}, opts...)
	r := New(cfg.Source.Path, all...)

	if fetch.IsRemote(cfg.Source.Path) {
		dir, err := os.MkdirTemp("", "saftetl-")
		if err != nil {
			return Summary{}, err
		}
		defer os.RemoveAll(dir)
		r.Fetch(ctx, FetchConfig(cfg), dir)
	}
	r.RunETL(ctx, cfg.Transform.Full)
	if !cfg.Quality.Skip {
		r.RunQuality()
	}
	r.ExportData(cfg.Output.Path, format)
	if cfg.Storage.Kind != "" {
		r.LoadInto(ctx, StorageConfig(cfg))
	}
	r.ExportReports(cfg.Output.ReportsDir)
	if err := r.Err(); err != nil {
		return r.Summary(), err
	}

	s := r.Summary()
	s.ReportsDir = cfg.Output.ReportsDir
	if w != nil {
		if err := s.Write(w); err != nil {
			return s, err
		}
	}
	return s, nil
}
