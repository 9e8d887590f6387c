package main

import (
	"errors"
	"fmt"
	"maps"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"saftetl/internal/orchestrator"
	"saftetl/internal/pipeline"
	"saftetl/internal/tableio"
	"saftetl/internal/transformer/builtin"
)

var errChecksFailed = errors.New("quality checks failed")

func newCheckCmd(g *globalFlags) *cobra.Command {
	var (
		reportsDir string
		strict     bool
	)
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Run the quality checks over an already cleaned file",
		Long: `check reads a file produced by an earlier run, restores the column
types lost in the export and runs the quality stage over it without
transforming the data again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, "")
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			kinds, err := cfg.Transform.Kinds()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			types := pipeline.DefaultTypes()
			maps.Copy(types, kinds)

			t, err := tableio.Read(cmd.Context(), args[0], tableio.ReadOptions{
				Sheet: cfg.Source.Sheet,
				Comma: cfg.Source.Comma(),
			})
			if err != nil {
				return err
			}
			out := builtin.Coerce{Types: types}.Apply(t)
			log.Debug("restored column types", zap.Int("columns", out.Columns), zap.Int("nulled", out.Nulled))

			if reportsDir == "" {
				reportsDir = cfg.Output.ReportsDir
			}
			r := orchestrator.New(args[0],
				orchestrator.WithDataset(cfg.Quality.Dataset),
				orchestrator.WithYAMLReports(cfg.Output.YAML),
				orchestrator.WithLogger(log),
			).UseTable(t).RunQuality().ExportReports(reportsDir)
			if err := r.Err(); err != nil {
				return err
			}

			rep := r.QualityReport()
			if err := rep.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}
			if strict && rep.Tests.Failed > 0 {
				return fmt.Errorf("%w: %d of %d", errChecksFailed, rep.Tests.Failed, rep.Tests.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reportsDir, "reports-dir", "", "override output.reports_dir")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any check fails")
	return cmd
}
