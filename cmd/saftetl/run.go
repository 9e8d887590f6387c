package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"saftetl/internal/logging"
	"saftetl/internal/orchestrator"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		output     string
		reportsDir string
		skipQA     bool
	)
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Clean a SAF-T export, check it and write the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			cfg, err := loadConfig(g, input)
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Output.Path = output
			}
			if reportsDir != "" {
				cfg.Output.ReportsDir = reportsDir
			}
			if skipQA {
				cfg.Quality.Skip = true
			}
			if err := validate(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			flush, err := setupMetrics(cfg, log)
			if err != nil {
				return err
			}
			defer flush()

			s, err := orchestrator.ProcessSAFT(cmd.Context(), cfg, cmd.OutOrStdout(), orchestrator.WithLogger(log))
			if err != nil {
				logging.WithContext(logging.WithRunID(cmd.Context(), s.RunID), log).
					Error("run failed", zap.String("input", cfg.Source.Path), zap.Error(err))
				return fmt.Errorf("process %s: %w", cfg.Source.Path, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "override output.path")
	cmd.Flags().StringVar(&reportsDir, "reports-dir", "", "override output.reports_dir")
	cmd.Flags().BoolVar(&skipQA, "skip-quality", false, "skip the quality stage")
	return cmd
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config [input]",
		Short: "Validate the configuration and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			cfg, err := loadConfig(g, input)
			if err != nil {
				return err
			}
			if err := validate(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s\n", describe(g.configPath))
			return nil
		},
	}
}

func describe(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}
