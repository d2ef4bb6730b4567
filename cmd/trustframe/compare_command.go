package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"trustframe/internal/services"
	"trustframe/internal/workflow"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var workers int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "compare <reference.txt> <evidence.txt>",
		Short: "Align two fingerprint lists without decoding any media",
		Long: `Compare reads two text files holding one hex fingerprint per line, optionally
prefixed by a frame number, and reports the same sequence analysis as analyze.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			if limit < 0 {
				return services.Wrap(services.ErrInvalidConfiguration, "compare", "flags",
					fmt.Sprintf("--limit must not be negative, got %d", limit), nil)
			}
			refPath, reference, err := loadFingerprintList(args[0])
			if err != nil {
				return err
			}
			evPath, evidence, err := loadFingerprintList(args[1])
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}

			comparator := workflow.NewComparator(cfg, st, logger)
			outcome, err := comparator.CompareSequences(cmd.Context(), refPath, reference, evPath, evidence, workflow.Options{Workers: workers})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, outcome)
			}

			display := cfg.Analysis.DisplayLimit
			if cmd.Flags().Changed("limit") {
				display = limit
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reference: %s (%d fingerprints, %d bits)\n", filepath.Base(refPath), len(reference), outcome.Result.Width)
			fmt.Fprintf(out, "Evidence:  %s (%d fingerprints)\n", filepath.Base(evPath), len(evidence))
			renderSequenceReport(out, outcome.Result, outcome.Report, reportOptions{
				limit:    display,
				colorize: shouldColorize(out),
			})
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Alignment operations to list in the detailed table")
	cmd.Flags().IntVar(&workers, "workers", 0, "Goroutines used per alignment diagonal")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the full outcome as JSON")
	return cmd
}
