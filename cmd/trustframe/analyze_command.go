package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trustframe/internal/deps"
	"trustframe/internal/preflight"
	"trustframe/internal/services"
	"trustframe/internal/workflow"
)

type analyzeFlags struct {
	cryptoAlgorithm     string
	perceptualAlgorithm string
	maxFrames           int
	workers             int
	limit               int
	noCache             bool
	noProgress          bool
	jsonOutput          bool
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <reference> <evidence>",
		Short: "Compare two video files for integrity and content changes",
		Long: `Analyze hashes both files, fingerprints their frames with a perceptual hash
and aligns the two fingerprint sequences to report matched, substituted,
inserted and deleted frames.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			if cmd.Flags().Changed("max-frames") && flags.maxFrames <= 0 {
				return services.Wrap(services.ErrInvalidConfiguration, "analyze", "flags",
					fmt.Sprintf("--max-frames must be positive, got %d", flags.maxFrames), nil)
			}
			if flags.limit < 0 {
				return services.Wrap(services.ErrInvalidConfiguration, "analyze", "flags",
					fmt.Sprintf("--limit must not be negative, got %d", flags.limit), nil)
			}
			reference, err := resolveInputFile(args[0])
			if err != nil {
				return err
			}
			evidence, err := resolveInputFile(args[1])
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if missing := deps.MissingRequired(preflight.CheckSystemDeps(cmd.Context(), cfg)); len(missing) > 0 {
				return services.Wrap(services.ErrExternalTool, "analyze", "preflight",
					fmt.Sprintf("missing required tools: %v (run trustframe doctor)", missing), nil)
			}
			logger, err := ctx.newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}

			var progress *progressReporter
			if !flags.noProgress && !flags.jsonOutput && shouldColorize(cmd.ErrOrStderr()) {
				progress = newProgressReporter(cmd.ErrOrStderr())
			}
			opts := workflow.Options{
				CryptoAlgorithm:     flags.cryptoAlgorithm,
				PerceptualAlgorithm: flags.perceptualAlgorithm,
				MaxFrames:           flags.maxFrames,
				Workers:             flags.workers,
				NoCache:             flags.noCache,
			}
			if progress != nil {
				opts.Progress = progress
			}

			comparator := workflow.NewComparator(cfg, st, logger)
			outcome, err := comparator.Analyze(cmd.Context(), reference, evidence, opts)
			if progress != nil {
				progress.close()
			}
			if err != nil {
				return err
			}

			if flags.jsonOutput {
				return writeJSON(cmd, outcome)
			}
			limit := cfg.Analysis.DisplayLimit
			if cmd.Flags().Changed("limit") {
				limit = flags.limit
			}
			renderAnalyzeReport(cmd.OutOrStdout(), outcome, reportOptions{
				limit:    limit,
				colorize: shouldColorize(cmd.OutOrStdout()),
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.cryptoAlgorithm, "crypto-algorithm", "", "File digest algorithm (sha256, sha384, sha512)")
	cmd.Flags().StringVar(&flags.perceptualAlgorithm, "perceptual-algorithm", "", "Perceptual hash algorithm (phash, ahash, dhash)")
	cmd.Flags().IntVar(&flags.maxFrames, "max-frames", 0, "Uniformly sample at most this many frames per video (default: all frames)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Goroutines used per alignment diagonal")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Alignment operations to list in the detailed table")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Decode frames even when cached fingerprints exist")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable progress bars")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Output the full outcome as JSON")
	return cmd
}
