package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trustframe/internal/services"
	"trustframe/internal/store"
)

const defaultHistoryLimit = 20

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded comparison runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			if limit <= 0 {
				return services.Wrap(services.ErrInvalidConfiguration, "history", "flags",
					fmt.Sprintf("--limit must be positive, got %d", limit), nil)
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if runs == nil {
					runs = []*store.Run{}
				}
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No comparison runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(runs))
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of runs to list, newest first")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output runs as JSON")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <run-id-prefix>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			runs, err := st.FindRuns(cmd.Context(), args[0])
			if err != nil {
				return services.Wrap(services.ErrValidation, "history", "show", "", err)
			}
			id := strings.TrimSpace(args[0])
			switch len(runs) {
			case 0:
				return services.Wrap(services.ErrNotFound, "history", "show", "run "+id, nil)
			case 1:
			default:
				return services.Wrap(services.ErrValidation, "history", "show",
					fmt.Sprintf("run id prefix %q matches %d runs", id, len(runs)), nil)
			}
			run := runs[0]
			if jsonOutput {
				return writeJSON(cmd, run)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRunDetail(run))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var includeCache bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			removed, err := st.ClearRuns(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d runs\n", removed)
			if includeCache {
				cleared, err := st.ClearFingerprints(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d cached fingerprint sets\n", cleared)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&includeCache, "cache", false, "Also clear the fingerprint cache")
	return cmd
}

func renderHistoryTable(runs []*store.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.Source,
			filepath.Base(run.ReferencePath),
			filepath.Base(run.EvidencePath),
			digestCell(run),
			fmt.Sprintf("%d/%d", run.ReferenceFrames, run.EvidenceFrames),
			formatDistance(run.EditDistance),
			formatPercent(run.MeanSimilarity),
		})
	}
	return renderTable(
		[]string{"ID", "When", "Source", "Reference", "Evidence", "Digest Match", "Frames", "Edit Distance", "Mean Similarity"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func renderRunDetail(run *store.Run) string {
	rows := [][]string{
		{"Run ID", run.ID},
		{"Recorded", run.CreatedAt.Local().Format(time.RFC1123)},
		{"Source", run.Source},
		{"Reference", run.ReferencePath},
		{"Evidence", run.EvidencePath},
	}
	if run.CryptoAlgorithm != "" {
		rows = append(rows,
			[]string{"Crypto Algorithm", strings.ToUpper(run.CryptoAlgorithm)},
			[]string{"Reference Digest", run.ReferenceDigest},
			[]string{"Evidence Digest", run.EvidenceDigest},
			[]string{"Digest Match", yesNo(run.DigestMatch)},
		)
	}
	if run.PerceptualAlgorithm != "" {
		rows = append(rows, []string{"Perceptual Algorithm", strings.ToUpper(run.PerceptualAlgorithm)})
	}
	rows = append(rows,
		[]string{"Reference Frames", strconv.Itoa(run.ReferenceFrames)},
		[]string{"Evidence Frames", strconv.Itoa(run.EvidenceFrames)},
		[]string{"Matches", strconv.Itoa(run.Matches)},
		[]string{"Substitutions", strconv.Itoa(run.Substitutions)},
		[]string{"Insertions", strconv.Itoa(run.Insertions)},
		[]string{"Deletions", strconv.Itoa(run.Deletions)},
		[]string{"Edit Distance", formatDistance(run.EditDistance)},
		[]string{"Mean Similarity", formatPercent(run.MeanSimilarity)},
		[]string{"Duration", run.Duration.Round(time.Millisecond).String()},
	)
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func digestCell(run *store.Run) string {
	if run.CryptoAlgorithm == "" {
		return missingCell
	}
	return yesNo(run.DigestMatch)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
