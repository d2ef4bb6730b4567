package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"trustframe/internal/alignment"
	"trustframe/internal/analysis"
	"trustframe/internal/workflow"
)

const missingCell = "---"

type reportOptions struct {
	// limit caps the detailed alignment rows; 0 hides the table.
	limit    int
	colorize bool
}

func renderAnalyzeReport(w io.Writer, out workflow.Outcome, opts reportOptions) {
	writeSection(w, fmt.Sprintf("Cryptographic Hash Analysis (%s)", out.CryptoAlgorithm.Label()), opts.colorize)
	matchColor := text.FgRed
	if out.DigestMatch {
		matchColor = text.FgGreen
	}
	fmt.Fprintln(w, renderTableSpec(tableSpec{
		Title:   out.CryptoAlgorithm.Label() + " Hash Summary",
		Headers: []string{"Reference", "Evidence", "Match"},
		Rows: [][]string{{
			out.Reference.Digest.Hex,
			out.Evidence.Digest.Hex,
			colorText(yesNo(out.DigestMatch), opts.colorize, matchColor),
		}},
	}))

	writeSection(w, fmt.Sprintf("Perceptual Hash Analysis (%s)", out.PerceptualAlgorithm.Label()), opts.colorize)
	fmt.Fprintln(w, renderTableSpec(tableSpec{
		Title:   "Video Information",
		Headers: []string{"Video", "Total Frames", "FPS", "Duration (s)", "Size", "Fingerprints"},
		Rows: [][]string{
			videoRow("Reference", out.Reference),
			videoRow("Evidence", out.Evidence),
		},
		Aligns: []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	}))
	if out.MaxFrames > 0 {
		fmt.Fprintf(w, "Both videos were analyzed using %d uniformly distributed frames\n", out.MaxFrames)
	} else {
		fmt.Fprintln(w, "All frames from both videos were analyzed")
	}

	renderSequenceReport(w, out.Result, out.Report, opts)
}

func videoRow(side string, summary workflow.VideoSummary) []string {
	frames := strconv.Itoa(summary.Info.TotalFrames)
	if summary.Info.FrameCountEstimated {
		frames = "~" + frames
	}
	fingerprints := strconv.Itoa(summary.Frames)
	if summary.CacheHit {
		fingerprints += " (cached)"
	}
	return []string{
		fmt.Sprintf("%s (%s)", side, filepath.Base(summary.Path)),
		frames,
		fmt.Sprintf("%.2f", summary.Info.FPS),
		fmt.Sprintf("%.2f", summary.Info.Duration),
		humanize.IBytes(uint64(max(summary.Digest.Size, 0))),
		fingerprints,
	}
}

// renderSequenceReport prints the alignment summary, the detailed operation
// table and the final statistics. Both analyze and compare use it.
func renderSequenceReport(w io.Writer, result alignment.Result, report analysis.Report, opts reportOptions) {
	writeSection(w, "Advanced Sequence Analysis", opts.colorize)
	fmt.Fprintln(w, renderTableSpec(tableSpec{
		Title:   "Sequence Analysis Summary",
		Headers: []string{"Operation Type", "Count", "Description"},
		Rows: [][]string{
			{"Matches", strconv.Itoa(report.Matches), "Identical frames in same position"},
			{colorText("Substitutions", opts.colorize, text.FgYellow), strconv.Itoa(report.Substitutions), "Different frames in same position"},
			{colorText("Insertions", opts.colorize, text.FgRed), strconv.Itoa(report.Insertions), "Extra frames in evidence video"},
			{colorText("Deletions", opts.colorize, text.FgRed), strconv.Itoa(report.Deletions), "Missing frames from evidence video"},
			{"Edit Distance", formatDistance(report.EditDistance), "Cost of transforming reference into evidence"},
		},
		Aligns: []columnAlignment{alignLeft, alignRight, alignLeft},
	}))

	if opts.limit > 0 && len(result.Operations) > 0 {
		writeSection(w, "Detailed Alignment", opts.colorize)
		fmt.Fprintln(w, renderAlignmentTable(result.Head(opts.limit), report.Distribution, opts.colorize))
		if remaining := len(result.Operations) - opts.limit; remaining > 0 {
			fmt.Fprintf(w, "... and %d more operations\n", remaining)
		}
	}

	writeSection(w, "Final Summary", opts.colorize)
	fmt.Fprintln(w, renderSummaryTable(report, opts.colorize))
}

func renderAlignmentTable(ops []alignment.Operation, buckets []analysis.BucketCount, colorize bool) string {
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		refFrame, refHash := missingCell, missingCell
		if op.Reference != nil {
			refFrame = strconv.Itoa(op.Reference.FrameNumber)
			refHash = op.Reference.Fingerprint.String()
		}
		evFrame, evHash := missingCell, missingCell
		if op.Evidence != nil {
			evFrame = strconv.Itoa(op.Evidence.FrameNumber)
			evHash = op.Evidence.Fingerprint.String()
		}
		rows = append(rows, []string{
			colorText(strings.ToUpper(op.Kind.String()), colorize, kindColor(op.Kind)),
			refFrame,
			evFrame,
			colorText(fmt.Sprintf("%.1f%%", op.Similarity), colorize, similarityColor(op.Similarity, buckets)),
			refHash,
			evHash,
		})
	}
	return renderTableSpec(tableSpec{
		Headers: []string{"Operation", "Ref Frame", "Ev Frame", "Similarity", "Ref Hash", "Ev Hash"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignCenter, alignCenter, alignCenter, alignLeft, alignLeft},
		Style:   table.StyleLight,
	})
}

func renderSummaryTable(report analysis.Report, colorize bool) string {
	rows := [][]string{
		{"Frames Analyzed", strconv.Itoa(report.FramesAnalyzed)},
		{"Overall Average Similarity", formatPercent(report.MeanSimilarity)},
		{"Minimum Similarity", formatPercent(report.MinSimilarity)},
		{"Maximum Similarity", formatPercent(report.MaxSimilarity)},
	}
	if report.Substitutions > 0 {
		rows = append(rows, []string{"Avg Substitution Similarity", formatPercent(report.MeanSubstitutionSimilarity)})
	}

	separators := map[int]bool{len(rows): true}
	buckets := make([]analysis.Bucket, len(report.Distribution))
	for i, bc := range report.Distribution {
		buckets[i] = bc.Bucket
	}
	title := cases.Title(language.Und)
	for i, bc := range report.Distribution {
		label := fmt.Sprintf("%s Similarity (%s)", title.String(bc.Label), analysis.RangeLabel(buckets, i))
		color := bucketColor(i, len(report.Distribution))
		rows = append(rows, []string{
			colorText(label, colorize, color),
			colorText(fmt.Sprintf("%d frames", bc.Count), colorize, color),
		})
	}

	separators[len(rows)] = true
	rows = append(rows,
		[]string{"Identical Frames", fmt.Sprintf("%d/%d", report.Matches, report.FramesAnalyzed)},
		[]string{"Total Modifications", strconv.Itoa(report.Modifications())},
	)
	if report.Insertions > 0 {
		rows = append(rows, []string{colorText("Extra Frames Added", colorize, text.FgRed), strconv.Itoa(report.Insertions)})
	}
	if report.Deletions > 0 {
		rows = append(rows, []string{colorText("Frames Removed", colorize, text.FgRed), strconv.Itoa(report.Deletions)})
	}
	if report.Substitutions > 0 {
		rows = append(rows, []string{colorText("Frames Modified", colorize, text.FgYellow), strconv.Itoa(report.Substitutions)})
	}

	return renderTableSpec(tableSpec{
		Headers:    []string{"Metric", "Value"},
		Rows:       rows,
		Aligns:     []columnAlignment{alignLeft, alignRight},
		Style:      table.StyleBold,
		Separators: separators,
	})
}

func kindColor(kind alignment.Kind) text.Color {
	switch kind {
	case alignment.Match:
		return text.FgGreen
	case alignment.Substitution:
		return text.FgYellow
	default:
		return text.FgRed
	}
}

// bucketColor maps the first bucket to green, the last to red and anything
// between to yellow.
func bucketColor(index, count int) text.Color {
	switch {
	case index == 0:
		return text.FgGreen
	case index == count-1:
		return text.FgRed
	default:
		return text.FgYellow
	}
}

func similarityColor(similarity float64, buckets []analysis.BucketCount) text.Color {
	for i, bc := range buckets {
		if similarity >= bc.Min {
			return bucketColor(i, len(buckets))
		}
	}
	return text.FgRed
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func formatDistance(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
