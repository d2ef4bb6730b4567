package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trustframe/internal/alignment"
	"trustframe/internal/analysis"
	"trustframe/internal/config"
	"trustframe/internal/integrity"
	"trustframe/internal/logging"
	"trustframe/internal/media/phash"
	"trustframe/internal/services"
	"trustframe/internal/store"
)

// Comparator runs comparisons for a single configuration. The store is
// optional; without it nothing is cached and no history is recorded.
type Comparator struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

// NewComparator constructs a Comparator.
func NewComparator(cfg *config.Config, st *store.Store, logger *slog.Logger) *Comparator {
	return &Comparator{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
}

type settings struct {
	crypto     integrity.Algorithm
	perceptual phash.Algorithm
	maxFrames  int
	workers    int
	useCache   bool
	buckets    []analysis.Bucket
	progress   Progress
}

// resolve merges opts over the config and validates the result before any
// file is touched.
func (c *Comparator) resolve(opts Options) (settings, error) {
	if c.cfg == nil {
		return settings{}, services.Wrap(services.ErrInvalidConfiguration, "workflow", "options", "config is required", nil)
	}
	s := settings{
		maxFrames: c.cfg.Analysis.MaxFrames,
		workers:   c.cfg.Analysis.Workers,
		useCache:  c.cfg.Cache.Enabled && !opts.NoCache && c.store != nil,
		buckets:   c.cfg.Similarity.Buckets,
		progress:  opts.Progress,
	}

	cryptoName := c.cfg.Analysis.CryptoAlgorithm
	if opts.CryptoAlgorithm != "" {
		cryptoName = opts.CryptoAlgorithm
	}
	crypto, err := integrity.ParseAlgorithm(cryptoName)
	if err != nil {
		return settings{}, err
	}
	s.crypto = crypto

	perceptualName := c.cfg.Analysis.PerceptualAlgorithm
	if opts.PerceptualAlgorithm != "" {
		perceptualName = opts.PerceptualAlgorithm
	}
	perceptual, err := phash.ParseAlgorithm(perceptualName)
	if err != nil {
		return settings{}, err
	}
	s.perceptual = perceptual

	switch {
	case opts.MaxFrames < 0:
		return settings{}, services.Wrap(services.ErrInvalidConfiguration, "workflow", "options",
			fmt.Sprintf("max frames must be positive, got %d", opts.MaxFrames), nil)
	case opts.MaxFrames > 0:
		s.maxFrames = opts.MaxFrames
	}
	switch {
	case opts.Workers < 0:
		return settings{}, services.Wrap(services.ErrInvalidConfiguration, "workflow", "options",
			fmt.Sprintf("workers must be positive, got %d", opts.Workers), nil)
	case opts.Workers > 0:
		s.workers = opts.Workers
	}
	if len(opts.Buckets) > 0 {
		s.buckets = opts.Buckets
	}
	if err := analysis.ValidateBuckets(s.buckets); err != nil {
		return settings{}, services.Wrap(services.ErrInvalidConfiguration, "workflow", "options", "", err)
	}
	return s, nil
}

// Analyze compares the video at referencePath against the one at evidencePath.
func (c *Comparator) Analyze(ctx context.Context, referencePath, evidencePath string, opts Options) (Outcome, error) {
	start := time.Now()
	s, err := c.resolve(opts)
	if err != nil {
		return Outcome{}, err
	}

	runID := store.NewRunID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("comparison started",
		logging.String(logging.FieldEventType, "comparison_start"),
		logging.String("reference", referencePath),
		logging.String("evidence", evidencePath),
		logging.String("crypto_algorithm", s.crypto.String()),
		logging.String("perceptual_algorithm", s.perceptual.String()),
		logging.Int("max_frames", s.maxFrames),
		logging.Bool("cache", s.useCache),
	)

	out := Outcome{
		RunID:               runID,
		CryptoAlgorithm:     s.crypto,
		PerceptualAlgorithm: s.perceptual,
		MaxFrames:           s.maxFrames,
		Reference:           VideoSummary{Path: referencePath},
		Evidence:            VideoSummary{Path: evidencePath},
	}

	if err := c.runStage(ctx, StageDigest, func(ctx context.Context, logger *slog.Logger) error {
		return c.digestBoth(ctx, logger, s, &out)
	}); err != nil {
		return Outcome{}, err
	}
	if err := c.runStage(ctx, StageProbe, func(ctx context.Context, logger *slog.Logger) error {
		return c.probeBoth(ctx, logger, &out)
	}); err != nil {
		return Outcome{}, err
	}

	var refSeq, evSeq alignment.Sequence
	if err := c.runStage(ctx, StageFingerprint, func(ctx context.Context, _ *slog.Logger) error {
		var err error
		refSeq, err = c.fingerprint(ctx, s, SideReference, &out.Reference)
		if err != nil {
			return err
		}
		evSeq, err = c.fingerprint(ctx, s, SideEvidence, &out.Evidence)
		return err
	}); err != nil {
		return Outcome{}, err
	}

	if err := c.alignAndAnalyze(ctx, s, refSeq, evSeq, &out); err != nil {
		return Outcome{}, err
	}
	out.Duration = time.Since(start)
	c.record(ctx, store.SourceAnalyze, &out)

	logger.Info("comparison completed",
		logging.String(logging.FieldEventType, "comparison_complete"),
		logging.Bool("digest_match", out.DigestMatch),
		logging.Float64("edit_distance", out.Report.EditDistance),
		logging.Int("matches", out.Report.Matches),
		logging.Int("substitutions", out.Report.Substitutions),
		logging.Int("insertions", out.Report.Insertions),
		logging.Int("deletions", out.Report.Deletions),
		logging.Float64("mean_similarity", out.Report.MeanSimilarity),
		logging.Duration("duration", out.Duration),
	)
	return out, nil
}

// CompareSequences aligns two fingerprint sequences the caller already holds.
// Paths are used only for labels and run history.
func (c *Comparator) CompareSequences(ctx context.Context, referencePath string, reference alignment.Sequence, evidencePath string, evidence alignment.Sequence, opts Options) (Outcome, error) {
	start := time.Now()
	s, err := c.resolve(opts)
	if err != nil {
		return Outcome{}, err
	}
	runID := store.NewRunID()
	ctx = services.WithRunID(ctx, runID)

	out := Outcome{
		RunID:     runID,
		Reference: VideoSummary{Path: referencePath, Frames: len(reference)},
		Evidence:  VideoSummary{Path: evidencePath, Frames: len(evidence)},
	}
	if err := c.alignAndAnalyze(ctx, s, reference, evidence, &out); err != nil {
		return Outcome{}, err
	}
	out.Duration = time.Since(start)
	c.record(ctx, store.SourceCompare, &out)
	return out, nil
}

func (c *Comparator) alignAndAnalyze(ctx context.Context, s settings, reference, evidence alignment.Sequence, out *Outcome) error {
	if err := c.runStage(ctx, StageAlign, func(ctx context.Context, logger *slog.Logger) error {
		if err := alignment.RequireFrames(reference, evidence); err != nil {
			logging.WarnWithContext(logger, "aligning against an empty sequence", "empty_sequence",
				logging.String(logging.FieldErrorHint, "check that both inputs decoded at least one frame"),
				logging.String(logging.FieldImpact, "every frame of the other side is reported as inserted or deleted"),
				logging.Error(err),
			)
		}
		result, err := alignment.Align(ctx, reference, evidence, alignment.Options{
			Workers:  s.workers,
			Observer: c.alignObserver(logger, s.progress, len(reference)+len(evidence)+1),
		})
		if err != nil {
			if s.progress != nil {
				s.progress.Finish(StageAlign)
			}
			return err
		}
		out.Result = result
		return nil
	}); err != nil {
		return err
	}
	return c.runStage(ctx, StageAnalyze, func(ctx context.Context, logger *slog.Logger) error {
		report, err := analysis.Analyze(out.Result, s.buckets)
		if err != nil {
			return err
		}
		out.Report = report
		return nil
	})
}

// runStage runs fn with the stage attached to ctx and logs its outcome.
func (c *Comparator) runStage(ctx context.Context, stage string, fn func(context.Context, *slog.Logger) error) error {
	stageCtx := services.WithStage(ctx, stage)
	logger := logging.WithContext(stageCtx, c.logger)
	start := time.Now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := fn(stageCtx, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("stage interrupted")
			return err
		}
		logging.ErrorWithContext(logger, "stage failed", "stage_failed", err,
			logging.String(logging.FieldErrorHint, stageHint(stage)),
		)
		return err
	}
	logger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return nil
}

func stageHint(stage string) string {
	switch stage {
	case StageDigest:
		return "check that both files exist and are readable"
	case StageProbe:
		return "run trustframe doctor and confirm ffprobe can read the file"
	case StageFingerprint:
		return "run trustframe doctor and confirm ffmpeg can decode the file"
	case StageAlign:
		return "lower max_frames if the sequences are too large"
	default:
		return "check the log file for details"
	}
}
