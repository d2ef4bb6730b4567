package workflow

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"trustframe/internal/alignment"
	"trustframe/internal/integrity"
	"trustframe/internal/logging"
	"trustframe/internal/media/ffprobe"
	"trustframe/internal/media/frames"
	"trustframe/internal/services"
	"trustframe/internal/store"
)

func taskName(stage, side string) string {
	return stage + " " + side
}

func (c *Comparator) digestBoth(ctx context.Context, logger *slog.Logger, s settings, out *Outcome) error {
	for _, side := range []struct {
		name    string
		summary *VideoSummary
	}{
		{SideReference, &out.Reference},
		{SideEvidence, &out.Evidence},
	} {
		task := taskName(StageDigest, side.name)
		var progress integrity.ProgressFunc
		if s.progress != nil {
			started := false
			progress = func(done, total int64) {
				if !started {
					s.progress.Start(task, total)
					started = true
				}
				s.progress.Update(task, done)
			}
		}
		digest, err := integrity.File(ctx, side.summary.Path, s.crypto, progress)
		if s.progress != nil {
			s.progress.Finish(task)
		}
		if err != nil {
			return err
		}
		side.summary.Digest = digest
		logger.Info("file digest computed",
			logging.String(logging.FieldEventType, "digest_computed"),
			logging.String(logging.FieldSide, side.name),
			logging.String("algorithm", digest.Algorithm.String()),
			logging.String("digest", digest.Hex),
			logging.Int64("size_bytes", digest.Size),
		)
	}
	out.DigestMatch = out.Reference.Digest.Equal(out.Evidence.Digest)
	if !out.DigestMatch {
		logging.WarnWithContext(logger, "file digests differ", "digest_mismatch",
			logging.Alert("digest_mismatch"),
			logging.String(logging.FieldErrorHint, "review the perceptual alignment for content changes"),
			logging.String(logging.FieldImpact, "evidence is not a byte-identical copy of the reference"),
		)
	}
	return nil
}

func (c *Comparator) probeBoth(ctx context.Context, logger *slog.Logger, out *Outcome) error {
	for _, side := range []struct {
		name    string
		summary *VideoSummary
	}{
		{SideReference, &out.Reference},
		{SideEvidence, &out.Evidence},
	} {
		probe, err := ffprobe.Inspect(ctx, c.cfg.FFprobeBinary(), side.summary.Path)
		if err != nil {
			return err
		}
		info, err := probe.VideoInfo()
		if err != nil {
			return fmt.Errorf("%s %s: %w", side.name, side.summary.Path, err)
		}
		side.summary.Info = info
		logger.Info("video probed",
			logging.String(logging.FieldEventType, "video_probed"),
			logging.String(logging.FieldSide, side.name),
			logging.String("codec", info.Codec),
			logging.Int("width", info.Width),
			logging.Int("height", info.Height),
			logging.Int("total_frames", info.TotalFrames),
			logging.Float64("fps", info.FPS),
			logging.Float64("duration_seconds", info.Duration),
		)
		if info.FrameCountEstimated {
			logging.WarnWithContext(logger, "frame count estimated from duration", "frame_count_estimated",
				logging.String(logging.FieldSide, side.name),
				logging.String(logging.FieldErrorHint, "remux the file to record an exact frame count"),
				logging.String(logging.FieldImpact, "uniform sampling positions may drift slightly"),
			)
		}
	}
	return nil
}

// fingerprint returns the perceptual sequence for one side, from the cache
// when an identical extraction was stored before.
func (c *Comparator) fingerprint(ctx context.Context, s settings, side string, summary *VideoSummary) (alignment.Sequence, error) {
	key := store.CacheKey{
		FileDigest:          summary.Digest.Algorithm.String() + ":" + summary.Digest.Hex,
		PerceptualAlgorithm: s.perceptual.String(),
		MaxFrames:           s.maxFrames,
		FrameWidth:          c.cfg.Analysis.FrameWidth,
		FrameHeight:         c.cfg.Analysis.FrameHeight,
	}
	ctx = services.WithSide(ctx, side)
	logger := logging.WithContext(ctx, c.logger)

	if !s.useCache {
		seq, err := c.extract(ctx, logger, s, side, summary)
		if err != nil {
			return nil, err
		}
		summary.Frames = len(seq)
		return seq, nil
	}

	if seq, ok := c.loadCached(ctx, logger, key); ok {
		summary.Frames = len(seq)
		summary.CacheHit = true
		return seq, nil
	}

	lock, err := store.Lock(ctx, c.cfg.LockDir(), summary.Digest.Algorithm.String()+"-"+summary.Digest.Hex)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Debug("release extraction lock failed", logging.Error(err))
		}
	}()

	// Another process may have finished the same extraction while we waited.
	if seq, ok := c.loadCached(ctx, logger, key); ok {
		summary.Frames = len(seq)
		summary.CacheHit = true
		return seq, nil
	}

	seq, err := c.extract(ctx, logger, s, side, summary)
	if err != nil {
		return nil, err
	}
	summary.Frames = len(seq)
	if err := c.store.SaveFingerprints(ctx, key, seq, summary.Info); err != nil {
		logging.WarnWithContext(logger, "fingerprint cache write failed", "cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run trustframe doctor to check the cache database"),
			logging.String(logging.FieldImpact, "the next run will decode this file again"),
		)
	}
	return seq, nil
}

func (c *Comparator) loadCached(ctx context.Context, logger *slog.Logger, key store.CacheKey) (alignment.Sequence, bool) {
	cached, ok, err := c.store.LoadFingerprints(ctx, key)
	if err != nil {
		logging.WarnWithContext(logger, "fingerprint cache read failed", "cache_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run trustframe doctor to check the cache database"),
			logging.String(logging.FieldImpact, "frames are decoded again"),
		)
		return nil, false
	}
	if !ok {
		logger.Debug("fingerprint cache miss", logging.String(logging.FieldEventType, "cache_miss"))
		return nil, false
	}
	logger.Info("fingerprints loaded from cache",
		logging.String(logging.FieldEventType, "cache_hit"),
		logging.Int("frames", len(cached.Sequence)),
		logging.String("cached_at", cached.CreatedAt.Format(time.RFC3339)),
	)
	return cached.Sequence, true
}

// extract decodes the sampled frames of one video and hashes them. Frame
// numbers are 1-based source positions; timestamps derive from the frame rate.
func (c *Comparator) extract(ctx context.Context, logger *slog.Logger, s settings, side string, summary *VideoSummary) (alignment.Sequence, error) {
	info := summary.Info
	indices := frames.SampleIndices(info.TotalFrames, s.maxFrames)
	expected := len(indices)
	if info.TotalFrames <= 0 {
		// Unknown length: decode everything and sample afterwards.
		indices = nil
		expected = 0
	}

	task := taskName(StageFingerprint, side)
	sampler := logging.NewProgressSampler(logging.DefaultProgressStep)
	if s.progress != nil {
		s.progress.Start(task, int64(expected))
		defer s.progress.Finish(task)
	}
	logger.Info("fingerprinting frames",
		logging.String(logging.FieldEventType, "fingerprint_start"),
		logging.Int("frames_requested", expected),
		logging.String("algorithm", s.perceptual.String()),
	)

	frameDuration := info.FrameDuration()
	seq := make(alignment.Sequence, 0, expected)
	opts := frames.Options{
		Binary: c.cfg.FFmpegBinary(),
		Width:  c.cfg.Analysis.FrameWidth,
		Height: c.cfg.Analysis.FrameHeight,
	}
	delivered, err := frames.Extract(ctx, opts, summary.Path, indices, func(index int, img image.Image) error {
		fp, err := s.perceptual.Hash(img)
		if err != nil {
			return fmt.Errorf("hash frame %d: %w", index+1, err)
		}
		seq = append(seq, alignment.Frame{
			Fingerprint: fp,
			FrameNumber: index + 1,
			Timestamp:   time.Duration(index) * frameDuration,
		})
		done := len(seq)
		if s.progress != nil {
			s.progress.Update(task, int64(done))
		}
		if expected > 0 && sampler.Sample(task, float64(done)*100/float64(expected)) {
			logger.Debug("fingerprint progress",
				logging.String(logging.FieldEventType, "fingerprint_progress"),
				logging.Int("frames_done", done),
				logging.Int("frames_requested", expected),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if indices == nil && s.maxFrames > 0 && len(seq) > s.maxFrames {
		sampled := make(alignment.Sequence, 0, s.maxFrames)
		for _, idx := range frames.SampleIndices(len(seq), s.maxFrames) {
			sampled = append(sampled, seq[idx])
		}
		seq = sampled
	}
	if expected > 0 && delivered < expected {
		logging.WarnWithContext(logger, "video ended before all sampled frames were decoded", "short_stream",
			logging.Int("frames_requested", expected),
			logging.Int("frames_decoded", delivered),
			logging.String(logging.FieldErrorHint, "the container frame count may be inaccurate"),
			logging.String(logging.FieldImpact, "fewer frames are compared than requested"),
		)
	}
	logger.Info("fingerprinting complete",
		logging.String(logging.FieldEventType, "fingerprint_complete"),
		logging.Int("frames", len(seq)),
	)
	return seq, nil
}

// alignObserver forwards wavefront progress to the Progress observer and
// logs it at sampled intervals.
func (c *Comparator) alignObserver(logger *slog.Logger, progress Progress, diagonals int) alignment.Observer {
	sampler := logging.NewProgressSampler(logging.DefaultProgressStep)
	if progress != nil {
		progress.Start(StageAlign, int64(diagonals))
	}
	return func(p alignment.Progress) {
		if progress != nil {
			progress.Update(StageAlign, int64(p.Diagonal))
			if p.Diagonal == p.Diagonals {
				progress.Finish(StageAlign)
			}
		}
		if sampler.Sample(StageAlign, p.Percent()) {
			logger.Debug("alignment progress",
				logging.String(logging.FieldEventType, "align_progress"),
				logging.Int("diagonal", p.Diagonal),
				logging.Int("diagonals", p.Diagonals),
				logging.Float64("percent", p.Percent()),
			)
		}
	}
}

// record stores the run in history. A failure is logged, never returned: the
// comparison itself succeeded.
func (c *Comparator) record(ctx context.Context, source string, out *Outcome) {
	if c.store == nil {
		return
	}
	ctx = services.WithStage(ctx, StageRecord)
	logger := logging.WithContext(ctx, c.logger)
	run := &store.Run{
		ID:                  out.RunID,
		Source:              source,
		ReferencePath:       out.Reference.Path,
		EvidencePath:        out.Evidence.Path,
		CryptoAlgorithm:     string(out.CryptoAlgorithm),
		ReferenceDigest:     out.Reference.Digest.Hex,
		EvidenceDigest:      out.Evidence.Digest.Hex,
		DigestMatch:         out.DigestMatch,
		PerceptualAlgorithm: string(out.PerceptualAlgorithm),
		ReferenceFrames:     out.Report.ReferenceFrames,
		EvidenceFrames:      out.Report.EvidenceFrames,
		EditDistance:        out.Report.EditDistance,
		Matches:             out.Report.Matches,
		Substitutions:       out.Report.Substitutions,
		Insertions:          out.Report.Insertions,
		Deletions:           out.Report.Deletions,
		MeanSimilarity:      out.Report.MeanSimilarity,
		Duration:            out.Duration,
	}
	if err := c.store.RecordRun(ctx, run); err != nil {
		logging.WarnWithContext(logger, "run history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run trustframe doctor to check the cache database"),
			logging.String(logging.FieldImpact, "this run will not appear in trustframe history"),
		)
	}
}
