package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"trustframe/internal/alignment"
	"trustframe/internal/config"
	"trustframe/internal/fingerprint"
	"trustframe/internal/services"
	"trustframe/internal/store"
	"trustframe/internal/testsupport"
)

const testFrameSize = 16

type harness struct {
	cfg   *config.Config
	store *store.Store
	cmp   *Comparator
	dir   string
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	opts = append([]testsupport.ConfigOption{
		testsupport.WithFrameSize(testFrameSize, testFrameSize),
		testsupport.WithFakeMediaTools(),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	return &harness{
		cfg:   cfg,
		store: st,
		cmp:   NewComparator(cfg, st, nil),
		dir:   t.TempDir(),
	}
}

func (h *harness) video(t *testing.T, name string, seeds ...int) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	testsupport.WriteRawVideo(t, path, testFrameSize, testFrameSize, seeds...)
	return path
}

func TestAnalyzeIdenticalFiles(t *testing.T) {
	h := newHarness(t)
	ref := h.video(t, "ref.raw", 0, 1, 2, 3, 4, 5)
	ev := h.video(t, "ev.raw", 0, 1, 2, 3, 4, 5)

	out, err := h.cmp.Analyze(context.Background(), ref, ev, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !out.DigestMatch {
		t.Fatal("expected byte-identical files to match")
	}
	if out.Reference.Frames != 6 || out.Evidence.Frames != 6 {
		t.Fatalf("expected 6 frames per side, got %d/%d", out.Reference.Frames, out.Evidence.Frames)
	}
	if out.Report.Matches != 6 || out.Report.EditDistance != 0 || out.Report.Modifications() != 0 {
		t.Fatalf("unexpected report %+v", out.Report)
	}
	if out.Report.MeanSimilarity != 100 {
		t.Fatalf("expected mean similarity 100, got %v", out.Report.MeanSimilarity)
	}
	if out.Reference.Info.TotalFrames != 6 || out.Reference.Info.FPS != 25 {
		t.Fatalf("unexpected video info %+v", out.Reference.Info)
	}

	run, err := h.store.GetRun(context.Background(), out.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run == nil {
		t.Fatal("expected run to be recorded")
	}
	if run.Source != store.SourceAnalyze || !run.DigestMatch || run.Matches != 6 {
		t.Fatalf("unexpected recorded run %+v", run)
	}
	if run.ReferenceDigest != out.Reference.Digest.Hex {
		t.Fatalf("recorded digest %q, want %q", run.ReferenceDigest, out.Reference.Digest.Hex)
	}
}

func TestAnalyzeDetectsRemovedFrame(t *testing.T) {
	h := newHarness(t)
	ref := h.video(t, "ref.raw", 0, 1, 2, 3, 4, 5)
	ev := h.video(t, "ev.raw", 0, 1, 3, 4, 5)

	out, err := h.cmp.Analyze(context.Background(), ref, ev, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.DigestMatch {
		t.Fatal("expected digests to differ")
	}
	if out.Report.Deletions != 1 || out.Report.Insertions != 0 || out.Report.Substitutions != 0 {
		t.Fatalf("unexpected report %+v", out.Report)
	}
	if out.Report.Matches != 5 {
		t.Fatalf("expected 5 matches, got %d", out.Report.Matches)
	}
	if out.Result.Cost != 1 {
		t.Fatalf("expected edit distance 1, got %v", out.Result.Cost)
	}
}

func TestAnalyzeServesSecondRunFromCache(t *testing.T) {
	h := newHarness(t)
	ref := h.video(t, "ref.raw", 0, 1, 2, 3)
	ev := h.video(t, "ev.raw", 0, 1, 2, 4)

	first, err := h.cmp.Analyze(context.Background(), ref, ev, Options{})
	if err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	if first.Reference.CacheHit || first.Evidence.CacheHit {
		t.Fatal("first run cannot hit the cache")
	}
	count, err := h.store.FingerprintCount(context.Background())
	if err != nil || count != 2 {
		t.Fatalf("expected 2 cached sequences, got %d (%v)", count, err)
	}

	// Decoding is impossible now; only the cache can satisfy the run.
	h.cfg.Tools.FFmpeg = filepath.Join(h.dir, "missing-ffmpeg")
	second, err := h.cmp.Analyze(context.Background(), ref, ev, Options{})
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if !second.Reference.CacheHit || !second.Evidence.CacheHit {
		t.Fatal("expected both sides to be served from cache")
	}
	if !reflect.DeepEqual(second.Report, first.Report) {
		t.Fatalf("cached report differs:\nfirst  %+v\nsecond %+v", first.Report, second.Report)
	}
	if second.RunID == first.RunID {
		t.Fatal("each run must get its own ID")
	}
}

func TestAnalyzeNoCache(t *testing.T) {
	h := newHarness(t)
	ref := h.video(t, "ref.raw", 0, 1)
	ev := h.video(t, "ev.raw", 0, 1)

	if _, err := h.cmp.Analyze(context.Background(), ref, ev, Options{NoCache: true}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	count, err := h.store.FingerprintCount(context.Background())
	if err != nil || count != 0 {
		t.Fatalf("expected no cached sequences, got %d (%v)", count, err)
	}
	runs, err := h.store.ListRuns(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected history to be recorded regardless of cache, got %d (%v)", len(runs), err)
	}
}

func TestAnalyzeSamplesMaxFrames(t *testing.T) {
	h := newHarness(t)
	ref := h.video(t, "ref.raw", 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	ev := h.video(t, "ev.raw", 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	out, err := h.cmp.Analyze(context.Background(), ref, ev, Options{MaxFrames: 5})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.MaxFrames != 5 || out.Reference.Frames != 5 {
		t.Fatalf("expected 5 sampled frames, got cap %d frames %d", out.MaxFrames, out.Reference.Frames)
	}
	wantNumbers := []int{1, 3, 5, 7, 9}
	for i, op := range out.Result.Operations {
		if op.Reference.FrameNumber != wantNumbers[i] {
			t.Fatalf("operation %d frame number %d, want %d", i, op.Reference.FrameNumber, wantNumbers[i])
		}
		want := time.Duration(wantNumbers[i]-1) * 40 * time.Millisecond
		if op.Reference.Timestamp != want {
			t.Fatalf("operation %d timestamp %v, want %v", i, op.Reference.Timestamp, want)
		}
	}
}

func TestAnalyzeRejectsInvalidOptions(t *testing.T) {
	h := newHarness(t)
	ref := h.video(t, "ref.raw", 0)
	ev := h.video(t, "ev.raw", 0)

	tests := []struct {
		name string
		opts Options
	}{
		{name: "negative max frames", opts: Options{MaxFrames: -1}},
		{name: "negative workers", opts: Options{Workers: -2}},
		{name: "unsupported crypto", opts: Options{CryptoAlgorithm: "md5"}},
		{name: "unsupported perceptual", opts: Options{PerceptualAlgorithm: "whash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.cmp.Analyze(context.Background(), ref, ev, tt.opts)
			if kind := services.Classify(err); kind != services.KindInvalidConfiguration {
				t.Fatalf("expected %s, got %s (%v)", services.KindInvalidConfiguration, kind, err)
			}
		})
	}
	runs, err := h.store.ListRuns(context.Background(), 10)
	if err != nil || len(runs) != 0 {
		t.Fatalf("rejected runs must not be recorded, got %d (%v)", len(runs), err)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	h := newHarness(t)
	ref := h.video(t, "ref.raw", 0)

	_, err := h.cmp.Analyze(context.Background(), ref, filepath.Join(h.dir, "nope.raw"), Options{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	h := newHarness(t)
	ref := h.video(t, "ref.raw", 0, 1)
	ev := h.video(t, "ev.raw", 0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.cmp.Analyze(ctx, ref, ev, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type recordingProgress struct {
	mu       sync.Mutex
	started  map[string]int64
	updates  map[string]int64
	finished map[string]bool
}

func newRecordingProgress() *recordingProgress {
	return &recordingProgress{
		started:  make(map[string]int64),
		updates:  make(map[string]int64),
		finished: make(map[string]bool),
	}
}

func (p *recordingProgress) Start(task string, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started[task] = total
}

func (p *recordingProgress) Update(task string, done int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates[task] = done
}

func (p *recordingProgress) Finish(task string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished[task] = true
}

func TestAnalyzeReportsProgress(t *testing.T) {
	h := newHarness(t)
	ref := h.video(t, "ref.raw", 0, 1, 2)
	ev := h.video(t, "ev.raw", 0, 1)
	progress := newRecordingProgress()

	if _, err := h.cmp.Analyze(context.Background(), ref, ev, Options{Progress: progress}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if got := progress.started[StageAlign]; got != 6 {
		t.Fatalf("expected 6 diagonals, got %d", got)
	}
	if got := progress.updates[StageAlign]; got != 6 {
		t.Fatalf("expected final diagonal update 6, got %d", got)
	}
	if got := progress.updates[taskName(StageFingerprint, SideReference)]; got != 3 {
		t.Fatalf("expected 3 reference frames reported, got %d", got)
	}
	if got := progress.updates[taskName(StageDigest, SideEvidence)]; got != int64(2*testFrameSize*testFrameSize*3) {
		t.Fatalf("unexpected evidence digest progress %d", got)
	}
	for _, task := range []string{
		StageAlign,
		taskName(StageDigest, SideReference),
		taskName(StageFingerprint, SideEvidence),
	} {
		if !progress.finished[task] {
			t.Fatalf("expected %q to finish", task)
		}
	}
}

func TestCompareSequencesSubstitution(t *testing.T) {
	h := newHarness(t)
	a := fingerprint.FromUint64(0xAAAA_AAAA_AAAA_AAAA)
	b := fingerprint.FromUint64(0)
	x := fingerprint.FromUint64(0xFFFF_FFFF)
	c := fingerprint.FromUint64(0x0123_4567_89AB_CDEF)

	out, err := h.cmp.CompareSequences(context.Background(),
		"ref.txt", alignment.SequenceOf(a, b, c),
		"ev.txt", alignment.SequenceOf(a, x, c),
		Options{},
	)
	if err != nil {
		t.Fatalf("CompareSequences: %v", err)
	}
	if out.Report.Matches != 2 || out.Report.Substitutions != 1 {
		t.Fatalf("unexpected report %+v", out.Report)
	}
	if out.Result.Cost != 0.5 {
		t.Fatalf("expected edit distance 0.5, got %v", out.Result.Cost)
	}
	if got := out.Report.MeanSimilarity; got < 83.33 || got > 83.34 {
		t.Fatalf("expected mean similarity ~83.33, got %v", got)
	}

	run, err := h.store.GetRun(context.Background(), out.RunID)
	if err != nil || run == nil {
		t.Fatalf("expected recorded run, got %v (%v)", run, err)
	}
	if run.Source != store.SourceCompare || run.CryptoAlgorithm != "" {
		t.Fatalf("unexpected compare run %+v", run)
	}
}

func TestCompareSequencesWidthMismatch(t *testing.T) {
	h := newHarness(t)
	ref := alignment.SequenceOf(fingerprint.FromUint64(1))
	ev := alignment.SequenceOf(fingerprint.MustParseHex("ff"))

	_, err := h.cmp.CompareSequences(context.Background(), "ref.txt", ref, "ev.txt", ev, Options{})
	if kind := services.Classify(err); kind != services.KindIncompatibleWidth {
		t.Fatalf("expected %s, got %s (%v)", services.KindIncompatibleWidth, kind, err)
	}
}

func TestCompareSequencesWithoutStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cmp := NewComparator(cfg, nil, nil)

	out, err := cmp.CompareSequences(context.Background(), "ref", nil, "ev",
		alignment.SequenceOf(fingerprint.FromUint64(1), fingerprint.FromUint64(2)), Options{})
	if err != nil {
		t.Fatalf("CompareSequences: %v", err)
	}
	if out.Report.Insertions != 2 || out.Result.Cost != 2 {
		t.Fatalf("unexpected empty-reference outcome %+v", out.Report)
	}
}
