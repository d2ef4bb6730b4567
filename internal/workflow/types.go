package workflow

import (
	"time"

	"trustframe/internal/alignment"
	"trustframe/internal/analysis"
	"trustframe/internal/integrity"
	"trustframe/internal/media/ffprobe"
	"trustframe/internal/media/phash"
)

// Stage names reported to Progress observers and attached to log lines.
const (
	StageDigest      = "digest"
	StageProbe       = "probe"
	StageFingerprint = "fingerprint"
	StageAlign       = "align"
	StageAnalyze     = "analyze"
	StageRecord      = "record"
)

// Side labels used in progress task names and log fields.
const (
	SideReference = "reference"
	SideEvidence  = "evidence"
)

// Progress receives stage updates. Task names are "<stage>" or
// "<stage> <side>". Finish may arrive for a task that never started, and
// more than once.
type Progress interface {
	Start(task string, total int64)
	Update(task string, done int64)
	Finish(task string)
}

// Options tune a single comparison. Zero values fall back to the config.
type Options struct {
	CryptoAlgorithm     string
	PerceptualAlgorithm string
	// MaxFrames caps the frames sampled per video; 0 keeps the configured cap.
	MaxFrames int
	Workers   int
	// NoCache skips both reading and writing the fingerprint cache.
	NoCache  bool
	Buckets  []analysis.Bucket
	Progress Progress
}

// VideoSummary describes one side of a comparison.
type VideoSummary struct {
	Path     string            `json:"path"`
	Digest   integrity.Digest  `json:"digest"`
	Info     ffprobe.VideoInfo `json:"video_info"`
	Frames   int               `json:"frames_fingerprinted"`
	CacheHit bool              `json:"cache_hit"`
}

// Outcome is the result of a comparison run.
type Outcome struct {
	RunID               string              `json:"run_id"`
	CryptoAlgorithm     integrity.Algorithm `json:"crypto_algorithm,omitempty"`
	PerceptualAlgorithm phash.Algorithm     `json:"perceptual_algorithm,omitempty"`
	// MaxFrames is the per-video sampling cap in effect; 0 means every frame.
	MaxFrames   int              `json:"max_frames"`
	Reference   VideoSummary     `json:"reference"`
	Evidence    VideoSummary     `json:"evidence"`
	DigestMatch bool             `json:"digest_match"`
	Result      alignment.Result `json:"alignment"`
	Report      analysis.Report  `json:"report"`
	Duration    time.Duration    `json:"duration"`
}
