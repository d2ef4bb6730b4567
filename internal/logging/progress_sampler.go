package logging

import (
	"math"
	"strings"
)

// DefaultProgressStep is the bucket width used when NewProgressSampler gets a
// non-positive step.
const DefaultProgressStep = 5.0

// ProgressSampler decides which progress updates deserve a log line: the first
// update of every stage and each time the percentage enters a new bucket.
// Frame extraction and alignment report thousands of updates, so callers
// consult the sampler before logging.
//
// A ProgressSampler is not safe for concurrent use.
type ProgressSampler struct {
	step   float64
	stage  string
	bucket int
}

// NewProgressSampler returns a sampler with the given bucket width in percent.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 || math.IsNaN(step) {
		step = DefaultProgressStep
	}
	return &ProgressSampler{step: step, bucket: -1}
}

// Sample reports whether the update should be logged. A negative percent means
// "unknown" and only stage changes are reported for it. A nil sampler logs
// everything.
func (s *ProgressSampler) Sample(stage string, percent float64) bool {
	if s == nil {
		return true
	}
	emit := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage = stage
		s.bucket = -1
		emit = true
	}
	if percent < 0 || math.IsNaN(percent) {
		return emit
	}
	bucket := int(math.Min(percent, 100) / s.step)
	if bucket > s.bucket {
		s.bucket = bucket
		emit = true
	}
	return emit
}

// Reset forgets the current stage and bucket.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.stage = ""
	s.bucket = -1
}
