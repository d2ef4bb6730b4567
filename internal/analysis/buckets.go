package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidBuckets reports an unusable similarity bucket layout.
var ErrInvalidBuckets = errors.New("invalid similarity buckets")

// Bucket is a similarity range whose lower bound is Min (inclusive) and whose
// upper bound is the previous bucket's Min (exclusive), or 100 for the first.
type Bucket struct {
	Label string  `json:"label" toml:"label"`
	Min   float64 `json:"min" toml:"min"`
}

// DefaultBuckets returns high >= 90, medium >= 50 and low < 50.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{Label: "high", Min: 90},
		{Label: "medium", Min: 50},
		{Label: "low", Min: 0},
	}
}

// ValidateBuckets checks that buckets are labelled, strictly descending and
// that the last one starts at 0 so every score in [0,100] lands somewhere.
func ValidateBuckets(buckets []Bucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("%w: at least one bucket is required", ErrInvalidBuckets)
	}
	seen := make(map[string]struct{}, len(buckets))
	for i, b := range buckets {
		label := strings.TrimSpace(b.Label)
		if label == "" {
			return fmt.Errorf("%w: bucket %d has no label", ErrInvalidBuckets, i)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidBuckets, label)
		}
		seen[label] = struct{}{}
		if b.Min < 0 || b.Min > 100 {
			return fmt.Errorf("%w: bucket %q minimum %v outside [0,100]", ErrInvalidBuckets, label, b.Min)
		}
		if i > 0 && b.Min >= buckets[i-1].Min {
			return fmt.Errorf("%w: bucket %q minimum %v must be below %v", ErrInvalidBuckets, label, b.Min, buckets[i-1].Min)
		}
	}
	if last := buckets[len(buckets)-1]; last.Min != 0 {
		return fmt.Errorf("%w: last bucket %q must start at 0", ErrInvalidBuckets, last.Label)
	}
	return nil
}

// RangeLabel renders the bucket range as text, e.g. "50% to <90%" or ">=90%".
func RangeLabel(buckets []Bucket, i int) string {
	if i < 0 || i >= len(buckets) {
		return ""
	}
	lo := buckets[i].Min
	if i == 0 {
		return fmt.Sprintf(">=%g%%", lo)
	}
	hi := buckets[i-1].Min
	if lo == 0 {
		return fmt.Sprintf("<%g%%", hi)
	}
	return fmt.Sprintf("%g%% to <%g%%", lo, hi)
}

func bucketIndex(buckets []Bucket, similarity float64) int {
	for i, b := range buckets {
		if similarity >= b.Min {
			return i
		}
	}
	return len(buckets) - 1
}
