package fingerprint

import (
	"fmt"
	"math/bits"
)

// Distance returns the Hamming distance between a and b.
func Distance(a, b Fingerprint) (int, error) {
	if a.width != b.width {
		return 0, fmt.Errorf("%w: %d bits vs %d bits", ErrIncompatibleWidth, a.width, b.width)
	}
	distance := 0
	for i := range a.bits {
		distance += bits.OnesCount8(a.bits[i] ^ b.bits[i])
	}
	return distance, nil
}

// Similarity returns 100*(1-distance/width), clamped to [0,100].
func Similarity(a, b Fingerprint) (float64, error) {
	distance, err := Distance(a, b)
	if err != nil {
		return 0, err
	}
	return SimilarityFromDistance(distance, a.width), nil
}

// SimilarityFromDistance converts a Hamming distance into a percentage.
// A non-positive width has no bits to disagree on and yields 100.
func SimilarityFromDistance(distance, width int) float64 {
	if width <= 0 {
		return 100
	}
	if distance <= 0 {
		return 100
	}
	if distance >= width {
		return 0
	}
	return 100 * (1 - float64(distance)/float64(width))
}
