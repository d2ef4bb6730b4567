// Package phash turns decoded frames into 64-bit perceptual fingerprints.
package phash

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/corona10/goimagehash"

	"trustframe/internal/fingerprint"
	"trustframe/internal/services"
)

// Width is the bit width of every fingerprint produced here.
const Width = 64

// Algorithm selects the perceptual hash.
type Algorithm string

const (
	// PHash is the DCT-based perceptual hash.
	PHash Algorithm = "phash"
	// AHash thresholds each pixel against the mean.
	AHash Algorithm = "ahash"
	// DHash encodes horizontal brightness gradients.
	DHash Algorithm = "dhash"
)

var errNilImage = errors.New("nil image")

// Algorithms lists the supported hashes in display order.
func Algorithms() []Algorithm {
	return []Algorithm{PHash, AHash, DHash}
}

// ParseAlgorithm resolves a case-insensitive algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	candidate := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	for _, alg := range Algorithms() {
		if alg == candidate {
			return alg, nil
		}
	}
	if candidate == "whash" {
		return "", fmt.Errorf("%w: perceptual algorithm whash is not supported (want phash, ahash or dhash)", services.ErrInvalidConfiguration)
	}
	return "", fmt.Errorf("%w: unsupported perceptual algorithm %q (want phash, ahash or dhash)", services.ErrInvalidConfiguration, name)
}

func (a Algorithm) String() string { return string(a) }

// Label is the upper-case display form, e.g. "PHASH".
func (a Algorithm) Label() string { return strings.ToUpper(string(a)) }

// Hash fingerprints img.
func (a Algorithm) Hash(img image.Image) (fingerprint.Fingerprint, error) {
	if img == nil {
		return fingerprint.Fingerprint{}, errNilImage
	}
	var (
		h   *goimagehash.ImageHash
		err error
	)
	switch a {
	case PHash:
		h, err = goimagehash.PerceptionHash(img)
	case AHash:
		h, err = goimagehash.AverageHash(img)
	case DHash:
		h, err = goimagehash.DifferenceHash(img)
	default:
		return fingerprint.Fingerprint{}, fmt.Errorf("%w: unsupported perceptual algorithm %q", services.ErrInvalidConfiguration, string(a))
	}
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("%s: %w", a, err)
	}
	return fingerprint.FromUint64(h.GetHash()), nil
}
