package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncompatibleWidth reports a comparison between fingerprints of different bit widths.
	ErrIncompatibleWidth = errors.New("incompatible fingerprint width")
	// ErrInvalidEncoding reports text that is not a hex encoded fingerprint.
	ErrInvalidEncoding = errors.New("invalid fingerprint encoding")
)

// Fingerprint is an immutable fixed-width bit vector.
type Fingerprint struct {
	bits  []byte
	width int
}

// ParseHex decodes a hex string. Each digit contributes four bits, most
// significant first, so the width is always 4*len(s).
func ParseHex(s string) (Fingerprint, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return Fingerprint{}, fmt.Errorf("%w: empty value", ErrInvalidEncoding)
	}
	width := len(trimmed) * 4
	padded := trimmed
	if len(padded)%2 == 1 {
		// Right-pad the final nibble; the padding bits sit beyond width.
		padded += "0"
	}
	raw, err := hex.DecodeString(padded)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %q", ErrInvalidEncoding, s)
	}
	return Fingerprint{bits: raw, width: width}, nil
}

// MustParseHex is ParseHex for fixtures and tests; it panics on invalid input.
func MustParseHex(s string) Fingerprint {
	fp, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return fp
}

// FromUint64 returns a 64-bit fingerprint holding v in big-endian order.
func FromUint64(v uint64) Fingerprint {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, v)
	return Fingerprint{bits: raw, width: 64}
}

// FromBytes returns a fingerprint whose width is 8*len(b). The slice is copied.
func FromBytes(b []byte) Fingerprint {
	return Fingerprint{bits: append([]byte(nil), b...), width: len(b) * 8}
}

// Width returns the number of bits in the fingerprint.
func (f Fingerprint) Width() int {
	return f.width
}

// IsZero reports whether f is the zero value (no bits at all).
func (f Fingerprint) IsZero() bool {
	return f.width == 0
}

// Equal reports bit-for-bit equality, including width.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if f.width != other.width {
		return false
	}
	for i := range f.bits {
		if f.bits[i] != other.bits[i] {
			return false
		}
	}
	return true
}

// Bytes returns a copy of the packed bits.
func (f Fingerprint) Bytes() []byte {
	return append([]byte(nil), f.bits...)
}

// String returns the canonical lowercase hex form.
func (f Fingerprint) String() string {
	encoded := hex.EncodeToString(f.bits)
	digits := f.width / 4
	if digits < len(encoded) {
		encoded = encoded[:digits]
	}
	return encoded
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
