// Package fingerprint models fixed-width perceptual fingerprints and the
// Hamming metric used to compare them.
//
// A Fingerprint is an immutable bit vector with a canonical lowercase hex
// form. Hex input is decoded digit by digit into 4-bit big-endian nibbles,
// concatenated left to right, so "8" and "08" are different fingerprints of
// width 4 and 8. Comparing fingerprints of different widths is always an
// error; nothing is padded or truncated.
package fingerprint
