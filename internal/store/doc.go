// Package store persists fingerprint sequences and comparison history in
// SQLite.
//
// The fingerprints table caches the frame fingerprints of a file keyed by its
// content digest and the sampling parameters, so re-running a comparison
// against a known recording skips decoding. The runs table keeps a summary of
// every comparison for the history command. Lock provides a cross-process
// file lock so two invocations never decode the same file at once.
//
// The schema is versioned; a mismatch fails Open with ErrSchemaMismatch
// instead of migrating, since every row can be rebuilt from the media files.
package store
