// Package integrity computes whole-file cryptographic digests.
//
// Digests answer the binary question of whether two files are byte-identical
// before any perceptual analysis runs. Files are streamed in fixed chunks so
// multi-gigabyte recordings never need to fit in memory, and the context is
// checked between chunks.
package integrity
