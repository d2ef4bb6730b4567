// Package analysis reduces an alignment edit script to aggregate statistics.
//
// Analyze never mutates its input. Every operation carries a similarity
// score (insertions and deletions score 0), so every operation contributes
// to the mean and to exactly one similarity bucket.
package analysis
