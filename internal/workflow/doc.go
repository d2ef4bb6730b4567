// Package workflow runs a full reference/evidence comparison.
//
// A Comparator executes fixed stages in order: digest both files, probe
// their video streams, fingerprint sampled frames (served from the SQLite
// cache when possible), align the two sequences and reduce the edit script to
// a report. Each run is recorded in the store's history. Stage names are
// attached to the context so every log line and wrapped error carries them.
//
// CompareSequences is the media-free path: it aligns sequences the caller
// already holds, which is what the "compare" command uses for fingerprint
// lists produced elsewhere.
package workflow
