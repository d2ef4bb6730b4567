// Package alignment computes minimum-cost edit scripts between two
// fingerprint sequences.
//
// Align runs a Wagner–Fischer dynamic program in which insertions and
// deletions cost 1 and substituting fingerprint a for b costs
// distance(a,b)/width, so identical fingerprints align for free and
// near-duplicates are preferred over indel pairs. Costs are accumulated in
// integer units of 1/width, which keeps tie detection exact.
//
// Ties are broken in a fixed order: diagonal (match or substitution), then
// deletion, then insertion. The chosen move for every cell is recorded in a
// one-byte direction table while the costs live in three rolling
// anti-diagonal buffers; traceback replays the recorded moves, so the edit
// script is identical to the one a full cost matrix would produce.
//
// Cells are filled in anti-diagonal (wavefront) order. Long diagonals can be
// split across Options.Workers goroutines with a barrier between diagonals.
// The optional Observer is called once per completed diagonal.
package alignment
