package alignment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"trustframe/internal/fingerprint"
)

var (
	// ErrEmptySequence is informational: Align accepts empty inputs, but callers
	// that need at least one frame per side can check with RequireFrames.
	ErrEmptySequence = errors.New("empty fingerprint sequence")
	// ErrInconsistentAlignment signals a traceback that violates index coverage.
	// It indicates a defect, never bad input.
	ErrInconsistentAlignment = errors.New("inconsistent alignment")
	// ErrSequenceTooLarge is returned when the direction table would exceed MaxCells.
	ErrSequenceTooLarge = errors.New("fingerprint sequences too large to align")
)

// MaxCells bounds the (m+1)*(n+1) direction table, one byte per cell.
const MaxCells = 1 << 32

// minParallelCells is the shortest diagonal worth splitting across workers.
const minParallelCells = 1024

const (
	dirOrigin uint8 = iota
	dirDiagonal
	dirDeletion
	dirInsertion
)

// RequireFrames reports ErrEmptySequence when either side has no frames.
func RequireFrames(reference, evidence Sequence) error {
	switch {
	case len(reference) == 0 && len(evidence) == 0:
		return fmt.Errorf("%w: reference and evidence", ErrEmptySequence)
	case len(reference) == 0:
		return fmt.Errorf("%w: reference", ErrEmptySequence)
	case len(evidence) == 0:
		return fmt.Errorf("%w: evidence", ErrEmptySequence)
	}
	return nil
}

// Align computes the minimum-cost edit script transforming reference into evidence.
func Align(ctx context.Context, reference, evidence Sequence, opts Options) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	m, n := len(reference), len(evidence)
	if uint64(m+1)*uint64(n+1) > MaxCells {
		return Result{}, fmt.Errorf("%w: %d x %d frames", ErrSequenceTooLarge, m, n)
	}

	width, err := commonWidth(reference, evidence)
	if err != nil {
		return Result{}, err
	}
	// Indels cost one full width; substitutions cost their Hamming distance.
	scale := int64(width)
	if m == 0 || n == 0 {
		scale = 1
	}

	g := &grid{
		reference: reference,
		evidence:  evidence,
		m:         m,
		n:         n,
		scale:     scale,
		dirs:      make([]uint8, (m+1)*(n+1)),
		prev2:     make([]int64, m+1),
		prev1:     make([]int64, m+1),
		cur:       make([]int64, m+1),
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	diagonals := m + n + 1
	for d := 0; d < diagonals; d++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		g.fillDiagonal(d, workers)
		g.rotate()
		if opts.Observer != nil {
			opts.Observer(Progress{Diagonal: d + 1, Diagonals: diagonals})
		}
	}
	// After the final rotate the last diagonal sits in prev1.
	total := g.prev1[m]

	ops, units := g.traceback()
	if err := checkCoverage(ops, m, n); err != nil {
		return Result{}, err
	}
	if units != total {
		return Result{}, fmt.Errorf("%w: traceback cost %d != table cost %d", ErrInconsistentAlignment, units, total)
	}

	resultWidth := width
	if resultWidth == 0 {
		resultWidth = firstWidth(reference, evidence)
	}
	return Result{
		Operations:   ops,
		Cost:         float64(total) / float64(scale),
		Width:        resultWidth,
		ReferenceLen: m,
		EvidenceLen:  n,
	}, nil
}

// commonWidth returns the width shared by every fingerprint when both
// sequences are non-empty. With an empty side no pair is ever compared and
// the width is reported as 0.
func commonWidth(reference, evidence Sequence) (int, error) {
	if len(reference) == 0 || len(evidence) == 0 {
		return 0, nil
	}
	width := reference[0].Fingerprint.Width()
	if width <= 0 {
		return 0, fmt.Errorf("%w: reference frame 0 has no bits", fingerprint.ErrIncompatibleWidth)
	}
	for i, frame := range reference {
		if w := frame.Fingerprint.Width(); w != width {
			return 0, fmt.Errorf("%w: reference frame %d has %d bits, expected %d", fingerprint.ErrIncompatibleWidth, i, w, width)
		}
	}
	for j, frame := range evidence {
		if w := frame.Fingerprint.Width(); w != width {
			return 0, fmt.Errorf("%w: evidence frame %d has %d bits, expected %d", fingerprint.ErrIncompatibleWidth, j, w, width)
		}
	}
	return width, nil
}

func firstWidth(reference, evidence Sequence) int {
	if len(reference) > 0 {
		return reference[0].Fingerprint.Width()
	}
	if len(evidence) > 0 {
		return evidence[0].Fingerprint.Width()
	}
	return 0
}

type grid struct {
	reference Sequence
	evidence  Sequence
	m, n      int
	scale     int64
	dirs      []uint8
	// Cost buffers indexed by reference position i for diagonals d-2, d-1, d.
	prev2, prev1, cur []int64
}

func (g *grid) rotate() {
	g.prev2, g.prev1, g.cur = g.prev1, g.cur, g.prev2
}

func (g *grid) fillDiagonal(d, workers int) {
	lo := max(0, d-g.n)
	hi := min(g.m, d)
	cells := hi - lo + 1
	if workers < 2 || cells < minParallelCells {
		g.fillRange(d, lo, hi)
		return
	}
	chunk := (cells + workers - 1) / workers
	var wg sync.WaitGroup
	for start := lo; start <= hi; start += chunk {
		end := min(hi, start+chunk-1)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			g.fillRange(d, start, end)
		}(start, end)
	}
	wg.Wait()
}

// fillRange computes cells (i, d-i) for i in [lo, hi]. Goroutines own
// disjoint ranges and only read the two previous diagonals.
func (g *grid) fillRange(d, lo, hi int) {
	stride := g.n + 1
	for i := lo; i <= hi; i++ {
		j := d - i
		idx := i*stride + j
		switch {
		case i == 0 && j == 0:
			g.cur[i] = 0
			g.dirs[idx] = dirOrigin
		case i == 0:
			g.cur[i] = int64(j) * g.scale
			g.dirs[idx] = dirInsertion
		case j == 0:
			g.cur[i] = int64(i) * g.scale
			g.dirs[idx] = dirDeletion
		default:
			// Widths were validated up front, so Distance cannot fail here.
			dist, _ := fingerprint.Distance(g.reference[i-1].Fingerprint, g.evidence[j-1].Fingerprint)
			diag := g.prev2[i-1] + int64(dist)
			del := g.prev1[i-1] + g.scale
			ins := g.prev1[i] + g.scale
			switch {
			case diag <= del && diag <= ins:
				g.cur[i] = diag
				g.dirs[idx] = dirDiagonal
			case del <= ins:
				g.cur[i] = del
				g.dirs[idx] = dirDeletion
			default:
				g.cur[i] = ins
				g.dirs[idx] = dirInsertion
			}
		}
	}
}

func (g *grid) traceback() ([]Operation, int64) {
	ops := make([]Operation, 0, max(g.m, g.n))
	var units int64
	scale := float64(g.scale)
	stride := g.n + 1
	i, j := g.m, g.n
	for i > 0 || j > 0 {
		switch g.dirs[i*stride+j] {
		case dirDiagonal:
			ref := g.reference[i-1]
			ev := g.evidence[j-1]
			dist, _ := fingerprint.Distance(ref.Fingerprint, ev.Fingerprint)
			kind := Substitution
			if dist == 0 {
				kind = Match
			}
			ops = append(ops, Operation{
				Kind:       kind,
				RefIndex:   i - 1,
				EvIndex:    j - 1,
				Reference:  &ref,
				Evidence:   &ev,
				Distance:   dist,
				Cost:       float64(dist) / scale,
				Similarity: fingerprint.SimilarityFromDistance(dist, ref.Fingerprint.Width()),
			})
			units += int64(dist)
			i--
			j--
		case dirDeletion:
			ref := g.reference[i-1]
			ops = append(ops, Operation{
				Kind:      Deletion,
				RefIndex:  i - 1,
				EvIndex:   -1,
				Reference: &ref,
				Cost:      1,
			})
			units += g.scale
			i--
		case dirInsertion:
			ev := g.evidence[j-1]
			ops = append(ops, Operation{
				Kind:     Insertion,
				RefIndex: -1,
				EvIndex:  j - 1,
				Evidence: &ev,
				Cost:     1,
			})
			units += g.scale
			j--
		default:
			// An origin marker away from (0,0) means the table is corrupt;
			// checkCoverage reports it.
			i, j = 0, 0
		}
	}
	for l, r := 0, len(ops)-1; l < r; l, r = l+1, r-1 {
		ops[l], ops[r] = ops[r], ops[l]
	}
	return ops, units
}

func checkCoverage(ops []Operation, m, n int) error {
	nextRef, nextEv := 0, 0
	for pos, op := range ops {
		if op.HasReference() {
			if op.RefIndex != nextRef {
				return fmt.Errorf("%w: operation %d has reference index %d, expected %d", ErrInconsistentAlignment, pos, op.RefIndex, nextRef)
			}
			nextRef++
		} else if op.RefIndex != -1 {
			return fmt.Errorf("%w: insertion %d carries reference index %d", ErrInconsistentAlignment, pos, op.RefIndex)
		}
		if op.HasEvidence() {
			if op.EvIndex != nextEv {
				return fmt.Errorf("%w: operation %d has evidence index %d, expected %d", ErrInconsistentAlignment, pos, op.EvIndex, nextEv)
			}
			nextEv++
		} else if op.EvIndex != -1 {
			return fmt.Errorf("%w: deletion %d carries evidence index %d", ErrInconsistentAlignment, pos, op.EvIndex)
		}
	}
	if nextRef != m || nextEv != n {
		return fmt.Errorf("%w: covered %d/%d reference and %d/%d evidence frames", ErrInconsistentAlignment, nextRef, m, nextEv, n)
	}
	return nil
}
