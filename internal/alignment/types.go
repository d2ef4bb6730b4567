package alignment

import (
	"fmt"
	"strings"
	"time"

	"trustframe/internal/fingerprint"
)

// Kind classifies a single alignment step.
type Kind int

const (
	Match Kind = iota
	Substitution
	Insertion
	Deletion
)

var kindNames = [...]string{"match", "substitution", "insertion", "deletion"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown alignment kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range kindNames {
		if name == value {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown alignment kind %q", value)
}

// Frame pairs a fingerprint with provenance used only for labelling.
type Frame struct {
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	// FrameNumber is the 1-based frame number in the source video, or 0 when unknown.
	FrameNumber int           `json:"frame_number,omitempty"`
	Timestamp   time.Duration `json:"timestamp,omitempty"`
}

// Sequence is an ordered, 0-indexed list of frames.
type Sequence []Frame

// SequenceOf wraps bare fingerprints, numbering frames from 1.
func SequenceOf(fps ...fingerprint.Fingerprint) Sequence {
	seq := make(Sequence, len(fps))
	for i, fp := range fps {
		seq[i] = Frame{Fingerprint: fp, FrameNumber: i + 1}
	}
	return seq
}

// Operation is one step of the edit script. RefIndex is -1 for insertions
// and EvIndex is -1 for deletions.
type Operation struct {
	Kind       Kind    `json:"type"`
	RefIndex   int     `json:"ref_index"`
	EvIndex    int     `json:"ev_index"`
	Reference  *Frame  `json:"reference,omitempty"`
	Evidence   *Frame  `json:"evidence,omitempty"`
	Distance   int     `json:"hamming_distance"`
	Cost       float64 `json:"cost"`
	Similarity float64 `json:"similarity"`
}

// HasReference reports whether the operation consumes a reference frame.
func (op Operation) HasReference() bool {
	return op.Kind != Insertion
}

// HasEvidence reports whether the operation consumes an evidence frame.
func (op Operation) HasEvidence() bool {
	return op.Kind != Deletion
}

// Result is the edit script in forward order plus its total cost.
type Result struct {
	Operations []Operation `json:"operations"`
	// Cost is the edit distance: the sum of all operation costs.
	Cost         float64 `json:"edit_distance"`
	Width        int     `json:"width"`
	ReferenceLen int     `json:"reference_frames"`
	EvidenceLen  int     `json:"evidence_frames"`
}

// Head returns at most the first n operations. A non-positive n returns all of them.
func (r Result) Head(n int) []Operation {
	if n <= 0 || n >= len(r.Operations) {
		return r.Operations
	}
	return r.Operations[:n]
}

// Degenerate reports whether either input sequence was empty.
func (r Result) Degenerate() bool {
	return r.ReferenceLen == 0 || r.EvidenceLen == 0
}

// String renders a compact summary, mainly for logs and test failures.
func (r Result) String() string {
	return fmt.Sprintf("alignment(ops=%d cost=%g)", len(r.Operations), r.Cost)
}

// Progress describes wavefront completion.
type Progress struct {
	Diagonal  int
	Diagonals int
}

// Percent returns completion in [0,100].
func (p Progress) Percent() float64 {
	if p.Diagonals <= 0 {
		return 100
	}
	return 100 * float64(p.Diagonal) / float64(p.Diagonals)
}

// Observer receives progress checkpoints. It is never required for correctness.
type Observer func(Progress)

// Options tunes Align.
type Options struct {
	// Workers splits long anti-diagonals across goroutines. Values below 2 run serially.
	Workers int
	// Observer, when set, is invoked after each completed anti-diagonal.
	Observer Observer
}
