package analysis

import (
	"trustframe/internal/alignment"
)

// BucketCount is the number of operations whose similarity falls in a bucket.
type BucketCount struct {
	Bucket
	Count int `json:"count"`
}

// Report aggregates an alignment result. It is a value computed once per run.
type Report struct {
	Matches       int `json:"matches"`
	Substitutions int `json:"substitutions"`
	Insertions    int `json:"insertions"`
	Deletions     int `json:"deletions"`
	// TotalPositions is the number of operations in the edit script.
	TotalPositions int     `json:"total_operations"`
	EditDistance   float64 `json:"edit_distance"`

	MeanSimilarity             float64 `json:"mean_similarity"`
	MinSimilarity              float64 `json:"min_similarity"`
	MaxSimilarity              float64 `json:"max_similarity"`
	MeanSubstitutionSimilarity float64 `json:"mean_substitution_similarity"`

	Distribution []BucketCount `json:"distribution"`

	ReferenceFrames int `json:"reference_frames"`
	EvidenceFrames  int `json:"evidence_frames"`
	// FramesAnalyzed is the longer of the two input sequences.
	FramesAnalyzed int `json:"frames_analyzed"`
}

// Modifications counts every non-match operation.
func (r Report) Modifications() int {
	return r.Substitutions + r.Insertions + r.Deletions
}

// Identical reports whether the two sequences aligned without any modification.
func (r Report) Identical() bool {
	return r.Modifications() == 0
}

// Analyze reduces result into a Report using the given buckets. A nil bucket
// slice selects DefaultBuckets.
func Analyze(result alignment.Result, buckets []Bucket) (Report, error) {
	if buckets == nil {
		buckets = DefaultBuckets()
	}
	if err := ValidateBuckets(buckets); err != nil {
		return Report{}, err
	}

	report := Report{
		TotalPositions:  len(result.Operations),
		EditDistance:    result.Cost,
		ReferenceFrames: result.ReferenceLen,
		EvidenceFrames:  result.EvidenceLen,
		FramesAnalyzed:  max(result.ReferenceLen, result.EvidenceLen),
		Distribution:    make([]BucketCount, len(buckets)),
	}
	for i, b := range buckets {
		report.Distribution[i] = BucketCount{Bucket: b}
	}

	var simTotal, subTotal float64
	for i, op := range result.Operations {
		switch op.Kind {
		case alignment.Match:
			report.Matches++
		case alignment.Substitution:
			report.Substitutions++
			subTotal += op.Similarity
		case alignment.Insertion:
			report.Insertions++
		case alignment.Deletion:
			report.Deletions++
		}
		simTotal += op.Similarity
		if i == 0 || op.Similarity < report.MinSimilarity {
			report.MinSimilarity = op.Similarity
		}
		if i == 0 || op.Similarity > report.MaxSimilarity {
			report.MaxSimilarity = op.Similarity
		}
		report.Distribution[bucketIndex(buckets, op.Similarity)].Count++
	}

	if report.TotalPositions > 0 {
		report.MeanSimilarity = simTotal / float64(report.TotalPositions)
	}
	if report.Substitutions > 0 {
		report.MeanSubstitutionSimilarity = subTotal / float64(report.Substitutions)
	}
	return report, nil
}
