package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run sources.
const (
	SourceAnalyze = "analyze"
	SourceCompare = "compare"
)

// Run summarizes one comparison.
type Run struct {
	ID                  string        `json:"id"`
	CreatedAt           time.Time     `json:"created_at"`
	Source              string        `json:"source"`
	ReferencePath       string        `json:"reference_path"`
	EvidencePath        string        `json:"evidence_path"`
	CryptoAlgorithm     string        `json:"crypto_algorithm,omitempty"`
	ReferenceDigest     string        `json:"reference_digest,omitempty"`
	EvidenceDigest      string        `json:"evidence_digest,omitempty"`
	DigestMatch         bool          `json:"digest_match"`
	PerceptualAlgorithm string        `json:"perceptual_algorithm,omitempty"`
	ReferenceFrames     int           `json:"reference_frames"`
	EvidenceFrames      int           `json:"evidence_frames"`
	EditDistance        float64       `json:"edit_distance"`
	Matches             int           `json:"matches"`
	Substitutions       int           `json:"substitutions"`
	Insertions          int           `json:"insertions"`
	Deletions           int           `json:"deletions"`
	MeanSimilarity      float64       `json:"mean_similarity"`
	Duration            time.Duration `json:"duration"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

const runColumns = `id, created_at, source, reference_path, evidence_path, crypto_algorithm,
    reference_digest, evidence_digest, digest_match, perceptual_algorithm, reference_frames,
    evidence_frames, edit_distance, matches, substitutions, insertions, deletions,
    mean_similarity, duration_ms`

// RecordRun inserts run, assigning an ID and timestamp when missing.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if strings.TrimSpace(run.ID) == "" {
		run.ID = NewRunID()
	} else if _, err := uuid.Parse(run.ID); err != nil {
		return fmt.Errorf("run id %q: %w", run.ID, err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.CreatedAt), run.Source, run.ReferencePath, run.EvidencePath,
		nullableString(run.CryptoAlgorithm), nullableString(run.ReferenceDigest), nullableString(run.EvidenceDigest),
		boolToInt(run.DigestMatch), nullableString(run.PerceptualAlgorithm),
		run.ReferenceFrames, run.EvidenceFrames, run.EditDistance,
		run.Matches, run.Substitutions, run.Insertions, run.Deletions,
		run.MeanSimilarity, run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// GetRun fetches one run by ID. A missing run returns nil without error.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindRuns returns runs whose ID starts with prefix, newest first. The prefix
// may only contain hex digits and dashes.
func (s *Store) FindRuns(ctx context.Context, prefix string) ([]*Run, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" || strings.Trim(prefix, "0123456789abcdef-") != "" {
		return nil, fmt.Errorf("run id prefix %q: only hex digits and dashes are allowed", prefix)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY created_at DESC, id`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("find runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ClearRuns deletes the whole history and reports how many rows were removed.
func (s *Store) ClearRuns(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                         Run
		createdAt                   string
		crypto, refDigest, evDigest sql.NullString
		perceptual                  sql.NullString
		digestMatch                 int
		durationMS                  int64
	)
	if err := row.Scan(
		&run.ID, &createdAt, &run.Source, &run.ReferencePath, &run.EvidencePath, &crypto,
		&refDigest, &evDigest, &digestMatch, &perceptual, &run.ReferenceFrames,
		&run.EvidenceFrames, &run.EditDistance, &run.Matches, &run.Substitutions, &run.Insertions, &run.Deletions,
		&run.MeanSimilarity, &durationMS,
	); err != nil {
		return nil, err
	}
	run.CreatedAt = parseTime(createdAt)
	run.CryptoAlgorithm = crypto.String
	run.ReferenceDigest = refDigest.String
	run.EvidenceDigest = evDigest.String
	run.PerceptualAlgorithm = perceptual.String
	run.DigestMatch = digestMatch != 0
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return &run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
