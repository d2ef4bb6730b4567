package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"trustframe/internal/alignment"
	"trustframe/internal/media/ffprobe"
)

// CacheKey identifies one fingerprint extraction. Any parameter change
// produces a different sequence, so all of them are part of the key.
type CacheKey struct {
	FileDigest          string
	PerceptualAlgorithm string
	MaxFrames           int
	FrameWidth          int
	FrameHeight         int
}

func (k CacheKey) validate() error {
	if strings.TrimSpace(k.FileDigest) == "" {
		return errors.New("cache key: file digest is required")
	}
	if strings.TrimSpace(k.PerceptualAlgorithm) == "" {
		return errors.New("cache key: perceptual algorithm is required")
	}
	return nil
}

// CachedFingerprints is a stored extraction.
type CachedFingerprints struct {
	Key       CacheKey
	Sequence  alignment.Sequence
	VideoInfo ffprobe.VideoInfo
	CreatedAt time.Time
}

// LoadFingerprints returns the cached extraction for key. The boolean is false
// on a cache miss.
func (s *Store) LoadFingerprints(ctx context.Context, key CacheKey) (CachedFingerprints, bool, error) {
	if err := key.validate(); err != nil {
		return CachedFingerprints{}, false, err
	}
	ctx = ensureContext(ctx)
	var (
		framesJSON string
		infoJSON   sql.NullString
		createdAt  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT frames_json, video_info_json, created_at FROM fingerprints
         WHERE file_digest = ? AND perceptual_algorithm = ? AND max_frames = ? AND frame_width = ? AND frame_height = ?`,
		key.FileDigest, key.PerceptualAlgorithm, key.MaxFrames, key.FrameWidth, key.FrameHeight,
	).Scan(&framesJSON, &infoJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedFingerprints{}, false, nil
	}
	if err != nil {
		return CachedFingerprints{}, false, fmt.Errorf("load fingerprints: %w", err)
	}

	entry := CachedFingerprints{Key: key, CreatedAt: parseTime(createdAt)}
	if err := json.Unmarshal([]byte(framesJSON), &entry.Sequence); err != nil {
		return CachedFingerprints{}, false, fmt.Errorf("decode cached fingerprints: %w", err)
	}
	if infoJSON.Valid && infoJSON.String != "" {
		if err := json.Unmarshal([]byte(infoJSON.String), &entry.VideoInfo); err != nil {
			return CachedFingerprints{}, false, fmt.Errorf("decode cached video info: %w", err)
		}
	}
	return entry, true, nil
}

// SaveFingerprints stores or replaces the extraction for key.
func (s *Store) SaveFingerprints(ctx context.Context, key CacheKey, seq alignment.Sequence, info ffprobe.VideoInfo) error {
	if err := key.validate(); err != nil {
		return err
	}
	if seq == nil {
		seq = alignment.Sequence{}
	}
	framesJSON, err := json.Marshal(seq)
	if err != nil {
		return fmt.Errorf("encode fingerprints: %w", err)
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode video info: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT OR REPLACE INTO fingerprints (
            file_digest, perceptual_algorithm, max_frames, frame_width, frame_height,
            frame_count, frames_json, video_info_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.FileDigest, key.PerceptualAlgorithm, key.MaxFrames, key.FrameWidth, key.FrameHeight,
		len(seq), string(framesJSON), string(infoJSON), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save fingerprints: %w", err)
	}
	return nil
}

// ClearFingerprints removes every cached extraction and reports how many were dropped.
func (s *Store) ClearFingerprints(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM fingerprints`)
	if err != nil {
		return 0, fmt.Errorf("clear fingerprints: %w", err)
	}
	return res.RowsAffected()
}

// FingerprintCount returns the number of cached extractions.
func (s *Store) FingerprintCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM fingerprints`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return count, nil
}
