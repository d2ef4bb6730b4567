// Package services defines shared utilities consumed by the comparison
// workflow and its external collaborators (ffmpeg, ffprobe, the cache).
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper, and Classify, which maps
//     any failure onto the small set of error kinds the CLI reports.
//
// Use these helpers when wiring new workflow steps so error handling and
// observability stay uniform.
package services
