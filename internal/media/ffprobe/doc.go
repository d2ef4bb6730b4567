// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe once per file; Result.VideoInfo condenses the primary
// video stream into the frame count, frame rate and duration that frame
// sampling and timestamping need.
package ffprobe
