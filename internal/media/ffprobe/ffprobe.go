package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"trustframe/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	PixelFormat  string `json:"pix_fmt"`
	Duration     string `json:"duration"`
	NBFrames     string `json:"nb_frames"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// VideoInfo summarizes the primary video stream.
type VideoInfo struct {
	Codec       string  `json:"codec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	TotalFrames int     `json:"total_frames"`
	FPS         float64 `json:"fps"`
	Duration    float64 `json:"duration_seconds"`
	// FrameCountEstimated is true when nb_frames was missing and the count
	// was derived from duration and frame rate.
	FrameCountEstimated bool `json:"frame_count_estimated,omitempty"`
}

// FrameDuration returns the display time of one frame, or 0 without a rate.
func (v VideoInfo) FrameDuration() time.Duration {
	if v.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / v.FPS)
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "probe", "inspect", "empty path", nil)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, services.Wrap(services.ErrNotFound, "probe", "inspect", path, err)
		}
		return Result{}, fmt.Errorf("stat %s: %w", path, err)
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "probe", binary, detail, err)
	}
	return Parse(output)
}

// Parse decodes raw ffprobe JSON.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "probe", "parse", "invalid ffprobe JSON", err)
	}
	return result, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// PrimaryVideo returns the first video stream.
func (r Result) PrimaryVideo() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// VideoInfo reports frame count, frame rate and duration of the primary video
// stream. Files without a video stream fail with services.ErrValidation.
func (r Result) VideoInfo() (VideoInfo, error) {
	stream, ok := r.PrimaryVideo()
	if !ok {
		return VideoInfo{}, services.Wrap(services.ErrValidation, "probe", "video info", "no video stream in "+r.Format.Filename, nil)
	}
	info := VideoInfo{
		Codec:  stream.CodecName,
		Width:  stream.Width,
		Height: stream.Height,
		FPS:    parseRational(stream.AvgFrameRate),
	}
	if info.FPS <= 0 {
		info.FPS = parseRational(stream.RFrameRate)
	}

	info.Duration = finite(parseFloat(stream.Duration))
	if info.Duration <= 0 {
		info.Duration = finite(r.DurationSeconds())
	}

	if frames, err := strconv.Atoi(strings.TrimSpace(stream.NBFrames)); err == nil && frames > 0 {
		info.TotalFrames = frames
	} else if info.Duration > 0 && info.FPS > 0 {
		info.TotalFrames = int(math.Round(info.Duration * info.FPS))
		info.FrameCountEstimated = true
	}
	if info.Duration <= 0 && info.FPS > 0 {
		info.Duration = float64(info.TotalFrames) / info.FPS
	}
	return info, nil
}

// parseRational handles "30000/1001", "25/1" and plain decimals. Zero
// denominators and junk yield 0.
func parseRational(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		return finite(parseFloat(value))
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return finite(n / d)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
