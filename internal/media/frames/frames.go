// Package frames decodes video frames through ffmpeg for perceptual hashing.
//
// ffmpeg scales every frame to a small fixed size and writes packed RGB to a
// pipe; Extract slices that stream into images and hands the requested frame
// indices to a callback in order. Frames never requested are discarded
// without allocating an image.
package frames

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"trustframe/internal/services"
)

// Options configures the ffmpeg decode.
type Options struct {
	Binary string
	Width  int
	Height int
}

// FrameFunc receives a 0-based decoded frame index and its image. Returning an
// error stops extraction.
type FrameFunc func(index int, img image.Image) error

func (o Options) normalized() (Options, error) {
	if strings.TrimSpace(o.Binary) == "" {
		o.Binary = "ffmpeg"
	}
	if o.Width <= 0 || o.Height <= 0 {
		return o, services.Wrap(services.ErrInvalidConfiguration, "extract", "options",
			fmt.Sprintf("frame size %dx%d must be positive", o.Width, o.Height), nil)
	}
	return o, nil
}

// SampleIndices picks target frame indices uniformly from total frames:
// floor(i*total/target) for i in [0,target). A non-positive target or one at
// least total selects every frame.
func SampleIndices(total, target int) []int {
	if total <= 0 {
		return nil
	}
	if target <= 0 || target >= total {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	indices := make([]int, target)
	for i := range indices {
		indices[i] = int(int64(i) * int64(total) / int64(target))
	}
	return indices
}

// Extract decodes path and calls fn for each frame listed in indices, which
// must be strictly ascending. A nil indices slice selects every frame. The
// returned count is the number of frames delivered to fn; a stream that ends
// early is not an error.
func Extract(ctx context.Context, opts Options, path string, indices []int, fn FrameFunc) (int, error) {
	opts, err := opts.normalized()
	if err != nil {
		return 0, err
	}
	if err := checkIndices(indices); err != nil {
		return 0, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, services.Wrap(services.ErrNotFound, "extract", "open", path, err)
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if indices != nil && len(indices) == 0 {
		return 0, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, opts.Binary, buildArgs(opts, path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "extract", opts.Binary, "start", err)
	}

	delivered, readErr := readFrames(bufio.NewReaderSize(stdout, 1<<20), opts.Width, opts.Height, indices, fn)
	done := readErr == nil && indices != nil && delivered == len(indices)
	if done || readErr != nil {
		// Stop decoding the remainder of the file.
		cancel()
	}
	waitErr := cmd.Wait()

	if readErr != nil {
		return delivered, readErr
	}
	if err := ctx.Err(); err != nil {
		return delivered, err
	}
	if waitErr != nil && !done {
		return delivered, services.Wrap(services.ErrExternalTool, "extract", opts.Binary, strings.TrimSpace(stderr.String()), waitErr)
	}
	return delivered, nil
}

func buildArgs(opts Options, path string) []string {
	return []string{
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-map", "0:v:0",
		"-fps_mode", "passthrough",
		"-vf", "scale=" + strconv.Itoa(opts.Width) + ":" + strconv.Itoa(opts.Height) + ":flags=area",
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"-",
	}
}

func checkIndices(indices []int) error {
	for i, idx := range indices {
		if idx < 0 || (i > 0 && idx <= indices[i-1]) {
			return services.Wrap(services.ErrValidation, "extract", "indices", "frame indices must be non-negative and strictly ascending", nil)
		}
	}
	return nil
}

// readFrames walks a packed rgb24 stream. It returns once every wanted
// index was delivered or the stream ends.
func readFrames(r io.Reader, width, height int, indices []int, fn FrameFunc) (int, error) {
	frameSize := width * height * 3
	buf := make([]byte, frameSize)
	delivered := 0
	for index := 0; ; index++ {
		if indices != nil && delivered == len(indices) {
			return delivered, nil
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return delivered, nil
			}
			return delivered, fmt.Errorf("read frame %d: %w", index, err)
		}
		if indices != nil && indices[delivered] != index {
			continue
		}
		if err := fn(index, toRGBA(buf, width, height)); err != nil {
			return delivered, err
		}
		delivered++
	}
}

func toRGBA(rgb []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for src, dst := 0, 0; src+2 < len(rgb); src, dst = src+3, dst+4 {
		img.Pix[dst] = rgb[src]
		img.Pix[dst+1] = rgb[src+1]
		img.Pix[dst+2] = rgb[src+2]
		img.Pix[dst+3] = 0xff
	}
	return img
}
