package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const fakeFFmpegScript = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version fake"
  exit 0
fi
in=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-i" ]; then
    in="$2"
    shift
  fi
  shift
done
cat "$in"
`

func fakeFFprobeScript(width, height int) string {
	return fmt.Sprintf(`#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffprobe version fake"
  exit 0
fi
for last; do :; done
size=$(wc -c < "$last")
frames=$((size / %d))
printf '{"streams":[{"index":0,"codec_name":"rawvideo","codec_type":"video","width":%d,"height":%d,"nb_frames":"%%d","avg_frame_rate":"25/1"}],"format":{"filename":"%%s","nb_streams":1,"format_name":"rawvideo"}}\n' "$frames" "$last"
`, width*height*3, width, height)
}

// PatternFrame returns a width*height rgb24 frame whose structure depends on
// seed, so distinct seeds yield visually distinct frames.
func PatternFrame(width, height, seed int) []byte {
	frame := make([]byte, width*height*3)
	cell := 2 + seed%5
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := byte(((x/cell)*(seed+1) + (y/cell)*(seed*3+7)) * 29 % 256)
			if ((x/cell)+(y/cell)+seed)%2 == 0 {
				v = 255 - v
			}
			i := (y*width + x) * 3
			frame[i], frame[i+1], frame[i+2] = v, v/2, 255-v
		}
	}
	return frame
}

// WriteRawVideo writes one PatternFrame per seed to path in the format the
// fake media tools understand.
func WriteRawVideo(t testing.TB, path string, width, height int, seeds ...int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, 0, len(seeds)*width*height*3)
	for _, seed := range seeds {
		data = append(data, PatternFrame(width, height, seed)...)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteFingerprintList writes one hex fingerprint per line for the compare command.
func WriteFingerprintList(t testing.TB, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var content []byte
	for _, line := range lines {
		content = append(content, line...)
		content = append(content, '\n')
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
