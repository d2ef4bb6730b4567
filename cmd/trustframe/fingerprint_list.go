package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"trustframe/internal/alignment"
	"trustframe/internal/fingerprint"
	"trustframe/internal/services"
)

// readFingerprintList parses one fingerprint per line. A line is either
// "<hex>" or "<frame number><whitespace><hex>". Blank lines and lines
// starting with # are ignored. Without an explicit number, frames are
// numbered by their position in the list starting at 1.
func readFingerprintList(r io.Reader) (alignment.Sequence, error) {
	var seq alignment.Sequence
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		frameNumber := len(seq) + 1
		hexValue := fields[0]
		switch len(fields) {
		case 1:
		case 2:
			n, err := strconv.Atoi(fields[0])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("line %d: frame number %q must be a positive integer: %w", lineNo, fields[0], services.ErrValidation)
			}
			frameNumber = n
			hexValue = fields[1]
		default:
			return nil, fmt.Errorf("line %d: expected \"<hex>\" or \"<frame> <hex>\", got %d fields: %w", lineNo, len(fields), services.ErrValidation)
		}
		fp, err := fingerprint.ParseHex(hexValue)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		seq = append(seq, alignment.Frame{Fingerprint: fp, FrameNumber: frameNumber})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fingerprint list: %w", err)
	}
	return seq, nil
}

func loadFingerprintList(arg string) (string, alignment.Sequence, error) {
	path, err := resolveInputFile(arg)
	if err != nil {
		return "", nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	seq, err := readFingerprintList(file)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	return path, seq, nil
}
