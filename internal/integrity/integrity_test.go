package integrity

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trustframe/internal/services"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"sha256", SHA256, false},
		{" SHA384 ", SHA384, false},
		{"Sha512", SHA512, false},
		{"md5", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseAlgorithm(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, services.ErrInvalidConfiguration) {
			t.Fatalf("ParseAlgorithm(%q) err = %v, want ErrInvalidConfiguration", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseAlgorithm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReaderKnownVectors(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		want string
	}{
		{SHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{SHA384, "cb00753f45a35e8bb5a03d699ac65007272c32ab0eded1631a8b605a43ff5bed8086072ba1e7cc2358baeca134c825a7"},
		{SHA512, "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"},
	}
	for _, tt := range tests {
		got, err := Reader(context.Background(), strings.NewReader("abc"), tt.alg)
		if err != nil {
			t.Fatalf("%s: %v", tt.alg, err)
		}
		if got.Hex != tt.want || got.Size != 3 {
			t.Fatalf("%s: got %s (%d bytes), want %s", tt.alg, got.Hex, got.Size, tt.want)
		}
	}
}

func TestFileStreamsInChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.bin")
	data := bytes.Repeat([]byte("frame"), ChunkSize/2)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var calls int
	var last int64
	digest, err := File(context.Background(), path, SHA256, func(done, total int64) {
		calls++
		last = done
		if total != int64(len(data)) {
			t.Errorf("total = %d, want %d", total, len(data))
		}
	})
	if err != nil {
		t.Fatalf("File returned error: %v", err)
	}
	if calls < 2 {
		t.Fatalf("expected several progress callbacks, got %d", calls)
	}
	if last != int64(len(data)) || digest.Size != int64(len(data)) {
		t.Fatalf("progress ended at %d, size %d, want %d", last, digest.Size, len(data))
	}

	again, err := Reader(context.Background(), bytes.NewReader(data), SHA256)
	if err != nil {
		t.Fatalf("Reader returned error: %v", err)
	}
	if !digest.Equal(again) {
		t.Fatalf("file digest %s != reader digest %s", digest.Hex, again.Hex)
	}
}

func TestFileMissingIsNotFound(t *testing.T) {
	_, err := File(context.Background(), filepath.Join(t.TempDir(), "absent.mp4"), SHA256, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileRejectsDirectory(t *testing.T) {
	_, err := File(context.Background(), t.TempDir(), SHA256, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFileHonoursCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.bin")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := File(ctx, path, SHA256, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDigestEqual(t *testing.T) {
	a := Digest{Algorithm: SHA256, Hex: "aa"}
	if !a.Equal(Digest{Algorithm: SHA256, Hex: "aa"}) {
		t.Fatal("expected equal digests")
	}
	if a.Equal(Digest{Algorithm: SHA512, Hex: "aa"}) {
		t.Fatal("different algorithms must not compare equal")
	}
	if (Digest{}).Equal(Digest{}) {
		t.Fatal("empty digests must not compare equal")
	}
}
