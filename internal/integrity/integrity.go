package integrity

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"strings"

	"trustframe/internal/services"
)

// ChunkSize is the read size used while streaming a file into the hash.
const ChunkSize = 64 * 1024

// Algorithm names a supported digest.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// Algorithms lists the supported digests in display order.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256, SHA384, SHA512}
}

// ParseAlgorithm resolves a case-insensitive algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	candidate := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	for _, alg := range Algorithms() {
		if alg == candidate {
			return alg, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported crypto algorithm %q (want sha256, sha384 or sha512)", services.ErrInvalidConfiguration, name)
}

func (a Algorithm) String() string { return string(a) }

// Label is the upper-case display form, e.g. "SHA256".
func (a Algorithm) Label() string { return strings.ToUpper(string(a)) }

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported crypto algorithm %q", services.ErrInvalidConfiguration, string(a))
	}
}

// Digest is the hex-encoded hash of one file.
type Digest struct {
	Algorithm Algorithm `json:"algorithm"`
	Hex       string    `json:"hex"`
	Size      int64     `json:"size_bytes"`
}

// Equal reports whether two digests were made with the same algorithm and match.
func (d Digest) Equal(other Digest) bool {
	return d.Algorithm == other.Algorithm && d.Hex != "" && d.Hex == other.Hex
}

// ProgressFunc receives bytes hashed so far and the file size.
type ProgressFunc func(done, total int64)

// File hashes the file at path. A missing file reports services.ErrNotFound.
func File(ctx context.Context, path string, alg Algorithm, progress ProgressFunc) (Digest, error) {
	h, err := alg.newHash()
	if err != nil {
		return Digest{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Digest{}, services.Wrap(services.ErrNotFound, "digest", "open", path, err)
		}
		return Digest{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Digest{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Digest{}, services.Wrap(services.ErrValidation, "digest", "open", path+" is a directory", nil)
	}

	size, err := copyChunks(ctx, h, file, info.Size(), progress)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Digest{Algorithm: alg, Hex: hex.EncodeToString(h.Sum(nil)), Size: size}, nil
}

// Reader hashes everything read from r.
func Reader(ctx context.Context, r io.Reader, alg Algorithm) (Digest, error) {
	h, err := alg.newHash()
	if err != nil {
		return Digest{}, err
	}
	size, err := copyChunks(ctx, h, r, -1, nil)
	if err != nil {
		return Digest{}, err
	}
	return Digest{Algorithm: alg, Hex: hex.EncodeToString(h.Sum(nil)), Size: size}, nil
}

func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	buf := make([]byte, ChunkSize)
	var done int64
	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			_, _ = dst.Write(buf[:n])
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if readErr == io.EOF {
			return done, nil
		}
		if readErr != nil {
			return done, readErr
		}
	}
}
