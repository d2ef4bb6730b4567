package config_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"trustframe/internal/config"
	"trustframe/internal/services"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("TRUSTFRAME_CACHE_DIR", "")
	t.Setenv("TRUSTFRAME_LOG_LEVEL", "")
	return home
}

func TestLoadDefaultsExpandPaths(t *testing.T) {
	home := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file in temp HOME")
	}
	if want := filepath.Join(home, ".config", "trustframe", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	if want := filepath.Join(home, ".cache", "trustframe"); cfg.Paths.CacheDir != want {
		t.Fatalf("cache dir = %q, want %q", cfg.Paths.CacheDir, want)
	}
	if want := filepath.Join(home, ".local", "share", "trustframe", "logs"); cfg.Paths.LogDir != want {
		t.Fatalf("log dir = %q, want %q", cfg.Paths.LogDir, want)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.CacheDir, "trustframe.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
	if cfg.Analysis.CryptoAlgorithm != "sha256" || cfg.Analysis.PerceptualAlgorithm != "phash" {
		t.Fatalf("unexpected algorithms %+v", cfg.Analysis)
	}
	if cfg.Analysis.MaxFrames != 0 || cfg.Analysis.Workers != 1 || cfg.Analysis.DisplayLimit != 10 {
		t.Fatalf("unexpected analysis defaults %+v", cfg.Analysis)
	}
	if len(cfg.Similarity.Buckets) != 3 || cfg.Similarity.Buckets[0].Min != 90 {
		t.Fatalf("unexpected buckets %+v", cfg.Similarity.Buckets)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("expected cache enabled by default")
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tools %+v", cfg.Tools)
	}
}

func TestLoadCustomFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "trustframe.toml")
	content := `
[paths]
cache_dir = "` + filepath.ToSlash(filepath.Join(dir, "cache")) + `"
log_dir = ""

[analysis]
crypto_algorithm = "SHA512"
perceptual_algorithm = " dhash "
max_frames = 120
workers = 4

[[similarity.buckets]]
label = "exact"
min = 100.0

[[similarity.buckets]]
label = "rest"
min = 0.0

[cache]
enabled = false

[logging]
format = "JSON"
level = "Debug"

[tools]
ffmpeg = "/opt/ffmpeg/bin/ffmpeg"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Paths.CacheDir != filepath.Join(dir, "cache") {
		t.Fatalf("cache dir = %q", cfg.Paths.CacheDir)
	}
	if cfg.Paths.LogDir != "" {
		t.Fatalf("expected empty log dir to stay empty, got %q", cfg.Paths.LogDir)
	}
	if cfg.Analysis.CryptoAlgorithm != "sha512" || cfg.Analysis.PerceptualAlgorithm != "dhash" {
		t.Fatalf("algorithms not normalized: %+v", cfg.Analysis)
	}
	if cfg.Analysis.MaxFrames != 120 || cfg.Analysis.Workers != 4 {
		t.Fatalf("unexpected analysis %+v", cfg.Analysis)
	}
	if len(cfg.Similarity.Buckets) != 2 || cfg.Similarity.Buckets[0].Label != "exact" {
		t.Fatalf("unexpected buckets %+v", cfg.Similarity.Buckets)
	}
	if cfg.Cache.Enabled {
		t.Fatal("expected cache disabled")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tools %+v", cfg.Tools)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	isolateEnv(t)
	cacheDir := t.TempDir()
	t.Setenv("TRUSTFRAME_CACHE_DIR", cacheDir)
	t.Setenv("TRUSTFRAME_LOG_LEVEL", "WARN")

	cfg, err := config.Parse(strings.NewReader(`[paths]
cache_dir = "/ignored"
`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.Paths.CacheDir != cacheDir {
		t.Fatalf("cache dir = %q, want %q", cfg.Paths.CacheDir, cacheDir)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	isolateEnv(t)
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown crypto", "[analysis]\ncrypto_algorithm = \"md5\"\n", "analysis.crypto_algorithm"},
		{"wavelet hash", "[analysis]\nperceptual_algorithm = \"whash\"\n", "analysis.perceptual_algorithm"},
		{"negative frames", "[analysis]\nmax_frames = -5\n", "analysis.max_frames"},
		{"negative workers", "[analysis]\nworkers = -1\n", "analysis.workers"},
		{"negative display limit", "[analysis]\ndisplay_limit = -1\n", "analysis.display_limit"},
		{"tiny frames", "[analysis]\nframe_width = 4\n", "analysis.frame_width"},
		{"bad format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"bad level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"ascending buckets", "[[similarity.buckets]]\nlabel = \"a\"\nmin = 10.0\n[[similarity.buckets]]\nlabel = \"b\"\nmin = 50.0\n", "similarity.buckets"},
		{"bucket floor", "[[similarity.buckets]]\nlabel = \"only\"\nmin = 10.0\n", "similarity.buckets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse(strings.NewReader(tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	isolateEnv(t)
	_, err := config.Parse(strings.NewReader("[analysis]\nmax_frame = 10\n"))
	if err == nil || !strings.Contains(err.Error(), "max_frame") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	var raw map[string]any
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}

	fromSample, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(sample) returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	defaults, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load(missing) returned error: %v", err)
	}

	var a, b bytes.Buffer
	if err := fromSample.Encode(&a); err != nil {
		t.Fatalf("encode sample: %v", err)
	}
	if err := defaults.Encode(&b); err != nil {
		t.Fatalf("encode defaults: %v", err)
	}
	if a.String() != b.String() {
		t.Fatalf("sample config drifted from defaults:\n%s\n---\n%s", a.String(), b.String())
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(root, "cache")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
