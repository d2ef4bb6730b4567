package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"trustframe/internal/services"
	"trustframe/internal/workflow"
)

func TestAnalyzeRendersReport(t *testing.T) {
	env := setupCLITestEnv(t)
	ref := env.video(t, "reference.raw", 0, 1, 2, 3, 4, 5)
	ev := env.video(t, "evidence.raw", 0, 1, 3, 4, 5)

	out, _, err := runCLI(t, []string{"analyze", ref, ev, "--limit", "3"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "Cryptographic Hash Analysis (SHA256)")
	requireContains(t, out, "Perceptual Hash Analysis (PHASH)")
	requireContains(t, out, "Reference (reference.raw)")
	requireContains(t, out, "All frames from both videos were analyzed")
	requireContains(t, out, "Sequence Analysis Summary")
	requireContains(t, out, "DELETION")
	requireContains(t, out, "... and 3 more operations")
	requireContains(t, out, "Frames Removed")
	requireContains(t, out, "High Similarity (>=90%)")
	requireNotContains(t, out, "Extra Frames Added")
}

func TestAnalyzeJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	ref := env.video(t, "reference.raw", 0, 1, 2, 3)
	ev := env.video(t, "evidence.raw", 0, 1, 2, 3)

	out, _, err := runCLI(t, []string{"analyze", ref, ev, "--json", "--max-frames", "2", "--crypto-algorithm", "sha512"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var outcome workflow.Outcome
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("decode outcome: %v\n%s", err, out)
	}
	if !outcome.DigestMatch || outcome.CryptoAlgorithm != "sha512" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.MaxFrames != 2 || outcome.Report.Matches != 2 {
		t.Fatalf("expected 2 sampled matching frames, got cap %d matches %d", outcome.MaxFrames, outcome.Report.Matches)
	}
	if len(outcome.Reference.Digest.Hex) != 128 {
		t.Fatalf("expected sha512 hex digest, got %q", outcome.Reference.Digest.Hex)
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)
	ref := env.video(t, "reference.raw", 0)

	tests := []struct {
		name string
		args []string
		kind string
	}{
		{name: "missing evidence", args: []string{"analyze", ref, filepath.Join(env.dataDir, "nope.raw")}, kind: services.KindNotFound},
		{name: "directory", args: []string{"analyze", ref, env.dataDir}, kind: services.KindValidation},
		{name: "zero max frames", args: []string{"analyze", ref, ref, "--max-frames", "0"}, kind: services.KindInvalidConfiguration},
		{name: "unsupported perceptual", args: []string{"analyze", ref, ref, "--perceptual-algorithm", "whash"}, kind: services.KindInvalidConfiguration},
		{name: "negative limit", args: []string{"analyze", ref, ref, "--limit", "-1"}, kind: services.KindInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args, env.configPath)
			if kind := services.Classify(err); kind != tt.kind {
				t.Fatalf("expected %s, got %s (%v)", tt.kind, kind, err)
			}
		})
	}
}

func TestAnalyzeFailsFastWithoutFFmpeg(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Tools.FFmpeg = filepath.Join(env.dataDir, "missing-ffmpeg")
	writeTestConfig(t, env.configPath, env.cfg)
	ref := env.video(t, "reference.raw", 0)

	_, _, err := runCLI(t, []string{"analyze", ref, ref}, env.configPath)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	requireContains(t, err.Error(), "FFmpeg")
}
