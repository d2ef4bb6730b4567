package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trustframe/internal/config"
	"trustframe/internal/logging"
	"trustframe/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("decoded frame", logging.Int("frame", 7))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("log file is not JSON lines: %v (%q)", err, data)
	}
	if line["msg"] != "decoded frame" || line["level"] != "debug" {
		t.Fatalf("unexpected log line %v", line)
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts key in %v", line)
	}
}

func TestConsoleSourceOnlyAtDebug(t *testing.T) {
	tests := []struct {
		level      string
		wantSource bool
	}{
		{"info", false},
		{"debug", true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := logging.New(logging.Options{Level: tt.level, Console: &buf})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			logger.Info("aligned")
			if got := strings.Contains(buf.String(), ".go:"); got != tt.wantSource {
				t.Fatalf("source present = %v, want %v in %q", got, tt.wantSource, buf.String())
			}
		})
	}
}

func TestConsoleComponentPrefixAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "workflow").Info("fingerprints ready",
		logging.Int("frames", 3),
		logging.String("path", "/tmp/my clip.mp4"),
	)
	out := buf.String()
	for _, want := range []string{"INFO", "workflow: fingerprints ready", "frames=3", `path="/tmp/my clip.mp4"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should be rendered as prefix, got %q", out)
	}
}

func TestJSONConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "JSON", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("suppressed")
	logger.Warn("cache miss", logging.String("digest", "abc"))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "warn" || line["digest"] != "abc" {
		t.Fatalf("unexpected JSON line %v", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Console: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "chatty", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithStage(services.WithRunID(context.Background(), "run-42"), "fingerprint")
	ctx = services.WithSide(ctx, "evidence")
	logging.WithContext(ctx, logger).Info("started")

	out := buf.String()
	if !strings.Contains(out, "run_id=run-42") || !strings.Contains(out, "stage=fingerprint") || !strings.Contains(out, "side=evidence") {
		t.Fatalf("expected context fields in %q", out)
	}
}

func TestErrorWithContextAddsKind(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	failure := services.Wrap(services.ErrNotFound, "digest", "open", "reference missing", errors.New("no such file"))
	logging.ErrorWithContext(logger, "comparison failed", "run_failed", failure)

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line[logging.FieldErrorKind] != services.KindNotFound {
		t.Fatalf("error_kind = %v, want %s", line[logging.FieldErrorKind], services.KindNotFound)
	}
	if line[logging.FieldEventType] != "run_failed" || line[logging.FieldErrorHint] == nil {
		t.Fatalf("missing structured fields in %v", line)
	}
}

func TestWarnWithContextKeepsCallerFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "cache disabled", "cache_unavailable",
		logging.String(logging.FieldImpact, "frames decoded every run"))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line[logging.FieldImpact] != "frames decoded every run" {
		t.Fatalf("impact overwritten: %v", line)
	}
	if line[logging.FieldEventType] != "cache_unavailable" {
		t.Fatalf("event_type missing: %v", line)
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should never be enabled")
	}
}
