package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tonearm/internal/config"
	"tonearm/internal/logging"
	"tonearm/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "tonearm.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if strings.Contains(string(content), "\x1b[") {
		t.Fatalf("expected no colour codes in file output, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentAndSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(services.WithJobID(context.Background(), 7), "resolve")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "resolver")).Info("artist linked", logging.String("artist", "Radiohead"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"[resolver]", "Job #7 (resolve) artist linked", "artist=Radiohead"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in console output, got %q", want, line)
		}
	}
}

func TestConsoleLoggerShowsScanRun(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-run.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(services.WithRunID(context.Background(), "0123456789abcdef"), "scan")
	logging.WithContext(ctx, logger).Info("scan started", logging.String("root", "/music/My Library"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", line)
	}
	for _, want := range []string{"Run 01234567 (scan) scan started", `root="/music/My Library"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in console output, got %q", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.json")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = services.WithJobID(ctx, 123)
	ctx = services.WithStage(ctx, "scan")
	ctx = services.WithRunID(ctx, "run-xyz")
	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode json record: %v (%q)", err, content)
	}
	if record["msg"] != "contextual log" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("expected ts key")
	}
	if record[logging.FieldJobID] != float64(123) {
		t.Fatalf("field %s = %v, want 123", logging.FieldJobID, record[logging.FieldJobID])
	}
	if record[logging.FieldStage] != "scan" {
		t.Fatalf("field %s = %v, want scan", logging.FieldStage, record[logging.FieldStage])
	}
	if record[logging.FieldCorrelationID] != "run-xyz" {
		t.Fatalf("field %s = %v, want run-xyz", logging.FieldCorrelationID, record[logging.FieldCorrelationID])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.json")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "probe failed", "probe_failed", logging.String(logging.FieldErrorHint, "check ffprobe"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode json record: %v", err)
	}
	if record[logging.FieldEventType] != "probe_failed" {
		t.Fatalf("unexpected event type: %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] != "check ffprobe" {
		t.Fatalf("expected caller hint to win, got %v", record[logging.FieldErrorHint])
	}
	if record[logging.FieldImpact] == nil {
		t.Fatal("expected default impact field")
	}
}
