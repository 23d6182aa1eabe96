package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSetsLevelAndFormat(t *testing.T) {
	cfg := LoggingConfig{Level: "debug", Format: "json", Output: "stdout"}
	log := New(cfg)
	if log.GetLevel().String() != "debug" {
		t.Fatalf("expected level debug, got %s", log.GetLevel())
	}
}

func TestNewCreatesLogFile(t *testing.T) {
	originalWD, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(originalWD) })

	temp := t.TempDir()
	if err := os.Chdir(temp); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	log := New(LoggingConfig{Level: "info", Format: "text", Output: "file", FilePrefix: "test"})
	log.Info("hello")

	path := filepath.Join("logs", "test.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log file to contain data")
	}
}

func TestLogAccess_CarriesRequestIDAndAccessFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
	log.SetOutput(&buf)

	log.LogAccess("req_123", "POST", "/v1/agent.pay", 200, 42)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["requestId"] != "req_123" {
		t.Fatalf("expected requestId field, got %v", entry["requestId"])
	}
	if entry["method"] != "POST" || entry["path"] != "/v1/agent.pay" {
		t.Fatalf("expected method/path fields, got %v", entry)
	}
	if entry["status"].(float64) != 200 {
		t.Fatalf("expected status 200, got %v", entry["status"])
	}
	if entry["durationMs"].(float64) != 42 {
		t.Fatalf("expected durationMs 42, got %v", entry["durationMs"])
	}
}

func TestLogPanicRecovered_CarriesRequestIDAndPanicValue(t *testing.T) {
	var buf bytes.Buffer
	log := New(LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
	log.SetOutput(&buf)

	log.LogPanicRecovered("req_456", "boom")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["requestId"] != "req_456" || entry["panic"] != "boom" {
		t.Fatalf("expected requestId/panic fields, got %v", entry)
	}
}
