package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LevelWarn)
	log.Info("store.loaded", nil)
	log.Warn("store.load_failed", map[string]any{"key": "progress"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "store.load_failed" || entry["key"] != "progress" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestWithAddsFieldsAndStringifiesErrors(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LevelDebug).With(map[string]any{"session_id": "abc"})
	log.Error("store.write_failed", map[string]any{"error": errors.New("disk full")})

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["session_id"] != "abc" || entry["error"] != "disk full" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.jsonl")
	for i := 0; i < 2; i++ {
		log, err := NewJSONLogger(path)
		if err != nil {
			t.Fatalf("new logger: %v", err)
		}
		log.Info("app.start", nil)
		if err := log.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := strings.Count(string(b), "\n"); n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != LevelDebug || ParseLevel("warning") != LevelWarn || ParseLevel("") != LevelInfo {
		t.Fatalf("unexpected level parsing")
	}
}
