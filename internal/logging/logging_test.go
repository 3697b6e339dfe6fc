package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/forest6511/deskvault/internal/config"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, config.LogFormatJSON)
	logger.Info("vault unlocked", "tasks", 3)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "vault unlocked" || entry["tasks"] != float64(3) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, config.LogFormatText)
	logger.Info("dropped")
	logger.Warn("vault unlock failed", "failed_attempts", 2)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(out, "vault unlock failed") || !strings.Contains(out, "failed_attempts") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing happens")
}
