package ops

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ripplefeed/ripple/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&config.Logging{Level: "warn", Format: "text"}, &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Messages below warn leaked through:\n%s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("Expected warn and error messages:\n%s", out)
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&config.Logging{Level: "info", Format: "json"}, &buf)

	logger.Info("hello", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "hello" || entry["key"] != "value" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&config.Logging{Level: "info", Format: "text"}, &buf)

	logger.WithComponent("store").Info("opened")

	if !strings.Contains(buf.String(), "component=store") {
		t.Errorf("Expected component field:\n%s", buf.String())
	}
}

func TestIsDebugEnabled(t *testing.T) {
	var buf bytes.Buffer

	if !NewLoggerWithWriter(&config.Logging{Level: "debug"}, &buf).IsDebugEnabled() {
		t.Error("Expected debug enabled at debug level")
	}
	if NewLoggerWithWriter(&config.Logging{Level: "info"}, &buf).IsDebugEnabled() {
		t.Error("Expected debug disabled at info level")
	}
}

func TestLogRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&config.Logging{Level: "info", Format: "json"}, &buf)

	logger.LogRequest("POST", "/likes/", 201, 5*time.Millisecond)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log entry: %v", err)
	}
	if entry["method"] != "POST" || entry["path"] != "/likes/" || entry["status"] != float64(201) {
		t.Errorf("Unexpected request log: %v", entry)
	}
}

func TestLogIntegrityViolation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&config.Logging{Level: "error", Format: "text"}, &buf)

	logger.LogIntegrityViolation("thread assembly", errors.New("missing parent"))

	out := buf.String()
	if !strings.Contains(out, "integrity violation detected") || !strings.Contains(out, "missing parent") {
		t.Errorf("Unexpected integrity log:\n%s", out)
	}
}
