package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies that parseLogLevel correctly parses log level
// strings from environment variables, handling case-insensitivity and whitespace.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"INFO", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"debug", zap.DebugLevel},
		{"  warn  ", zap.WarnLevel},
		{"invalid", zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.env)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.env, got, tt.expect)
		}
	}
}

// TestNewLogger verifies that NewLogger creates a valid logger instance
// that can be used for logging operations.
func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("desk-1")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned nil logger")
	}

	logger.Info("test message")
	_ = logger.Sync() // best-effort; can fail on /dev/stderr in test env
}

// TestLoggerConfig_DeviceField writes through the production encoder and
// checks each entry carries the device name and an ISO8601 timestamp.
func TestLoggerConfig_DeviceField(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "log.json")
	config := loggerConfig("desk-1")
	config.OutputPaths = []string{path}
	logger, err := config.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	logger.Info("weather updated")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	if entry["device"] != "desk-1" {
		t.Errorf("device = %v, want desk-1", entry["device"])
	}
	if entry["msg"] != "weather updated" {
		t.Errorf("msg = %v, want weather updated", entry["msg"])
	}
	if ts, ok := entry["timestamp"].(string); !ok || len(ts) < len("2006-01-02T15:04:05") {
		t.Errorf("timestamp = %v, want ISO8601 string", entry["timestamp"])
	}
}

func TestLoggerConfig_NoDevice(t *testing.T) {
	if fields := loggerConfig("").InitialFields; len(fields) != 0 {
		t.Errorf("InitialFields = %v, want none without a device", fields)
	}
}
