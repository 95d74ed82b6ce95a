package logging

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestSetAndGetLogger(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	customLogger := slog.New(slog.NewJSONHandler(&buf, nil))

	SetLogger(customLogger)

	got := Logger()
	if got != customLogger {
		t.Error("Logger() did not return the logger set by SetLogger()")
	}
}

func TestSetOutput(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("test message", "key", "value")

	output := buf.String()
	if output == "" {
		t.Error("expected log output to be written to buffer")
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"key"`) {
		t.Errorf("expected output to contain key, got: %s", output)
	}
}

func TestSetTextOutput(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetTextOutput(&buf)

	Debug("debug message")

	if !strings.Contains(buf.String(), "debug message") {
		t.Errorf("expected text output to contain debug message, got: %s", buf.String())
	}
}

func TestSetLevelKeepsDestinationAndFormat(t *testing.T) {
	defer Configure(os.Stdout, FormatJSON, slog.LevelInfo)

	var buf bytes.Buffer
	Configure(&buf, FormatText, slog.LevelWarn)

	Info("below threshold")
	SetLevel(slog.LevelInfo)
	Info("kept after level change")

	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Errorf("warn-level logger should drop info records, got: %s", out)
	}
	if !strings.Contains(out, "kept after level change") {
		t.Errorf("expected record in the configured buffer after SetLevel, got: %s", out)
	}
	if !strings.Contains(out, "level=INFO") {
		t.Errorf("expected text format to survive SetLevel, got: %s", out)
	}
}

func TestConfiguredLoggerRedactsSecrets(t *testing.T) {
	defer Configure(os.Stdout, FormatJSON, slog.LevelInfo)

	var buf bytes.Buffer
	Configure(&buf, FormatJSON, slog.LevelInfo)

	token := "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	Info("bot configured", "token", token)

	out := buf.String()
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redacted token, got: %s", out)
	}
	if strings.Contains(out, token) {
		t.Errorf("token leaked into log output: %s", out)
	}
}

func TestFieldHelpers(t *testing.T) {
	if got := Service("trader").Value.String(); got != "trader" {
		t.Errorf("Service helper: got %q", got)
	}
	if got := Err(nil).Value.String(); got != "" {
		t.Errorf("Err(nil) should be empty, got %q", got)
	}
}
