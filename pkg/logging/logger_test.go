package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{" info ", InfoLevel},
		{"WARNING", WarnLevel},
		{"warn", WarnLevel},
		{"Error", ErrorLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}

	if Level(42).String() != "UNKNOWN" {
		t.Errorf("out of range level should render UNKNOWN")
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestJSONLogger_FieldsAndFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Debug("dropped")
	logger.Info("Time 3: Infected nodes = 7", Tick(3), Infected(7))
	logger.Error("run failed", Error(errors.New("boom")))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "INFO" || entries[0].Fields["tick"] != float64(3) || entries[0].Fields["infected"] != float64(7) {
		t.Errorf("unexpected info entry: %+v", entries[0])
	}
	if entries[1].Fields["error"] != "boom" {
		t.Errorf("error field = %v", entries[1].Fields["error"])
	}
}

func TestJSONLogger_WithSharesWriter(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, DebugLevel)
	child := parent.With(Component("propagation"), RunID("abc"))

	child.Info("seeded", NodeIDs([]int{1, 4}))
	parent.Info("plain")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Fields["component"] != "propagation" || entries[0].Fields["run_id"] != "abc" {
		t.Errorf("child fields missing: %+v", entries[0].Fields)
	}
	if entries[1].Fields != nil {
		t.Errorf("parent must not inherit child fields: %+v", entries[1].Fields)
	}
}

func TestJSONLogger_CallSiteOverridesPreset(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel).With(String("phase", "build"))
	logger.Info("x", String("phase", "run"))

	entries := decodeLines(t, &buf)
	if entries[0].Fields["phase"] != "run" {
		t.Errorf("phase = %v, want run", entries[0].Fields["phase"])
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, ErrorLevel)
	logger.Info("hidden")
	logger.SetLevel(DebugLevel)
	logger.Debug("shown")

	if logger.GetLevel() != DebugLevel {
		t.Errorf("GetLevel = %v", logger.GetLevel())
	}
	if n := len(decodeLines(t, &buf)); n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	timer := StartTimer(logger, "run complete", Seed(9))
	time.Sleep(time.Millisecond)
	if elapsed := timer.End(Infected(2)); elapsed <= 0 {
		t.Errorf("elapsed = %v", elapsed)
	}
	StartTimer(logger, "run aborted").EndError(errors.New("cancelled"))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Fields["latency"] == nil || entries[0].Fields["seed"] != float64(9) || entries[0].Fields["infected"] != float64(2) {
		t.Errorf("unexpected timer fields: %+v", entries[0].Fields)
	}
	if entries[1].Level != "ERROR" || entries[1].Fields["error"] != "cancelled" {
		t.Errorf("unexpected error entry: %+v", entries[1])
	}
}

func TestNopAndDefault(t *testing.T) {
	var l Logger = NewNopLogger()
	l.Info("nothing")
	if l.With(Tick(1)) == nil {
		t.Error("NopLogger.With returned nil")
	}
	if _, ok := OrNop(nil).(NopLogger); !ok {
		t.Error("OrNop(nil) should be NopLogger")
	}

	custom := NewJSONLogger(&bytes.Buffer{}, WarnLevel)
	SetDefaultLogger(custom)
	defer SetDefaultLogger(nil)
	if DefaultLogger() != Logger(custom) {
		t.Error("DefaultLogger should return the logger set by SetDefaultLogger")
	}
}
