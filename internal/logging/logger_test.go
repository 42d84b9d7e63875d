package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func readLogLines(t *testing.T, dir string) []map[string]any {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	var out []map[string]any
	for i, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file in directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "state")

		logger, err := NewLogger(dir, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(filepath.Join(dir, LogFileName)); err != nil {
			t.Errorf("log file was not created: %v", err)
		}
	})

	t.Run("writes to stderr when dir is empty", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if logger.closer != nil {
			t.Error("expected no closer when writing to stderr")
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{LevelDebug, []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{LevelInfo, []string{"INFO", "WARN", "ERROR"}},
		{LevelWarn, []string{"WARN", "ERROR"}},
		{LevelError, []string{"ERROR"}},
		{"bogus", []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			dir := t.TempDir()
			logger, err := NewLogger(dir, tt.level)
			if err != nil {
				t.Fatalf("NewLogger failed: %v", err)
			}

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			logger.Error("error message")
			_ = logger.Close()

			entries := readLogLines(t, dir)
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.want))
			}
			for i, e := range entries {
				if e["level"] != tt.want[i] {
					t.Errorf("entry %d level = %v, want %s", i, e["level"], tt.want[i])
				}
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.WithComponent("stream").With("stream", "stderr").Info("stream closed", "lines", 3)
	logger.Info("root entry")
	_ = logger.Close()

	entries := readLogLines(t, dir)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	first := entries[0]
	if first["component"] != "stream" || first["stream"] != "stderr" {
		t.Errorf("child attributes missing: %v", first)
	}
	// JSON numbers are float64
	if first["lines"] != float64(3) {
		t.Errorf("lines = %v, want 3", first["lines"])
	}
	if _, ok := entries[1]["component"]; ok {
		t.Error("parent logger must not inherit child attributes")
	}
}

func TestWith_IgnoresNonStringKeys(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.With(42, "dropped", "kept", true).Info("msg")
	if logger.With() != logger {
		t.Error("With() without arguments should return the receiver")
	}
	_ = logger.Close()

	entries := readLogLines(t, dir)
	if entries[0]["kept"] != true {
		t.Errorf("kept = %v", entries[0]["kept"])
	}
	if _, ok := entries[0]["dropped"]; ok {
		t.Error("value of a non-string key should be dropped")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()

	logger.WithComponent("tui").Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	if err := logger.Close(); err != nil {
		t.Errorf("NopLogger.Close() returned error: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"invalid", LevelInfo},
		{"", LevelInfo},
	}

	for _, tc := range tests {
		if got := ParseLevel(tc.input); got != tc.expected {
			t.Errorf("ParseLevel(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestIsValidLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "Warn", "error"} {
		if !IsValidLevel(level) {
			t.Errorf("IsValidLevel(%q) = false", level)
		}
	}
	for _, level := range []string{"", "trace", "fatal"} {
		if IsValidLevel(level) {
			t.Errorf("IsValidLevel(%q) = true", level)
		}
	}
}

func TestClose_SharedByChildren(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	child := logger.WithComponent("session")
	child.Info("before close")

	if err := child.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	// The root shares the file, so a second close is a no-op.
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() returned error: %v", err)
	}

	if entries := readLogLines(t, dir); len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			child := logger.WithComponent("stream")
			for j := 0; j < 100; j++ {
				child.Info("concurrent write", "goroutine", n, "iteration", j)
			}
		}(i)
	}
	wg.Wait()
	_ = logger.Close()

	if entries := readLogLines(t, dir); len(entries) != 1000 {
		t.Errorf("expected 1000 log lines, got %d", len(entries))
	}
}
