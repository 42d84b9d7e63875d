package logging

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestParseEntry(t *testing.T) {
	line := `{"time":"2026-03-01T10:00:00.5Z","level":"WARN","msg":"grace period elapsed","component":"supervisor","pid":42}`

	entry, err := ParseEntry(line)
	if err != nil {
		t.Fatalf("ParseEntry() error = %v", err)
	}
	if entry.Level != "WARN" || entry.Message != "grace period elapsed" || entry.Component != "supervisor" {
		t.Errorf("entry = %+v", entry)
	}
	if want := time.Date(2026, 3, 1, 10, 0, 0, 500_000_000, time.UTC); !entry.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", entry.Time, want)
	}
	if len(entry.Attrs) != 1 || entry.Attrs["pid"] != float64(42) {
		t.Errorf("Attrs = %v", entry.Attrs)
	}

	if _, err := ParseEntry("not json"); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestFilter_Match(t *testing.T) {
	base := Entry{
		Time:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Level:     "INFO",
		Message:   "child started",
		Component: "supervisor",
		Attrs:     map[string]any{"command": "make dev"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"level at minimum", Filter{MinLevel: "info"}, true},
		{"level below minimum", Filter{MinLevel: "warn"}, false},
		{"component match", Filter{Component: "supervisor"}, true},
		{"component mismatch", Filter{Component: "stream"}, false},
		{"since before", Filter{Since: base.Time.Add(-time.Minute)}, true},
		{"since after", Filter{Since: base.Time.Add(time.Minute)}, false},
		{"pattern on message", Filter{Pattern: regexp.MustCompile(`start`)}, true},
		{"pattern on attribute", Filter{Pattern: regexp.MustCompile(`make`)}, true},
		{"pattern miss", Filter{Pattern: regexp.MustCompile(`exited`)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(base); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanEntries(t *testing.T) {
	input := strings.Join([]string{
		`{"level":"DEBUG","msg":"line routed"}`,
		`{"level":"ERROR","msg":"stream read failed","stream":"stderr"}`,
		``,
		`garbage`,
		`{"level":"INFO","msg":"child exited"}`,
	}, "\n")

	var msgs, raw []string
	err := ScanEntries(strings.NewReader(input), Filter{MinLevel: LevelInfo}, func(e Entry, line string, ok bool) {
		if !ok {
			raw = append(raw, line)
			return
		}
		msgs = append(msgs, e.Message)
	})
	if err != nil {
		t.Fatalf("ScanEntries() error = %v", err)
	}

	if strings.Join(msgs, ",") != "stream read failed,child exited" {
		t.Errorf("messages = %q", msgs)
	}
	if len(raw) != 1 || raw[0] != "garbage" {
		t.Errorf("raw = %q", raw)
	}
}

func TestLevelPriority(t *testing.T) {
	if !(LevelPriority("debug") < LevelPriority("INFO") &&
		LevelPriority("INFO") < LevelPriority("warn") &&
		LevelPriority("warn") < LevelPriority("ERROR")) {
		t.Error("levels are not ordered")
	}
	if LevelPriority("trace") != -1 {
		t.Error("unknown level should be -1")
	}
}
