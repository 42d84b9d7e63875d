package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"
)

// maxEntryBytes bounds a single JSON log line when scanning.
const maxEntryBytes = 1024 * 1024

// Entry is one parsed log line.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	// Attrs holds every other field, keyed by name.
	Attrs map[string]any
}

// AttrKeys returns the attribute names in sorted order.
func (e Entry) AttrKeys() []string {
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseEntry decodes one JSON log line written by a Logger.
func ParseEntry(line string) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var entry Entry
	if ts, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Time = t
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.Component, _ = raw["component"].(string)

	for _, k := range []string{"time", "level", "msg", "component"} {
		delete(raw, k)
	}
	if len(raw) > 0 {
		entry.Attrs = raw
	}
	return entry, nil
}

// LevelPriority orders levels for minimum-level filtering. Unknown levels
// return -1.
func LevelPriority(level string) int {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return -1
	}
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	// MinLevel keeps entries at or above this level.
	MinLevel string
	// Component keeps entries from one component.
	Component string
	// Since keeps entries at or after this time.
	Since time.Time
	// Pattern is matched against the message and attribute values.
	Pattern *regexp.Regexp
}

// Match reports whether entry passes every criterion.
func (f Filter) Match(entry Entry) bool {
	if f.MinLevel != "" && LevelPriority(entry.Level) < LevelPriority(f.MinLevel) {
		return false
	}
	if f.Component != "" && entry.Component != f.Component {
		return false
	}
	if !f.Since.IsZero() && entry.Time.Before(f.Since) {
		return false
	}
	if f.Pattern != nil {
		text := entry.Message
		for _, k := range entry.AttrKeys() {
			text += " " + fmt.Sprint(entry.Attrs[k])
		}
		if !f.Pattern.MatchString(text) {
			return false
		}
	}
	return true
}

// ScanEntries reads log lines from r and calls fn for each one that passes
// filter. Lines that are not valid JSON are passed through with ok false so
// the caller can print them raw.
func ScanEntries(r io.Reader, filter Filter, fn func(entry Entry, raw string, ok bool)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntryBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := ParseEntry(line)
		if err != nil {
			fn(Entry{}, line, false)
			continue
		}
		if filter.Match(entry) {
			fn(entry, line, true)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}
	return nil
}
