// Package bucket holds captured output lines grouped by key.
//
// Each group (bucket) keeps three independently bounded FIFO sequences:
// routed stdout messages, stderr lines, and stdout lines the grouping
// pattern could not route. Buckets appear in first-seen order and are
// never removed; the only deletion is eviction of the oldest line when a
// sequence exceeds the scrollback limit.
package bucket

import (
	"strings"
	"time"
)

// Stream identifies which child output stream a line came from.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

// String returns the string representation of Stream.
func (s Stream) String() string {
	switch s {
	case StreamStdout:
		return "stdout"
	case StreamStderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// Category is one of the three sequences held by a bucket.
type Category int

const (
	CategoryMessages Category = iota
	CategoryStderr
	CategoryUnparsable

	numCategories = 3
)

// Categories lists every category in cycle order.
func Categories() []Category {
	return []Category{CategoryMessages, CategoryStderr, CategoryUnparsable}
}

// String returns the category name used in titles and file names.
func (c Category) String() string {
	switch c {
	case CategoryMessages:
		return "messages"
	case CategoryStderr:
		return "stderr"
	case CategoryUnparsable:
		return "unparsable"
	default:
		return "unknown"
	}
}

// Next returns the following category, wrapping unparsable back to messages.
func (c Category) Next() Category {
	return (c + 1) % numCategories
}

// Prev returns the preceding category, wrapping messages back to unparsable.
func (c Category) Prev() Category {
	return (c + numCategories - 1) % numCategories
}

// Span is a run of text sharing one SGR style. Style holds the raw SGR
// parameters (for example "1;31"); an empty Style is the terminal default.
type Span struct {
	Text  string
	Style string
}

// Line is one complete line of child output. Lines are created once by a
// stream reader and never modified afterwards, so they can be shared
// between the store and any snapshot without copying.
type Line struct {
	// Raw is the line as read, without the terminator.
	Raw []byte
	// Text is Raw with escape sequences removed. Grouping operates on Text.
	Text string
	// Spans is Text split by style.
	Spans []Span
	// Stream is the source stream.
	Stream Stream
	// Seq increases strictly within one stream, starting at 1.
	Seq uint64
	// Time is when the terminator was observed.
	Time time.Time
	// HasError is set when Text matches the error pattern.
	HasError bool
}

// Styled re-encodes the spans as a string with SGR sequences, resetting
// at the end when any style was applied.
func (l Line) Styled() string {
	if len(l.Spans) == 0 {
		return l.Text
	}

	var sb strings.Builder
	styled := false
	for _, sp := range l.Spans {
		if sp.Style != "" {
			sb.WriteString("\x1b[")
			sb.WriteString(sp.Style)
			sb.WriteString("m")
			styled = true
		} else if styled {
			sb.WriteString("\x1b[0m")
		}
		sb.WriteString(sp.Text)
	}
	if styled {
		sb.WriteString("\x1b[0m")
	}
	return sb.String()
}
