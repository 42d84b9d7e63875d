package stream

import (
	"reflect"
	"testing"

	"github.com/Iron-Ham/prefixview/internal/bucket"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantText  string
		wantSpans []bucket.Span
	}{
		{
			name:      "empty",
			raw:       "",
			wantText:  "",
			wantSpans: nil,
		},
		{
			name:      "plain text",
			raw:       "hello world",
			wantText:  "hello world",
			wantSpans: []bucket.Span{{Text: "hello world"}},
		},
		{
			name:     "style then reset",
			raw:      "\x1b[1;31mbold red\x1b[0m plain",
			wantText: "bold red plain",
			wantSpans: []bucket.Span{
				{Text: "bold red", Style: "1;31"},
				{Text: " plain"},
			},
		},
		{
			name:     "nested styles accumulate",
			raw:      "\x1b[1mbold \x1b[31mred\x1b[m",
			wantText: "bold red",
			wantSpans: []bucket.Span{
				{Text: "bold ", Style: "1"},
				{Text: "red", Style: "1;31"},
			},
		},
		{
			name:      "leading reset replaces style",
			raw:       "\x1b[33mwarn \x1b[0;32mok",
			wantText:  "warn ok",
			wantSpans: []bucket.Span{{Text: "warn ", Style: "33"}, {Text: "ok", Style: "32"}},
		},
		{
			name:      "colon subparameters",
			raw:       "\x1b[38:5:196mx",
			wantText:  "x",
			wantSpans: []bucket.Span{{Text: "x", Style: "38:5:196"}},
		},
		{
			name:     "charset designation keeps styling",
			raw:      "\x1b[31mred\x1b(B\x1b[m plain",
			wantText: "red plain",
			wantSpans: []bucket.Span{
				{Text: "red", Style: "31"},
				{Text: " plain"},
			},
		},
		{
			name:      "OSC terminated by BEL",
			raw:       "\x1b]0;window title\x07text",
			wantText:  "text",
			wantSpans: []bucket.Span{{Text: "text"}},
		},
		{
			name:      "OSC hyperlink terminated by ST",
			raw:       "\x1b]8;;https://example.com\x1b\\\x1b[4mlink\x1b[0m\x1b]8;;\x1b\\",
			wantText:  "link",
			wantSpans: []bucket.Span{{Text: "link", Style: "4"}},
		},
		{
			name:      "erase in line",
			raw:       "progress\x1b[K done",
			wantText:  "progress done",
			wantSpans: []bucket.Span{{Text: "progress done"}},
		},
		{
			name:      "cursor movement and private modes",
			raw:       "\x1b[2A\x1b[?25lhidden\x1b[?25h",
			wantText:  "hidden",
			wantSpans: []bucket.Span{{Text: "hidden"}},
		},
		{
			name:      "unterminated CSI at end",
			raw:       "tail\x1b[12",
			wantText:  "tail",
			wantSpans: []bucket.Span{{Text: "tail"}},
		},
		{
			name:      "invalid UTF-8",
			raw:       "a\xffb",
			wantText:  "a�b",
			wantSpans: []bucket.Span{{Text: "a�b"}},
		},
		{
			name:      "controls dropped, tab kept",
			raw:       "a\bb\tc\x7f",
			wantText:  "ab\tc",
			wantSpans: []bucket.Span{{Text: "ab\tc"}},
		},
		{
			name:      "only escapes",
			raw:       "\x1b[31m\x1b[0m",
			wantText:  "",
			wantSpans: nil,
		},
		{
			name:      "more params than a parser holds",
			raw:       "\x1b[1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1mx",
			wantText:  "x",
			wantSpans: []bucket.Span{{Text: "x", Style: "1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1;1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, spans := Decode([]byte(tt.raw))
			if text != tt.wantText {
				t.Errorf("Decode(%q) text = %q, want %q", tt.raw, text, tt.wantText)
			}
			if !reflect.DeepEqual(spans, tt.wantSpans) {
				t.Errorf("Decode(%q) spans = %#v, want %#v", tt.raw, spans, tt.wantSpans)
			}
		})
	}
}

func TestDecode_SpansJoinToText(t *testing.T) {
	inputs := []string{
		"\x1b[31mred\x1b(B\x1b[m plain",
		"\x1b[1m\x1b]0;t\x07a\x1b[Kb\x1b[0mc",
		"x\x1b7y\x1b8z",
	}
	for _, raw := range inputs {
		text, spans := Decode([]byte(raw))
		var joined string
		for _, sp := range spans {
			joined += sp.Text
		}
		if joined != text {
			t.Errorf("Decode(%q): spans join to %q, text is %q", raw, joined, text)
		}
	}
}
