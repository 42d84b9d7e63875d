package stream

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Iron-Ham/prefixview/internal/bucket"
	"github.com/charmbracelet/x/ansi"
)

// Decode splits a raw line into its visible text and SGR styled spans.
// Text is what grouping and error detection match against. Escape
// sequences other than SGR are dropped, as are control characters
// other than tab.
func Decode(raw []byte) (string, []bucket.Span) {
	s := strings.ToValidUTF8(string(raw), "�")

	var (
		spans []bucket.Span
		style string
		cur   strings.Builder
		text  strings.Builder
		state byte
	)

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		spans = append(spans, bucket.Span{Text: cur.String(), Style: style})
		text.WriteString(cur.String())
		cur.Reset()
	}

	// No parser is passed: its fixed params buffer is indexed unchecked
	// once a CSI carries more than its capacity, and SGR params are read
	// back from the sequence text instead.
	for len(s) > 0 {
		seq, width, n, next := ansi.DecodeSequence(s, state, nil)
		state = next
		if n <= 0 {
			n = 1
			seq = s[:1]
		}
		s = s[n:]

		if width > 0 || isVisible(seq) {
			cur.WriteString(seq)
			continue
		}
		if params, ok := sgrParams(seq); ok {
			if styled := applySGR(style, params); styled != style {
				flush()
				style = styled
			}
		}
	}
	flush()

	if text.Len() == 0 {
		return "", nil
	}
	return text.String(), spans
}

// isVisible reports whether a zero-width sequence still belongs to the
// text: tabs and zero-width graphemes such as combining marks.
func isVisible(seq string) bool {
	if seq == "" || seq[0] == ansi.ESC {
		return false
	}
	r, _ := utf8.DecodeRuneInString(seq)
	return r == '\t' || !unicode.IsControl(r)
}

// sgrParams returns the parameter list of a Select Graphic Rendition
// sequence. Private or intermediate forms are not SGR.
func sgrParams(seq string) (string, bool) {
	if !ansi.HasCsiPrefix(seq) || !strings.HasPrefix(seq, "\x1b[") || !strings.HasSuffix(seq, "m") {
		return "", false
	}
	params := seq[2 : len(seq)-1]
	if strings.Trim(params, "0123456789;:") != "" {
		return "", false
	}
	return params, true
}

// applySGR folds an SGR parameter list into the current style. A reset
// (empty or "0") clears the style; anything else is appended.
func applySGR(style, params string) string {
	if params == "" || params == "0" {
		return ""
	}
	if strings.HasPrefix(params, "0;") {
		style = ""
		params = strings.TrimPrefix(params, "0;")
	}
	if style == "" {
		return params
	}
	return style + ";" + params
}
