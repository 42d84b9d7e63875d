// Package parse classifies output lines into groups using a regular
// expression. Capture group 1 is the group key and capture group 2 is the
// message. Classification is a pure function of the line text.
package parse

import (
	"regexp"

	"github.com/Iron-Ham/prefixview/internal/errors"
)

// DefaultPattern matches turbo-style task output such as "web:build: done".
const DefaultPattern = `^(?P<prefix>\S*?):(?P<rest> .*)`

// DefaultErrorPattern flags lines that look like failures.
const DefaultErrorPattern = `(?i)(error|exception|stack.?trace)`

// Classification is the result of applying the grouping pattern to a line.
// The zero value is Unparsable.
type Classification struct {
	// Routed is true when the pattern matched and both capture groups
	// participated in the match.
	Routed  bool
	Key     string
	Message string
}

// Routed builds a routed classification.
func Routed(key, message string) Classification {
	return Classification{Routed: true, Key: key, Message: message}
}

// Unparsable is the classification for lines the pattern did not route.
var Unparsable = Classification{}

// Classifier applies a compiled grouping pattern to line text.
// It is safe for concurrent use.
type Classifier struct {
	re      *regexp.Regexp
	errorRe *regexp.Regexp
	usable  bool
}

// New wraps an already compiled pattern. A pattern with fewer than two
// capture groups produces a Classifier that reports every line as
// Unparsable; use Compile to reject such patterns up front.
func New(re *regexp.Regexp) *Classifier {
	return &Classifier{
		re:     re,
		usable: re != nil && re.NumSubexp() >= 2,
	}
}

// Compile compiles pattern and validates that it exposes at least the two
// capture groups needed for routing.
func Compile(pattern string) (*Classifier, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.NewConfigError("grouping pattern does not compile", errors.Join(errors.ErrInvalidPattern, err)).
			WithField("parse.pattern").
			WithValue(pattern)
	}
	if re.NumSubexp() < 2 {
		return nil, errors.NewConfigError("grouping pattern is unusable", errors.ErrTooFewGroups).
			WithField("parse.pattern").
			WithValue(pattern)
	}
	return New(re), nil
}

// WithErrorPattern returns a copy of c that flags lines matching pattern.
// An empty pattern disables error detection.
func (c *Classifier) WithErrorPattern(pattern string) (*Classifier, error) {
	out := *c
	out.errorRe = nil
	if pattern == "" {
		return &out, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.NewConfigError("error pattern does not compile", errors.Join(errors.ErrInvalidPattern, err)).
			WithField("parse.error_pattern").
			WithValue(pattern)
	}
	out.errorRe = re
	return &out, nil
}

// Pattern returns the source text of the grouping pattern.
func (c *Classifier) Pattern() string {
	if c.re == nil {
		return ""
	}
	return c.re.String()
}

// Classify routes a complete line of decoded text.
func (c *Classifier) Classify(text string) Classification {
	if !c.usable {
		return Unparsable
	}

	m := c.re.FindStringSubmatchIndex(text)
	if m == nil {
		return Unparsable
	}
	// Index pairs for groups 1 and 2 are -1 when the group did not take part.
	if m[2] < 0 || m[4] < 0 {
		return Unparsable
	}
	return Routed(text[m[2]:m[3]], text[m[4]:m[5]])
}

// IsError reports whether text matches the error pattern.
func (c *Classifier) IsError(text string) bool {
	return c.errorRe != nil && c.errorRe.MatchString(text)
}
