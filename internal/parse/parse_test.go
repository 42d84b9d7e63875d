package parse

import (
	"errors"
	"regexp"
	"testing"

	pverrors "github.com/Iron-Ham/prefixview/internal/errors"
)

func TestClassify(t *testing.T) {
	c, err := Compile(`^([A-Z]+) (.*)$`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	tests := []struct {
		name string
		text string
		want Classification
	}{
		{"routed", "INFO hello", Routed("INFO", "hello")},
		{"no match", "no match here", Unparsable},
		{"empty message", "WARN ", Routed("WARN", "")},
		{"empty line", "", Unparsable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_DefaultPattern(t *testing.T) {
	c, err := Compile(DefaultPattern)
	if err != nil {
		t.Fatalf("Compile(DefaultPattern) failed: %v", err)
	}

	tests := []struct {
		text string
		want Classification
	}{
		{"web:build: compiled", Routed("web:build", " compiled")},
		{"docs:dev: ready", Routed("docs:dev", " ready")},
		{"api: listening", Routed("api", " listening")},
		{"plain output", Unparsable},
		{"nospace:after", Unparsable},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			// The lazy prefix stops at the first colon followed by a space,
			// and the message keeps that space.
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_OptionalGroupDidNotParticipate(t *testing.T) {
	c, err := Compile(`^(\w+)?-(x)?$`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if got := c.Classify("abc-"); got.Routed {
		t.Errorf("Classify(abc-) = %+v, want Unparsable", got)
	}
	if got := c.Classify("abc-x"); got != Routed("abc", "x") {
		t.Errorf("Classify(abc-x) = %+v", got)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		sentinel error
	}{
		{"does not compile", `^([a-z`, pverrors.ErrInvalidPattern},
		{"one group", `^(\w+) .*$`, pverrors.ErrTooFewGroups},
		{"no groups", `.*`, pverrors.ErrTooFewGroups},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error %v does not wrap %v", err, tt.sentinel)
			}
			if !pverrors.IsFatal(err) {
				t.Error("expected a fatal configuration error")
			}
		})
	}
}

func TestNew_TooFewGroupsIsAlwaysUnparsable(t *testing.T) {
	c := New(regexp.MustCompile(`^(\w+)`))

	for _, text := range []string{"INFO hello", "x", ""} {
		if got := c.Classify(text); got.Routed {
			t.Errorf("Classify(%q) = %+v, want Unparsable", text, got)
		}
	}
}

func TestIsError(t *testing.T) {
	c, err := Compile(DefaultPattern)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if c.IsError("ERROR boom") {
		t.Error("IsError without an error pattern should be false")
	}

	c, err = c.WithErrorPattern(DefaultErrorPattern)
	if err != nil {
		t.Fatalf("WithErrorPattern failed: %v", err)
	}

	tests := []struct {
		text string
		want bool
	}{
		{"api:dev: Error: listen EADDRINUSE", true},
		{"Uncaught Exception in thread main", true},
		{"printing stack trace", true},
		{"stacktrace follows", true},
		{"all good", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := c.IsError(tt.text); got != tt.want {
				t.Errorf("IsError(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}

	if _, err := c.WithErrorPattern(`(`); !errors.Is(err, pverrors.ErrInvalidPattern) {
		t.Errorf("WithErrorPattern(bad) error = %v, want ErrInvalidPattern", err)
	}
}
