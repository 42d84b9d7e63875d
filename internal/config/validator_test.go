package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "buffer.scrollback",
		Value:   0,
		Message: "must be between 1 and 1000000",
	}

	want := "buffer.scrollback: must be between 1 and 1000000 (got: 0)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := ValidationErrors(nil).Error(); got != "" {
			t.Errorf("Error() = %q, want empty", got)
		}
	})

	t.Run("single", func(t *testing.T) {
		errs := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
		if got := errs.Error(); got != "a: bad (got: 1)" {
			t.Errorf("Error() = %q", got)
		}
	})

	t.Run("multiple", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "a", Value: 1, Message: "bad"},
			{Field: "b", Value: 2, Message: "worse"},
		}
		got := errs.Error()
		if !strings.HasPrefix(got, "2 validation errors:") {
			t.Errorf("Error() = %q", got)
		}
		if !strings.Contains(got, "1. a: bad") || !strings.Contains(got, "2. b: worse") {
			t.Errorf("Error() = %q, want numbered entries", got)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	if errs := Default().Validate(); len(errs) > 0 {
		t.Errorf("default config should be valid, got: %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string // empty means valid
	}{
		{"pattern does not compile", func(c *Config) { c.Parse.Pattern = `(` }, "parse.pattern"},
		{"pattern with one group", func(c *Config) { c.Parse.Pattern = `^(\w+)` }, "parse.pattern"},
		{"pattern with unnamed groups", func(c *Config) { c.Parse.Pattern = `^([A-Z]+) (.*)$` }, ""},
		{"bad error pattern", func(c *Config) { c.Parse.ErrorPattern = `[` }, "parse.error_pattern"},
		{"empty error pattern", func(c *Config) { c.Parse.ErrorPattern = "" }, ""},
		{"zero scrollback", func(c *Config) { c.Buffer.Scrollback = 0 }, "buffer.scrollback"},
		{"huge scrollback", func(c *Config) { c.Buffer.Scrollback = 2_000_000 }, "buffer.scrollback"},
		{"one line scrollback", func(c *Config) { c.Buffer.Scrollback = 1 }, ""},
		{"tiny max line", func(c *Config) { c.Buffer.MaxLineBytes = 10 }, "buffer.max_line_bytes"},
		{"unknown stop signal", func(c *Config) { c.Process.StopSignal = "SIGKILL" }, "process.stop_signal"},
		{"SIGINT stop signal", func(c *Config) { c.Process.StopSignal = "SIGINT" }, ""},
		{"negative grace", func(c *Config) { c.Process.GracePeriodMs = -1 }, "process.grace_period_ms"},
		{"zero grace", func(c *Config) { c.Process.GracePeriodMs = 0 }, ""},
		{"long grace", func(c *Config) { c.Process.GracePeriodMs = 120_000 }, "process.grace_period_ms"},
		{"fast tick", func(c *Config) { c.TUI.TickIntervalMs = 1 }, "tui.tick_interval_ms"},
		{"default sidebar", func(c *Config) { c.TUI.SidebarWidth = 0 }, ""},
		{"narrow sidebar", func(c *Config) { c.TUI.SidebarWidth = 10 }, "tui.sidebar_width"},
		{"wide sidebar", func(c *Config) { c.TUI.SidebarWidth = 61 }, "tui.sidebar_width"},
		{"valid key override", func(c *Config) { c.TUI.Keys = map[string][]string{"quit": {"x"}} }, ""},
		{"unknown key command", func(c *Config) { c.TUI.Keys = map[string][]string{"explode": {"x"}} }, "tui.keys"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"negative log size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
		{"rotation disabled", func(c *Config) { c.Logging.MaxSizeMB = 0 }, ""},
		{"too many backups", func(c *Config) { c.Logging.MaxBackups = 500 }, "logging.max_backups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.field == "" {
				if len(errs) > 0 {
					t.Errorf("expected valid config, got: %v", errs)
				}
				return
			}

			found := false
			for _, err := range errs {
				if err.Field == tt.field {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for %s, got: %v", tt.field, errs)
			}
		})
	}
}
