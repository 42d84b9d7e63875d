package styles

import "testing"

func TestStateColor(t *testing.T) {
	tests := []struct {
		state    string
		expected string // Expected color hex value
	}{
		{StateRunning, "#10B981"},
		{StateExited, "#60A5FA"},
		{StateFailed, "#F87171"},
		{StateKilled, "#F59E0B"},
		{"unknown", "#9CA3AF"}, // Should fall back to MutedColor
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got := StateColor(tt.state)
			if string(got) != tt.expected {
				t.Errorf("StateColor(%q) = %q, want %q", tt.state, got, tt.expected)
			}
		})
	}
}

func TestStateIcon(t *testing.T) {
	tests := []struct {
		state    string
		expected string
	}{
		{StateRunning, "●"},
		{StateExited, "✓"},
		{StateFailed, "✗"},
		{StateKilled, "⚡"},
		{"unknown", "○"},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			if got := StateIcon(tt.state); got != tt.expected {
				t.Errorf("StateIcon(%q) = %q, want %q", tt.state, got, tt.expected)
			}
		})
	}
}
