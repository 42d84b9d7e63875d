// Package keymap provides declarative, mode-aware key bindings for the
// dashboard. Bindings can be replaced per command from configuration.
package keymap

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Mode represents the current input mode of the TUI.
// Different modes have different key bindings active.
type Mode string

const (
	ModeNormal Mode = "normal" // Navigating groups and categories
	ModeHelp   Mode = "help"   // Help overlay is open
)

// Command represents a named action that can be triggered by a key binding.
type Command string

// Normal mode commands
const (
	// Group navigation
	CmdNextGroup  Command = "next_group"
	CmdPrevGroup  Command = "prev_group"
	CmdFirstGroup Command = "first_group"
	CmdLastGroup  Command = "last_group"
	CmdNextUnread Command = "next_unread"

	// Category selection
	CmdNextCategory   Command = "next_category"
	CmdPrevCategory   Command = "prev_category"
	CmdViewMessages   Command = "view_messages"
	CmdViewStderr     Command = "view_stderr"
	CmdViewUnparsable Command = "view_unparsable"

	// Scrolling
	CmdScrollUp       Command = "scroll_up"
	CmdScrollDown     Command = "scroll_down"
	CmdScrollPageUp   Command = "scroll_page_up"
	CmdScrollPageDown Command = "scroll_page_down"
	CmdScrollToBottom Command = "scroll_to_bottom"

	// Actions
	CmdExport     Command = "export"
	CmdToggleHelp Command = "toggle_help"
	CmdQuit       Command = "quit"
)

// Help overlay commands
const (
	CmdCloseHelp Command = "close_help"
)

// Modifier represents keyboard modifiers (Ctrl, Alt, Shift).
type Modifier uint8

const (
	ModNone  Modifier = 0
	ModCtrl  Modifier = 1 << iota
	ModAlt
	ModShift
)

// String returns a human-readable representation of modifiers.
func (m Modifier) String() string {
	if m == ModNone {
		return ""
	}
	var s string
	if m&ModCtrl != 0 {
		s += "ctrl+"
	}
	if m&ModAlt != 0 {
		s += "alt+"
	}
	if m&ModShift != 0 {
		s += "shift+"
	}
	return s
}

// KeyBinding represents a single key binding.
type KeyBinding struct {
	// KeyType is the key. For rune keys use tea.KeyRunes and set Rune.
	KeyType tea.KeyType

	// Rune is the character for rune-based keys (when KeyType is tea.KeyRunes).
	Rune rune

	// Modifiers contains the modifier keys that must be pressed.
	Modifiers Modifier

	// Command is the action to execute when this binding is triggered.
	Command Command

	// Description is a human-readable description for help display.
	Description string

	// Category groups related bindings together in help display.
	Category string
}

// Matches checks if a tea.KeyMsg matches this binding.
func (kb KeyBinding) Matches(msg tea.KeyMsg) bool {
	wantAlt := kb.Modifiers&ModAlt != 0
	if msg.Alt != wantAlt {
		return false
	}

	if kb.KeyType != tea.KeyRunes {
		return msg.Type == kb.KeyType
	}

	if msg.Type != tea.KeyRunes || len(msg.Runes) == 0 {
		return false
	}
	return msg.Runes[0] == kb.Rune
}

// String returns a human-readable representation of the key binding.
func (kb KeyBinding) String() string {
	prefix := kb.Modifiers.String()

	if kb.KeyType != tea.KeyRunes {
		return prefix + kb.KeyType.String()
	}
	if kb.Rune == ' ' {
		return prefix + "space"
	}
	return prefix + string(kb.Rune)
}

// ModeBindings holds all key bindings for a specific mode.
type ModeBindings struct {
	Mode     Mode
	Bindings []KeyBinding
}

// GetBinding looks up a command for a key in this mode.
func (mb *ModeBindings) GetBinding(msg tea.KeyMsg) (Command, bool) {
	for _, binding := range mb.Bindings {
		if binding.Matches(msg) {
			return binding.Command, true
		}
	}
	return "", false
}

// Keymap contains all key bindings organized by mode.
type Keymap struct {
	Name        string
	Description string
	Modes       map[Mode]*ModeBindings
}

// GetBinding looks up a command for a key in a specific mode.
func (km *Keymap) GetBinding(msg tea.KeyMsg, mode Mode) (Command, bool) {
	mb, ok := km.Modes[mode]
	if !ok {
		return "", false
	}
	return mb.GetBinding(msg)
}

// GetModeBindings returns all bindings for a specific mode.
func (km *Keymap) GetModeBindings(mode Mode) []KeyBinding {
	mb, ok := km.Modes[mode]
	if !ok {
		return nil
	}
	return mb.Bindings
}

// GetBindingsForCommand returns all bindings that trigger a specific command.
func (km *Keymap) GetBindingsForCommand(cmd Command, mode Mode) []KeyBinding {
	mb, ok := km.Modes[mode]
	if !ok {
		return nil
	}

	var result []KeyBinding
	for _, binding := range mb.Bindings {
		if binding.Command == cmd {
			result = append(result, binding)
		}
	}
	return result
}

// KeysFor renders the keys bound to cmd joined by "/", for help text.
func (km *Keymap) KeysFor(cmd Command, mode Mode) string {
	var keys []string
	for _, b := range km.GetBindingsForCommand(cmd, mode) {
		keys = append(keys, b.String())
	}
	return strings.Join(keys, "/")
}

// GetCategories returns all unique categories in a mode's bindings, in
// first-seen order.
func (km *Keymap) GetCategories(mode Mode) []string {
	mb, ok := km.Modes[mode]
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var categories []string
	for _, binding := range mb.Bindings {
		if binding.Category != "" && !seen[binding.Category] {
			seen[binding.Category] = true
			categories = append(categories, binding.Category)
		}
	}
	return categories
}

// GetBindingsByCategory returns bindings grouped by category for a mode.
func (km *Keymap) GetBindingsByCategory(mode Mode) map[string][]KeyBinding {
	mb, ok := km.Modes[mode]
	if !ok {
		return nil
	}

	result := make(map[string][]KeyBinding)
	for _, binding := range mb.Bindings {
		cat := binding.Category
		if cat == "" {
			cat = "Other"
		}
		result[cat] = append(result[cat], binding)
	}
	return result
}

// ApplyOverrides replaces the normal mode bindings of each named command
// with the given key specs, keeping the command's description and category.
// Overrides maps command names to key specs such as "ctrl+n" or "J".
func (km *Keymap) ApplyOverrides(overrides map[string][]string) error {
	if err := ValidateOverrides(overrides); err != nil {
		return err
	}
	mb, ok := km.Modes[ModeNormal]
	if !ok {
		return fmt.Errorf("keymap has no %s mode", ModeNormal)
	}

	// Deterministic order so conflicting overrides resolve the same way.
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := Command(name)
		template := KeyBinding{Command: cmd}
		if existing := km.GetBindingsForCommand(cmd, ModeNormal); len(existing) > 0 {
			template.Description = existing[0].Description
			template.Category = existing[0].Category
		}

		kept := mb.Bindings[:0:0]
		for _, b := range mb.Bindings {
			if b.Command != cmd {
				kept = append(kept, b)
			}
		}

		var added []KeyBinding
		for _, spec := range overrides[name] {
			keyType, r, mods, _ := ParseKeySpec(spec)
			b := template
			b.KeyType, b.Rune, b.Modifiers = keyType, r, mods
			added = append(added, b)
		}
		// Overrides take precedence over defaults bound to the same key.
		mb.Bindings = append(added, kept...)
	}
	return nil
}

// ValidateOverrides checks that every command exists and every key spec
// parses. It returns all problems joined into one error.
func ValidateOverrides(overrides map[string][]string) error {
	known := make(map[Command]bool)
	for _, b := range DefaultKeymap().GetModeBindings(ModeNormal) {
		known[b.Command] = true
	}

	var problems []string
	for name, specs := range overrides {
		if !known[Command(name)] {
			problems = append(problems, fmt.Sprintf("unknown command %q", name))
			continue
		}
		if len(specs) == 0 {
			problems = append(problems, fmt.Sprintf("command %q has no keys", name))
		}
		for _, spec := range specs {
			if _, _, _, err := ParseKeySpec(spec); err != nil {
				problems = append(problems, fmt.Sprintf("command %q: %v", name, err))
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid key bindings: %s", strings.Join(problems, "; "))
}

// KeyBindingSpec is a serializable key binding specification, used when
// writing the effective bindings to a config document.
type KeyBindingSpec struct {
	Key         string `json:"key" yaml:"key"` // e.g., "ctrl+r", "j", "enter"
	Command     string `json:"command" yaml:"command"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Specs returns the bindings of a mode as serializable specs.
func (km *Keymap) Specs(mode Mode) []KeyBindingSpec {
	var out []KeyBindingSpec
	for _, b := range km.GetModeBindings(mode) {
		out = append(out, KeyBindingSpec{
			Key:         b.String(),
			Command:     string(b.Command),
			Description: b.Description,
			Category:    b.Category,
		})
	}
	return out
}

// ParseKeySpec parses a key specification string into KeyType, Rune, and Modifiers.
// Examples: "ctrl+r", "shift+tab", "j", "enter", "alt+left"
func ParseKeySpec(spec string) (keyType tea.KeyType, r rune, mods Modifier, err error) {
	remaining := spec
	for {
		switch {
		case len(remaining) > 5 && remaining[:5] == "ctrl+":
			mods |= ModCtrl
			remaining = remaining[5:]
		case len(remaining) > 4 && remaining[:4] == "alt+":
			mods |= ModAlt
			remaining = remaining[4:]
		case len(remaining) > 6 && remaining[:6] == "shift+":
			mods |= ModShift
			remaining = remaining[6:]
		default:
			return parseKey(spec, remaining, mods)
		}
	}
}

func parseKey(spec, remaining string, mods Modifier) (tea.KeyType, rune, Modifier, error) {
	switch remaining {
	case "enter":
		return tea.KeyEnter, 0, mods, nil
	case "tab":
		if mods&ModShift != 0 {
			return tea.KeyShiftTab, 0, mods &^ ModShift, nil
		}
		return tea.KeyTab, 0, mods, nil
	case "esc", "escape":
		return tea.KeyEsc, 0, mods, nil
	case "space":
		return tea.KeySpace, 0, mods, nil
	case "backspace":
		return tea.KeyBackspace, 0, mods, nil
	case "delete":
		return tea.KeyDelete, 0, mods, nil
	case "up":
		return tea.KeyUp, 0, mods, nil
	case "down":
		return tea.KeyDown, 0, mods, nil
	case "left":
		return tea.KeyLeft, 0, mods, nil
	case "right":
		return tea.KeyRight, 0, mods, nil
	case "home":
		return tea.KeyHome, 0, mods, nil
	case "end":
		return tea.KeyEnd, 0, mods, nil
	case "pgup", "pageup":
		return tea.KeyPgUp, 0, mods, nil
	case "pgdown", "pagedown":
		return tea.KeyPgDown, 0, mods, nil
	}

	// ctrl+letter is its own key type in bubbletea
	if mods&ModCtrl != 0 && len(remaining) == 1 {
		ch := remaining[0]
		if ch >= 'a' && ch <= 'z' {
			return tea.KeyCtrlA + tea.KeyType(ch-'a'), 0, mods &^ ModCtrl, nil
		}
	}

	if len(remaining) == 1 {
		return tea.KeyRunes, rune(remaining[0]), mods, nil
	}

	return 0, 0, 0, fmt.Errorf("unrecognized key spec: %s", spec)
}
