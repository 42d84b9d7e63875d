package keymap

import tea "github.com/charmbracelet/bubbletea"

// DefaultKeymap returns the built-in dashboard key bindings.
func DefaultKeymap() *Keymap {
	return &Keymap{
		Name:        "default",
		Description: "Default prefixview key bindings",
		Modes: map[Mode]*ModeBindings{
			ModeNormal: defaultNormalBindings(),
			ModeHelp:   defaultHelpBindings(),
		},
	}
}

func defaultNormalBindings() *ModeBindings {
	return &ModeBindings{
		Mode: ModeNormal,
		Bindings: []KeyBinding{
			// Group navigation
			{KeyType: tea.KeyRunes, Rune: 'j', Command: CmdNextGroup, Description: "Next group", Category: "Groups"},
			{KeyType: tea.KeyRunes, Rune: 'k', Command: CmdPrevGroup, Description: "Previous group", Category: "Groups"},
			{KeyType: tea.KeyDown, Command: CmdNextGroup, Description: "Next group", Category: "Groups"},
			{KeyType: tea.KeyUp, Command: CmdPrevGroup, Description: "Previous group", Category: "Groups"},
			{KeyType: tea.KeyHome, Command: CmdFirstGroup, Description: "First group", Category: "Groups"},
			{KeyType: tea.KeyEnd, Command: CmdLastGroup, Description: "Last group", Category: "Groups"},
			{KeyType: tea.KeyRunes, Rune: 'n', Command: CmdNextUnread, Description: "Next group with unread lines", Category: "Groups"},

			// Categories
			{KeyType: tea.KeyTab, Command: CmdNextCategory, Description: "Next category", Category: "Categories"},
			{KeyType: tea.KeyShiftTab, Command: CmdPrevCategory, Description: "Previous category", Category: "Categories"},
			{KeyType: tea.KeyRunes, Rune: 'e', Command: CmdViewStderr, Description: "Toggle stderr", Category: "Categories"},
			{KeyType: tea.KeyRunes, Rune: 'p', Command: CmdViewUnparsable, Description: "Toggle unparsable", Category: "Categories"},
			{KeyType: tea.KeyEsc, Command: CmdViewMessages, Description: "Back to messages", Category: "Categories"},

			// Scrolling
			{KeyType: tea.KeyRunes, Rune: 'K', Command: CmdScrollUp, Description: "Scroll up", Category: "Scrolling"},
			{KeyType: tea.KeyRunes, Rune: 'w', Command: CmdScrollUp, Description: "Scroll up", Category: "Scrolling"},
			{KeyType: tea.KeyRunes, Rune: 'J', Command: CmdScrollDown, Description: "Scroll down", Category: "Scrolling"},
			{KeyType: tea.KeyRunes, Rune: 's', Command: CmdScrollDown, Description: "Scroll down", Category: "Scrolling"},
			{KeyType: tea.KeyPgUp, Command: CmdScrollPageUp, Description: "Page up", Category: "Scrolling"},
			{KeyType: tea.KeyCtrlB, Command: CmdScrollPageUp, Description: "Page up", Category: "Scrolling"},
			{KeyType: tea.KeyPgDown, Command: CmdScrollPageDown, Description: "Page down", Category: "Scrolling"},
			{KeyType: tea.KeyCtrlF, Command: CmdScrollPageDown, Description: "Page down", Category: "Scrolling"},
			{KeyType: tea.KeyRunes, Rune: 'r', Command: CmdScrollToBottom, Description: "Follow newest lines", Category: "Scrolling"},
			{KeyType: tea.KeyRunes, Rune: 'G', Command: CmdScrollToBottom, Description: "Follow newest lines", Category: "Scrolling"},

			// Actions
			{KeyType: tea.KeyEnter, Command: CmdExport, Description: "Export view and open $EDITOR", Category: "Actions"},
			{KeyType: tea.KeyRunes, Rune: '?', Command: CmdToggleHelp, Description: "Toggle help", Category: "Actions"},
			{KeyType: tea.KeyRunes, Rune: 'q', Command: CmdQuit, Description: "Quit", Category: "Actions"},
			{KeyType: tea.KeyCtrlC, Command: CmdQuit, Description: "Quit", Category: "Actions"},
		},
	}
}

func defaultHelpBindings() *ModeBindings {
	return &ModeBindings{
		Mode: ModeHelp,
		Bindings: []KeyBinding{
			{KeyType: tea.KeyRunes, Rune: '?', Command: CmdCloseHelp, Description: "Close help", Category: "Help"},
			{KeyType: tea.KeyEsc, Command: CmdCloseHelp, Description: "Close help", Category: "Help"},
			{KeyType: tea.KeyRunes, Rune: 'q', Command: CmdQuit, Description: "Quit", Category: "Help"},
			{KeyType: tea.KeyCtrlC, Command: CmdQuit, Description: "Quit", Category: "Help"},
		},
	}
}
