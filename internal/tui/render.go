package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Iron-Ham/prefixview/internal/bucket"
	"github.com/Iron-Ham/prefixview/internal/errors"
	"github.com/Iron-Ham/prefixview/internal/tui/keymap"
	"github.com/Iron-Ham/prefixview/internal/tui/styles"
)

// tabWidth is how many spaces replace a tab in the output pane.
const tabWidth = 4

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting prefixview..."
	}

	mainHeight := CalculateMainAreaHeight(m.height)

	var main string
	if m.mode == keymap.ModeHelp {
		main = m.renderHelpOverlay(m.width, mainHeight)
	} else {
		sw := m.sidebarWidth()
		cw, _ := m.contentDimensions()
		main = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderSidebar(sw, mainHeight),
			strings.Repeat(" ", PanelGap),
			m.renderContent(cw, mainHeight),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		main,
		m.renderHelpBar(),
	)
}

// renderHeader renders the title, the child's command line and its state.
func (m Model) renderHeader() string {
	title := styles.Title.Render("prefixview")
	command := styles.Muted.Render(strings.Join(m.src.Args(), " "))

	var state string
	if m.exit == nil {
		state = m.spinner.View() + " " + styles.Secondary.Render(fmt.Sprintf("running (pid %d)", m.src.PID()))
	} else {
		name := styles.StateExited
		switch {
		case m.exit.Signal != 0:
			name = styles.StateKilled
		case m.exit.Err != nil, m.exit.Code != 0:
			name = styles.StateFailed
		}
		state = lipgloss.NewStyle().Foreground(styles.StateColor(name)).
			Render(styles.StateIcon(name) + " " + m.exit.String())
	}

	left := title + "  " + command
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(state)
	if gap < 1 {
		left = ansi.Truncate(left, max(m.width-lipgloss.Width(state)-1, 0), "…")
		gap = 1
	}
	return ansi.Truncate(left+strings.Repeat(" ", gap)+state, m.width, "")
}

// displayKey is how a group key appears in the sidebar and titles.
func displayKey(key string) string {
	if key == bucket.UngroupedKey {
		return "(ungrouped)"
	}
	return key
}

// renderSidebar renders the group list with pagination and the "Other" box.
func (m Model) renderSidebar(width, height int) string {
	inner := max(width-4, 1) // border and padding
	var b strings.Builder

	b.WriteString(styles.SidebarTitle.Render("Groups"))
	b.WriteString("\n")

	total := len(m.groupKeys)
	if total == 0 {
		b.WriteString(styles.Muted.Render("Waiting for output"))
		b.WriteString("\n")
	} else {
		slots := CalculateAvailableSidebarSlots(height)
		start := m.sidebarScrollOffset
		end := min(start+slots, total)

		if start > 0 {
			b.WriteString(styles.Muted.Render(fmt.Sprintf("▲ %d more above", start)))
			b.WriteString("\n")
		}
		for i := start; i < end; i++ {
			b.WriteString(m.renderSidebarGroup(i, inner))
			b.WriteString("\n")
		}
		if end < total {
			b.WriteString(styles.Muted.Render(fmt.Sprintf("▼ %d more below", total-end)))
			b.WriteString("\n")
		}
	}

	groups := styles.Sidebar.
		Width(width - 2).
		Height(max(height-OtherBoxHeight-BorderSize, 1)).
		Render(strings.TrimRight(b.String(), "\n"))

	totals := m.store.Totals()
	other := styles.SidebarSectionTitle.Render("Other") + "\n" +
		ansi.Truncate(fmt.Sprintf("stderr %d  unparsable %d",
			totals[bucket.CategoryStderr], totals[bucket.CategoryUnparsable]), inner, "…")
	otherBox := styles.Sidebar.
		Width(width - 2).
		Height(OtherBoxHeight - BorderSize).
		Render(other)

	return lipgloss.JoinVertical(lipgloss.Left, groups, otherBox)
}

// renderSidebarGroup renders a single group in the sidebar with its counters
func (m Model) renderSidebarGroup(i, width int) string {
	key := m.groupKeys[i]
	stats := m.store.Stats(key)

	var badges []string
	if n := stats.TotalUnreadErrors(); n > 0 {
		badges = append(badges, styles.ErrorBadge.Render(fmt.Sprintf("✗%d", n)))
	}
	if n := stats.TotalUnread(); n > 0 {
		badges = append(badges, styles.UnreadBadge.Render(fmt.Sprintf("+%d", n)))
	}
	badge := strings.Join(badges, " ")

	// Item style adds one column of padding on each side.
	maxLabel := max(width-lipgloss.Width(badge)-3, 4)
	label := ansi.Truncate(displayKey(key), maxLabel, "…")

	var item string
	if i == m.nav.Group {
		item = styles.SidebarItemActive.Render(label)
	} else {
		itemStyle := styles.SidebarItem.Foreground(styles.MutedColor)
		if stats.TotalUnreadErrors() > 0 {
			itemStyle = itemStyle.Foreground(styles.ErrorColor)
		}
		item = itemStyle.Render(label)
	}
	if badge == "" {
		return item
	}
	return item + " " + badge
}

// renderContent renders the category tabs and the visible output window.
func (m Model) renderContent(width, height int) string {
	body := m.viewport.View()
	if m.window.Total == 0 {
		body = styles.Muted.Render(fmt.Sprintf("No %s output for %s yet",
			m.nav.Category, displayKey(m.selectedKey())))
	}

	return styles.OutputArea.
		Width(width).
		Height(max(height-BorderSize, 1)).
		Render(m.renderTabs(width) + "\n" + body)
}

// renderTabs renders one tab per category plus the scroll position.
func (m Model) renderTabs(width int) string {
	stats := m.store.Stats(m.selectedKey())

	var tabs []string
	for _, c := range bucket.Categories() {
		label := fmt.Sprintf("%s %d", c, stats.Count(c))
		if n := stats.UnreadErrors[c]; n > 0 && c != m.nav.Category {
			label += " ✗"
		}
		if c == m.nav.Category {
			tabs = append(tabs, styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, styles.TabInactive.Render(label))
		}
	}
	left := strings.Join(tabs, "")

	var pos []string
	if m.window.Older > 0 {
		pos = append(pos, fmt.Sprintf("(%d older)", m.window.Older))
	}
	if m.window.Newer > 0 {
		pos = append(pos, fmt.Sprintf("(%d newer)", m.window.Newer))
	}
	if evicted := m.store.Evicted(m.selectedKey(), m.nav.Category); evicted > 0 {
		pos = append(pos, fmt.Sprintf("%d dropped", evicted))
	}
	if !m.nav.Following() {
		pos = append(pos, styles.Warning.Render("paused"))
	}
	right := styles.Muted.Render(strings.Join(pos, " "))

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return ansi.Truncate(left+strings.Repeat(" ", gap)+right, width, "")
}

// renderLines formats the window for the viewport. Error lines use the
// error color instead of their own styling.
func (m Model) renderLines(lines []bucket.Line) string {
	width := m.viewport.Width
	tabs := strings.Repeat(" ", tabWidth)

	out := make([]string, len(lines))
	for i, l := range lines {
		var s string
		if l.HasError {
			s = styles.Error.Render(strings.ReplaceAll(l.Text, "\t", tabs))
		} else {
			s = strings.ReplaceAll(l.Styled(), "\t", tabs)
		}
		if width > 0 {
			s = ansi.Truncate(s, width, "…")
		}
		out[i] = s
	}
	return strings.Join(out, "\n")
}

// renderHelpBar renders the bottom line: a pending message, the latest
// session warning, or key hints.
func (m Model) renderHelpBar() string {
	var line string
	switch {
	case m.errorMessage != "":
		line = styles.ErrorMsg.Render(m.errorMessage)
	case m.infoMessage != "":
		line = styles.SuccessMsg.Render(m.infoMessage)
	default:
		hints := []string{
			m.hint(keymap.CmdNextGroup, "next"),
			m.hint(keymap.CmdPrevGroup, "prev"),
			m.hint(keymap.CmdNextCategory, "category"),
			m.hint(keymap.CmdScrollUp, "scroll"),
			m.hint(keymap.CmdExport, "export"),
			m.hint(keymap.CmdToggleHelp, "help"),
			m.hint(keymap.CmdQuit, "quit"),
		}
		line = strings.Join(hints, "  ")
		if warnings := m.src.Warnings(); len(warnings) > 0 {
			line = renderWarning(warnings[len(warnings)-1]) + "  " + line
			if len(warnings) > 1 {
				line = styles.WarningMsg.Render(fmt.Sprintf("(%d warnings) ", len(warnings))) + line
			}
		}
	}
	return ansi.Truncate(styles.HelpBar.Render(line), m.width, "…")
}

// renderWarning shows a stream failure as an error and a command that
// would not stop as a warning.
func renderWarning(err error) string {
	if errors.GetSeverity(err) >= errors.SeverityError {
		return styles.ErrorMsg.Render(fmt.Sprintf("✖ %s", err))
	}
	return styles.WarningMsg.Render(fmt.Sprintf("⚠ %s", err))
}

func (m Model) hint(cmd keymap.Command, label string) string {
	bindings := m.keys.GetBindingsForCommand(cmd, keymap.ModeNormal)
	if len(bindings) == 0 {
		return ""
	}
	return styles.HelpKey.Render("["+bindings[0].String()+"]") + " " + label
}

// renderHelpOverlay lists every normal mode binding grouped by category.
func (m Model) renderHelpOverlay(width, height int) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Key bindings"))
	b.WriteString("\n")

	for _, category := range m.keys.GetCategories(keymap.ModeNormal) {
		b.WriteString(styles.HelpSection.Render(category))
		b.WriteString("\n")

		seen := make(map[keymap.Command]bool)
		for _, binding := range m.keys.GetBindingsByCategory(keymap.ModeNormal)[category] {
			if seen[binding.Command] {
				continue
			}
			seen[binding.Command] = true
			keys := m.keys.KeysFor(binding.Command, keymap.ModeNormal)
			b.WriteString(fmt.Sprintf("  %s %s\n",
				styles.HelpKey.Render(fmt.Sprintf("%-18s", keys)),
				binding.Description))
		}
	}
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("Press " + m.keys.KeysFor(keymap.CmdCloseHelp, keymap.ModeHelp) + " to close"))

	lines := strings.Split(b.String(), "\n")
	if limit := height - BorderSize - 2; limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	return styles.HelpOverlay.
		Width(max(width-BorderSize, 1)).
		Height(max(height-BorderSize-2, 1)).
		Render(strings.Join(lines, "\n"))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
