// Package tui provides the interactive dashboard for prefixview.
// This file contains layout-related constants and dimension calculation functions.
package tui

// Sidebar dimensions
const (
	// SidebarWidth is the default width of the group list.
	SidebarWidth = 30

	// SidebarMinWidth is the minimum sidebar width used on narrow terminals (< 80 cols).
	SidebarMinWidth = 20

	// SidebarMaxWidth is the widest configurable sidebar.
	SidebarMaxWidth = 60

	// NarrowTerminalThreshold is the terminal width below which the sidebar uses minimum width.
	NarrowTerminalThreshold = 80
)

// Layout offsets - these represent the space taken by fixed UI elements
const (
	// HeaderHeight is the title line with the command and process state.
	HeaderHeight = 1

	// HelpBarHeight is the key hint line at the bottom.
	HelpBarHeight = 1

	// PanelGap is the gap between sidebar and content panels.
	PanelGap = 1

	// BorderSize is the rows or columns taken by a rounded border on both sides.
	BorderSize = 2

	// TabBarHeight is the category tab line inside the content box.
	TabBarHeight = 1

	// OtherBoxHeight is the stderr/unparsable summary box under the group list.
	OtherBoxHeight = 4

	// SidebarReservedLines accounts for the title, its margin and both scroll indicators.
	SidebarReservedLines = 4
)

// OutputMinLines is the minimum number of visible lines in the output area.
const OutputMinLines = 3

// GetEffectiveSidebarWidth returns the sidebar width for a terminal,
// honoring a configured width and falling back to the minimum on narrow
// terminals. A configured width of 0 means SidebarWidth.
func GetEffectiveSidebarWidth(configured, termWidth int) int {
	if termWidth < NarrowTerminalThreshold {
		return SidebarMinWidth
	}
	if configured <= 0 {
		return SidebarWidth
	}
	return max(SidebarMinWidth, min(configured, SidebarMaxWidth))
}

// CalculateMainAreaHeight returns the height shared by the sidebar and content box.
func CalculateMainAreaHeight(termHeight int) int {
	return max(termHeight-HeaderHeight-HelpBarHeight, 0)
}

// CalculateContentDimensions returns the size of the output viewport for a
// terminal, after the sidebar, borders and tab bar.
func CalculateContentDimensions(sidebarWidth, termWidth, termHeight int) (contentWidth, contentHeight int) {
	contentWidth = termWidth - sidebarWidth - PanelGap - BorderSize
	contentHeight = CalculateMainAreaHeight(termHeight) - BorderSize - TabBarHeight
	return max(contentWidth, 1), max(contentHeight, OutputMinLines)
}

// CalculateAvailableSidebarSlots returns how many groups fit in the list.
func CalculateAvailableSidebarSlots(mainAreaHeight int) int {
	slots := mainAreaHeight - OtherBoxHeight - BorderSize - SidebarReservedLines
	return max(slots, 1)
}
