package tui

import "github.com/Iron-Ham/prefixview/internal/bucket"

// Nav is the dashboard's navigation state: which group and category are
// shown and how far the view is scrolled back from the newest line.
// Methods take the current group count because groups keep appearing
// while the child runs. Group movement clamps and never wraps.
type Nav struct {
	Group    int
	Category bucket.Category
	// Offset is the number of lines between the bottom of the view and
	// the newest line. Zero follows new output.
	Offset int
}

// Following reports whether the view tracks the newest line.
func (n Nav) Following() bool {
	return n.Offset == 0
}

// NextGroup selects the following group, staying on the last one.
// It reports whether the selection changed.
func (n *Nav) NextGroup(count int) bool {
	return n.SelectGroup(n.Group+1, count)
}

// PrevGroup selects the preceding group, staying on the first one.
func (n *Nav) PrevGroup(count int) bool {
	return n.SelectGroup(n.Group-1, count)
}

// FirstGroup selects the first group.
func (n *Nav) FirstGroup(count int) bool {
	return n.SelectGroup(0, count)
}

// LastGroup selects the last group.
func (n *Nav) LastGroup(count int) bool {
	return n.SelectGroup(count-1, count)
}

// SelectGroup selects group i clamped to [0, count-1]. A change of group
// resets the view to follow the newest line.
func (n *Nav) SelectGroup(i, count int) bool {
	i = clampIndex(i, count)
	if i == n.Group {
		return false
	}
	n.Group = i
	n.Offset = 0
	return true
}

// Clamp keeps the selection valid for count groups.
func (n *Nav) Clamp(count int) {
	n.Group = clampIndex(n.Group, count)
}

// CycleCategory advances messages, stderr, unparsable, then back to messages.
func (n *Nav) CycleCategory() {
	n.setCategory(n.Category.Next())
}

// PrevCategory steps the cycle backwards.
func (n *Nav) PrevCategory() {
	n.setCategory(n.Category.Prev())
}

// ToggleCategory shows c, or messages when c is already shown.
func (n *Nav) ToggleCategory(c bucket.Category) {
	if n.Category == c {
		c = bucket.CategoryMessages
	}
	n.setCategory(c)
}

// ShowCategory shows c.
func (n *Nav) ShowCategory(c bucket.Category) {
	n.setCategory(c)
}

func (n *Nav) setCategory(c bucket.Category) {
	if c == n.Category {
		return
	}
	n.Category = c
	n.Offset = 0
}

// Scroll moves the view by delta lines; positive deltas go back towards
// older output. The offset stays within [0, maxOffset].
func (n *Nav) Scroll(delta, maxOffset int) {
	n.Offset += delta
	if n.Offset > maxOffset {
		n.Offset = maxOffset
	}
	if n.Offset < 0 {
		n.Offset = 0
	}
}

// Follow returns the view to the newest line.
func (n *Nav) Follow() {
	n.Offset = 0
}

func clampIndex(i, count int) int {
	if count <= 0 || i < 0 {
		return 0
	}
	if i >= count {
		return count - 1
	}
	return i
}
