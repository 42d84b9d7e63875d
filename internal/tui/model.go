package tui

import (
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/prefixview/internal/bucket"
	"github.com/Iron-Ham/prefixview/internal/logging"
	"github.com/Iron-Ham/prefixview/internal/supervisor"
	"github.com/Iron-Ham/prefixview/internal/tui/keymap"
	"github.com/Iron-Ham/prefixview/internal/tui/styles"
)

// DefaultTickInterval is the redraw interval when none is configured.
const DefaultTickInterval = 50 * time.Millisecond

// mouseScrollLines is how far one wheel step scrolls the output.
const mouseScrollLines = 3

// Source is what the dashboard needs from a running session.
// *session.Session implements it.
type Source interface {
	Store() *bucket.Store
	Updates() <-chan struct{}
	Exited() (supervisor.ExitStatus, bool)
	Args() []string
	PID() int
	Warnings() []error
	Resize(rows, cols int)
}

// Options configures the dashboard.
type Options struct {
	Keymap       *keymap.Keymap
	TickInterval time.Duration
	SidebarWidth int
	QuitOnExit   bool
	ExportDir    string
	// Editor opens exported files. Empty disables opening them.
	Editor string
	Logger *logging.Logger
}

// Model is the dashboard state. Only Update mutates it.
type Model struct {
	src    Source
	store  *bucket.Store
	keys   *keymap.Keymap
	opts   Options
	logger *logging.Logger

	// Terminal dimensions
	width  int
	height int
	ready  bool

	mode keymap.Mode
	nav  Nav

	// lastVersion is the version of the shown sequence at the last
	// refresh; a scrolled back view shifts by the lines added since.
	lastKey     string
	lastVersion uint64
	window      bucket.Window
	groupKeys   []string

	sidebarScrollOffset int

	viewport viewport.Model
	spinner  spinner.Model

	exit     *supervisor.ExitStatus
	quitting bool

	infoMessage  string
	errorMessage string
}

// NewModel creates the dashboard model for src.
func NewModel(src Source, opts Options) Model {
	if opts.Keymap == nil {
		opts.Keymap = keymap.DefaultKeymap()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.ExportDir == "" {
		opts.ExportDir = os.TempDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Secondary

	return Model{
		src:      src,
		store:    src.Store(),
		keys:     opts.Keymap,
		opts:     opts,
		logger:   logger.WithComponent("tui"),
		mode:     keymap.ModeNormal,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

// Messages

type tickMsg time.Time

// dataMsg is delivered when the session reports new lines or a state change.
type dataMsg struct{}

// quitMsg asks the dashboard to quit. Signals are delivered this way.
type quitMsg struct {
	reason string
}

type exportedMsg struct {
	path  string
	lines int
	err   error
}

type editorClosedMsg struct {
	err error
}

// Commands

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForData blocks until the session has something new.
func waitForData(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return dataMsg{}
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.opts.TickInterval),
		m.spinner.Tick,
		waitForData(m.src.Updates()),
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		w, h := m.contentDimensions()
		m.viewport.Width = w
		m.viewport.Height = h
		m.src.Resize(h, w)
		m.refresh()
		return m, nil

	case tickMsg:
		m.refresh()
		if cmd := m.checkExit(); cmd != nil {
			return m, cmd
		}
		return m, tick(m.opts.TickInterval)

	case dataMsg:
		m.refresh()
		if cmd := m.checkExit(); cmd != nil {
			return m, cmd
		}
		return m, waitForData(m.src.Updates())

	case spinner.TickMsg:
		if m.exit != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case exportedMsg:
		if msg.err != nil {
			m.errorMessage = "Export failed: " + msg.err.Error()
			m.logger.Warn("export failed", "error", msg.err)
			return m, nil
		}
		m.infoMessage = "Exported " + plural(msg.lines, "line") + " to " + msg.path
		m.logger.Info("exported bucket", "path", msg.path, "lines", msg.lines)
		if m.opts.Editor == "" {
			return m, nil
		}
		return m, openInEditor(m.opts.Editor, msg.path)

	case editorClosedMsg:
		if msg.err != nil {
			m.errorMessage = "Editor failed: " + msg.err.Error()
		}
		m.refresh()
		return m, nil

	case quitMsg:
		m.logger.Info("quit requested", "reason", msg.reason)
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// checkExit records the child's exit once and quits when configured to.
func (m *Model) checkExit() tea.Cmd {
	if m.exit != nil {
		return nil
	}
	status, ok := m.src.Exited()
	if !ok {
		return nil
	}
	m.exit = &status
	m.logger.Info("child exit observed", "status", status.String())
	if m.opts.QuitOnExit {
		m.quitting = true
		return tea.Quit
	}
	return nil
}

// handleKeypress processes keyboard input
func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd, ok := m.keys.GetBinding(msg, m.mode)
	if !ok {
		// Unbound keys are ignored.
		return m, nil
	}

	// Any handled key clears transient messages.
	m.infoMessage = ""
	m.errorMessage = ""

	count := len(m.groupKeys)
	switch cmd {
	case keymap.CmdQuit:
		m.quitting = true
		return m, tea.Quit

	case keymap.CmdToggleHelp:
		m.mode = keymap.ModeHelp
		return m, nil
	case keymap.CmdCloseHelp:
		m.mode = keymap.ModeNormal
		return m, nil

	case keymap.CmdNextGroup:
		m.nav.NextGroup(count)
	case keymap.CmdPrevGroup:
		m.nav.PrevGroup(count)
	case keymap.CmdFirstGroup:
		m.nav.FirstGroup(count)
	case keymap.CmdLastGroup:
		m.nav.LastGroup(count)
	case keymap.CmdNextUnread:
		if i, found := m.store.NextUnread(m.nav.Group); found {
			m.nav.SelectGroup(i, count)
		} else {
			m.infoMessage = "No unread output"
		}

	case keymap.CmdNextCategory:
		m.nav.CycleCategory()
	case keymap.CmdPrevCategory:
		m.nav.PrevCategory()
	case keymap.CmdViewMessages:
		m.nav.ShowCategory(bucket.CategoryMessages)
	case keymap.CmdViewStderr:
		m.nav.ToggleCategory(bucket.CategoryStderr)
	case keymap.CmdViewUnparsable:
		m.nav.ToggleCategory(bucket.CategoryUnparsable)

	case keymap.CmdScrollUp:
		m.scroll(1)
	case keymap.CmdScrollDown:
		m.scroll(-1)
	case keymap.CmdScrollPageUp:
		m.scroll(m.viewport.Height)
	case keymap.CmdScrollPageDown:
		m.scroll(-m.viewport.Height)
	case keymap.CmdScrollToBottom:
		m.nav.Follow()

	case keymap.CmdExport:
		m.refresh()
		return m, exportBucket(m.opts.ExportDir, m.selectedKey(), m.nav.Category, m.store)
	}

	m.refresh()
	return m, nil
}

// handleMouse scrolls the output with the wheel.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != keymap.ModeNormal || msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scroll(mouseScrollLines)
	case tea.MouseButtonWheelDown:
		m.scroll(-mouseScrollLines)
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m *Model) scroll(delta int) {
	m.nav.Scroll(delta, max(m.window.Total-m.viewport.Height, 0))
}

// selectedKey returns the key of the selected group, or the ungrouped key
// when no group exists yet.
func (m Model) selectedKey() string {
	if m.nav.Group < len(m.groupKeys) {
		return m.groupKeys[m.nav.Group]
	}
	return bucket.UngroupedKey
}

// refresh pulls the visible window from the store. It keeps a scrolled
// back view anchored on the same lines while new ones arrive, and marks
// the shown sequence as seen.
func (m *Model) refresh() {
	m.groupKeys = m.store.GroupKeys()
	m.nav.Clamp(len(m.groupKeys))

	key, cat := m.selectedKey(), m.nav.Category
	version := m.store.SequenceVersion(key, cat)
	if seqID := key + "\x00" + cat.String(); seqID != m.lastKey {
		m.lastKey = seqID
	} else if !m.nav.Following() && version > m.lastVersion {
		m.nav.Offset += int(version - m.lastVersion)
	}
	m.lastVersion = version

	m.window = m.store.Window(key, cat, m.nav.Offset, m.viewport.Height)
	m.nav.Offset = m.window.Offset
	m.viewport.SetContent(m.renderLines(m.window.Lines))

	m.store.MarkSeen(key, cat)
	m.ensureActiveVisible()
}

// ensureActiveVisible adjusts the sidebar scroll so the selected group is shown.
func (m *Model) ensureActiveVisible() {
	slots := CalculateAvailableSidebarSlots(CalculateMainAreaHeight(m.height))
	if m.nav.Group < m.sidebarScrollOffset {
		m.sidebarScrollOffset = m.nav.Group
	}
	if m.nav.Group >= m.sidebarScrollOffset+slots {
		m.sidebarScrollOffset = m.nav.Group - slots + 1
	}
	if m.sidebarScrollOffset < 0 {
		m.sidebarScrollOffset = 0
	}
}

func (m Model) sidebarWidth() int {
	return GetEffectiveSidebarWidth(m.opts.SidebarWidth, m.width)
}

func (m Model) contentDimensions() (int, int) {
	return CalculateContentDimensions(m.sidebarWidth(), m.width, m.height)
}

// Nav returns the current navigation state.
func (m Model) Nav() Nav {
	return m.nav
}

// Quitting reports whether the dashboard has asked to stop.
func (m Model) Quitting() bool {
	return m.quitting
}
