package tui

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/prefixview/internal/bucket"
	"github.com/Iron-Ham/prefixview/internal/errors"
)

// ExportFileName returns the file name used when exporting a bucket.
func ExportFileName(key string, cat bucket.Category) string {
	return fmt.Sprintf("prefixview-%s-%s.log", sanitizeKey(key), cat)
}

// sanitizeKey maps a group key onto characters safe for a file name.
func sanitizeKey(key string) string {
	if key == bucket.UngroupedKey {
		return "ungrouped"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, key)
}

// WriteExport writes the current contents of a bucket to dir, one plain
// text line per record, and returns the file path and line count.
func WriteExport(dir, key string, cat bucket.Category, store *bucket.Store) (string, int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, errors.Wrap(err, "creating export directory")
	}

	path := filepath.Join(dir, ExportFileName(key, cat))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, errors.Wrapf(err, "creating export file for %s", key)
	}

	lines := store.Snapshot(key, cat)
	w := bufio.NewWriter(f)
	for _, l := range lines {
		_, _ = w.WriteString(l.Text)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return "", 0, errors.Wrap(err, "writing export file")
	}
	if err := f.Close(); err != nil {
		return "", 0, errors.Wrap(err, "closing export file")
	}
	return path, len(lines), nil
}

// exportBucket writes the bucket off the update loop.
func exportBucket(dir, key string, cat bucket.Category, store *bucket.Store) tea.Cmd {
	return func() tea.Msg {
		path, n, err := WriteExport(dir, key, cat, store)
		return exportedMsg{path: path, lines: n, err: err}
	}
}

// openInEditor suspends the dashboard and runs editor on path.
func openInEditor(editor, path string) tea.Cmd {
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return nil
	}
	c := exec.Command(parts[0], append(parts[1:], path)...)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorClosedMsg{err: err}
	})
}
