package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	appconfig "github.com/Iron-Ham/prefixview/internal/config"
	"github.com/Iron-Ham/prefixview/internal/logging"
	"github.com/Iron-Ham/prefixview/internal/tui/styles"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the debug log",
	Long: `View and filter the debug log written by prefixview runs.

The log lives in logging.dir (default $XDG_STATE_HOME/prefixview/debug.log).

Examples:
  # Show the last 50 entries
  prefixview logs

  # Show everything
  prefixview logs -n 0

  # Follow the log while a dashboard runs in another terminal
  prefixview logs -f

  # Only warnings and errors from the stream readers
  prefixview logs --level warn --component stream

  # Search for specific patterns
  prefixview logs --grep "kill|lingering"`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsComponent string
)

func init() {
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only entries from one component (session, stream, supervisor, tui)")
}

var attrKeyStyle = lipgloss.NewStyle().Foreground(styles.BlueColor)

// levelStyle returns the style for a log level
func levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return styles.Muted
	case logging.LevelInfo:
		return attrKeyStyle
	case logging.LevelWarn:
		return styles.Warning
	case logging.LevelError:
		return styles.Error
	default:
		return styles.Text
	}
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(entry logging.Entry) string {
	var sb strings.Builder

	sb.WriteString(styles.Muted.Render("[" + entry.Time.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	sb.WriteString(levelStyle(entry.Level).Render("[" + strings.ToUpper(entry.Level) + "]"))
	if entry.Component != "" {
		sb.WriteString(" ")
		sb.WriteString(styles.Primary.Render(entry.Component))
	}
	sb.WriteString(" ")
	sb.WriteString(entry.Message)

	for _, key := range entry.AttrKeys() {
		sb.WriteString(" ")
		sb.WriteString(attrKeyStyle.Render(key + "="))
		sb.WriteString(fmt.Sprintf("%v", entry.Attrs[key]))
	}

	return sb.String()
}

// buildFilter turns the command-line options into a log filter.
func buildFilter(level, since, grep, component string, now time.Time) (logging.Filter, error) {
	filter := logging.Filter{Component: component}

	if level != "" {
		if !logging.IsValidLevel(level) {
			return filter, fmt.Errorf("invalid level %q: use one of %s", level, strings.Join(logging.ValidLevels(), ", "))
		}
		filter.MinLevel = logging.ParseLevel(level)
	}

	if since != "" {
		duration, err := time.ParseDuration(since)
		if err != nil {
			return filter, fmt.Errorf("invalid duration format: %w", err)
		}
		filter.Since = now.Add(-duration)
	}

	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return filter, fmt.Errorf("invalid grep pattern: %w", err)
		}
		filter.Pattern = re
	}

	return filter, nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	logPath := filepath.Join(appconfig.Get().Logging.Dir, logging.LogFileName)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logPath); os.IsNotExist(err) && !logsFollow {
		fmt.Fprintln(out, "No logs found.")
		fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}

	filter, err := buildFilter(logsLevel, logsSince, logsGrep, logsComponent, time.Now())
	if err != nil {
		return err
	}

	if !logsFollow {
		return displayLogs(out, logPath, logsTail, filter)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if _, err := os.Stat(logPath); err == nil {
		if err := displayLogs(out, logPath, logsTail, filter); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Following logs... (Ctrl+C to stop)\n\n")
	return followLogs(ctx, out, logPath, filter)
}

// displayLogs prints the last tail entries of the log that pass filter
func displayLogs(out io.Writer, logPath string, tail int, filter logging.Filter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var entries []string
	err = logging.ScanEntries(file, filter, func(entry logging.Entry, raw string, ok bool) {
		if !ok {
			// If we can't parse as JSON, display raw line
			entries = append(entries, raw)
			return
		}
		entries = append(entries, formatLogEntry(entry))
	})
	if err != nil {
		return err
	}

	// Apply tail limit
	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}

	for _, entry := range entries {
		fmt.Fprintln(out, entry)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
	}
	return nil
}

// follower prints entries appended to a log file, reopening it when it
// is rotated away.
type follower struct {
	path    string
	filter  logging.Filter
	out     io.Writer
	file    *os.File
	reader  *bufio.Reader
	partial string
}

// open (re)opens the log, at its end when seekEnd is set.
func (f *follower) open(seekEnd bool) error {
	f.close()
	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		// Not created yet; a Create event reopens it.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if seekEnd {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to seek to end: %w", err)
		}
	}
	f.file = file
	f.reader = bufio.NewReader(file)
	f.partial = ""
	return nil
}

func (f *follower) close() {
	if f.file != nil {
		_ = f.file.Close()
		f.file = nil
		f.reader = nil
	}
}

// drain prints every complete line available. A trailing partial line is
// kept until its newline arrives.
func (f *follower) drain() error {
	if f.reader == nil {
		return nil
	}
	for {
		chunk, err := f.reader.ReadString('\n')
		f.partial += chunk
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading log file: %w", err)
		}

		line := strings.TrimSpace(f.partial)
		f.partial = ""
		if line == "" {
			continue
		}
		entry, err := logging.ParseEntry(line)
		if err != nil {
			fmt.Fprintln(f.out, line)
			continue
		}
		if f.filter.Match(entry) {
			fmt.Fprintln(f.out, formatLogEntry(entry))
		}
	}
}

// followLogs implements tail -f behavior for the log file until ctx ends.
// It watches the directory so rotation, which renames the file and
// creates a new one, is picked up.
func followLogs(ctx context.Context, out io.Writer, logPath string, filter logging.Filter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to watch log: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	f := &follower{path: logPath, filter: filter, out: out}
	defer f.close()
	if err := f.open(true); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(logPath) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				// Rotated: print what is left of the old file, then start
				// the new one from the top.
				if err := f.drain(); err != nil {
					return err
				}
				if err := f.open(false); err != nil {
					return err
				}
				if err := f.drain(); err != nil {
					return err
				}
			case ev.Has(fsnotify.Write):
				if f.reader == nil {
					if err := f.open(false); err != nil {
						return err
					}
				}
				if err := f.drain(); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching log: %w", err)
		}
	}
}
