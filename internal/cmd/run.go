package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/creack/pty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	appconfig "github.com/Iron-Ham/prefixview/internal/config"
	"github.com/Iron-Ham/prefixview/internal/errors"
	"github.com/Iron-Ham/prefixview/internal/logging"
	"github.com/Iron-Ham/prefixview/internal/session"
	"github.com/Iron-Ham/prefixview/internal/tui"
	"github.com/Iron-Ham/prefixview/internal/tui/keymap"
)

func runDashboard(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.NewConfigError("nothing to run", errors.ErrEmptyCommand)
	}

	if err := applyDurationFlags(viper.GetViper(), cmd.Flags()); err != nil {
		return errors.NewConfigError("invalid --grace-period", err).WithField("process.grace_period_ms")
	}
	cfg, err := appconfig.Load()
	if err != nil {
		return errors.NewConfigError("invalid configuration", err)
	}

	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return errors.NewConfigError("the dashboard needs a terminal", errors.ErrNotTerminal)
	}
	width, height, err := term.GetSize(fd)
	if err != nil {
		return errors.NewConfigError("reading terminal size", errors.Join(errors.ErrNotTerminal, err))
	}

	keys := keymap.DefaultKeymap()
	if err := keys.ApplyOverrides(cfg.TUI.Keys); err != nil {
		return errors.NewConfigError("invalid key bindings", err).WithField("tui.keys")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()
	logger.Info("starting", "command", args, "pattern", cfg.Parse.Pattern, "pty", cfg.Process.PTY)

	sess, err := session.Start(sessionConfig(cfg, args, width, height, logger))
	if err != nil {
		logger.Error("start failed", "error", err)
		return err
	}

	app := tui.New(sess, tui.Options{
		Keymap:       keys,
		TickInterval: cfg.TUI.TickInterval(),
		SidebarWidth: cfg.TUI.SidebarWidth,
		QuitOnExit:   cfg.TUI.QuitOnExit,
		ExportDir:    cfg.TUI.ExportDir,
		Editor:       os.Getenv("EDITOR"),
		Logger:       logger,
	})
	_, runErr := app.Run()

	status, shutdownErr := sess.Shutdown(cfg.Process.GracePeriod())
	if shutdownErr != nil {
		logger.Warn("shutdown incomplete", "error", shutdownErr)
		reportShutdown(cmd.ErrOrStderr(), shutdownErr)
	}
	logger.Info("finished", "status", status.String(), "exit_code", status.HostCode())

	if runErr != nil {
		return errors.Wrap(runErr, "dashboard failed")
	}
	if code := status.HostCode(); code != 0 {
		return &errors.ExitError{Code: code}
	}
	return nil
}

// reportShutdown tells the user, once the terminal is restored, that the
// command may still be running.
func reportShutdown(w io.Writer, err error) {
	if session.IsTerminationWarning(err) {
		fmt.Fprintf(w, "prefixview: %s: %v\n", errors.GetSeverity(err), err)
	}
}

// sessionConfig builds the session settings for a terminal of the given
// size. The child's pseudo-terminal matches the output pane.
func sessionConfig(cfg *appconfig.Config, args []string, width, height int, logger *logging.Logger) session.Config {
	sidebar := tui.GetEffectiveSidebarWidth(cfg.TUI.SidebarWidth, width)
	cols, rows := tui.CalculateContentDimensions(sidebar, width, height)

	return session.Config{
		Command:      args,
		Shell:        cfg.Process.Shell,
		PTY:          cfg.Process.PTY,
		Size:         &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)},
		StopSignal:   cfg.Process.Signal(),
		Pattern:      cfg.Parse.Pattern,
		ErrorPattern: cfg.Parse.ErrorPattern,
		Scrollback:   cfg.Buffer.Scrollback,
		MaxLineBytes: cfg.Buffer.MaxLineBytes,
		Logger:       logger,
	}
}

// newLogger opens the debug log, or returns a no-op logger when disabled.
func newLogger(cfg *appconfig.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewRotatingLogger(cfg.Logging.Dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, errors.NewConfigError("opening debug log", err).WithField("logging.dir")
	}
	return logger, nil
}
