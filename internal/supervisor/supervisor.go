// Package supervisor runs the wrapped child process.
//
// The child is started in its own process group with stdout and stderr on
// separate pipes (or stdout on a pseudo-terminal). Termination signals the
// whole group: the configured stop signal first, then SIGKILL once the
// grace period has elapsed.
package supervisor

import (
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Iron-Ham/prefixview/internal/errors"
	"github.com/Iron-Ham/prefixview/internal/logging"
	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// DefaultGracePeriod is how long Terminate waits after the stop signal
// before escalating to SIGKILL.
const DefaultGracePeriod = 1500 * time.Millisecond

const (
	// reapTimeout bounds the wait for the child after SIGKILL.
	reapTimeout = 2 * time.Second

	groupPollInterval = 50 * time.Millisecond
)

// Config describes the child to run.
type Config struct {
	// Command is the program and its arguments.
	Command []string
	// Shell, when set, runs Command joined by spaces through "Shell -c".
	Shell string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is the child environment. Nil inherits the parent's.
	Env []string
	// PTY attaches stdout to a pseudo-terminal. Stderr stays a pipe.
	PTY bool
	// Size is the initial pseudo-terminal size.
	Size *pty.Winsize
	// StopSignal is the first signal Terminate sends. Zero means SIGTERM.
	StopSignal syscall.Signal
	Logger     *logging.Logger
}

// Supervisor owns one running child.
type Supervisor struct {
	cmd        *exec.Cmd
	pid        int
	args       []string
	stdout     *os.File
	stderr     *os.File
	ptmx       *os.File
	stopSignal syscall.Signal
	logger     *logging.Logger

	done      chan struct{}
	status    ExitStatus
	escalated atomic.Bool

	termMu     sync.Mutex
	stdoutOnce sync.Once
	stderrOnce sync.Once
}

// Start spawns the child. An empty command or a spawn failure is returned
// as a fatal *errors.ConfigError.
func Start(cfg Config) (*Supervisor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithComponent("supervisor")

	args := buildArgs(cfg.Command, cfg.Shell)
	if len(args) == 0 {
		return nil, errors.NewConfigError("no command given", errors.ErrEmptyCommand).
			WithField("command")
	}

	stopSignal := cfg.StopSignal
	if stopSignal == 0 {
		stopSignal = syscall.SIGTERM
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = cfg.Env

	s := &Supervisor{
		cmd:        cmd,
		args:       args,
		stopSignal: stopSignal,
		logger:     logger,
		done:       make(chan struct{}),
	}

	// Write ends handed to the child, closed in the parent after start.
	var childEnds []*os.File
	closeChildEnds := func() {
		for _, f := range childEnds {
			_ = f.Close()
		}
	}

	errR, errW, err := os.Pipe()
	if err != nil {
		return nil, spawnError(args[0], err)
	}
	s.stderr = errR
	childEnds = append(childEnds, errW)
	cmd.Stderr = errW

	if cfg.PTY {
		ptmx, tty, err := pty.Open()
		if err != nil {
			closeChildEnds()
			_ = errR.Close()
			return nil, spawnError(args[0], err)
		}
		if cfg.Size != nil {
			if err := pty.Setsize(ptmx, cfg.Size); err != nil {
				logger.Warn("failed to size pseudo-terminal", "error", err)
			}
		}
		s.ptmx = ptmx
		s.stdout = ptmx
		childEnds = append(childEnds, tty)
		cmd.Stdin = tty
		cmd.Stdout = tty
		// A new session is also a new process group led by the child.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}
	} else {
		outR, outW, err := os.Pipe()
		if err != nil {
			closeChildEnds()
			_ = errR.Close()
			return nil, spawnError(args[0], err)
		}
		s.stdout = outR
		childEnds = append(childEnds, outW)
		cmd.Stdout = outW
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if err := cmd.Start(); err != nil {
		closeChildEnds()
		_ = s.Close()
		logger.Error("failed to start child", "command", args[0], "error", err)
		return nil, spawnError(args[0], err)
	}
	closeChildEnds()

	s.pid = cmd.Process.Pid
	s.logger = logger.With("pid", s.pid)
	s.logger.Info("child started",
		"command", strings.Join(args, " "),
		"pty", cfg.PTY,
	)

	go s.wait()
	return s, nil
}

func buildArgs(command []string, shell string) []string {
	if len(command) == 0 {
		return nil
	}
	if shell != "" {
		return []string{shell, "-c", strings.Join(command, " ")}
	}
	return command
}

func spawnError(program string, cause error) error {
	return errors.NewConfigError("command could not be started", errors.Join(errors.ErrSpawnFailed, cause)).
		WithField("command").
		WithValue(program)
}

func (s *Supervisor) wait() {
	err := s.cmd.Wait()
	s.status = statusFromWait(err, s.escalated.Load())
	s.logger.Info("child exited",
		"status", s.status.String(),
		"code", s.status.HostCode(),
	)
	close(s.done)
}

// PID returns the child's process id, which is also its process group id.
func (s *Supervisor) PID() int {
	return s.pid
}

// Args returns the argv the child was started with.
func (s *Supervisor) Args() []string {
	return s.args
}

// Stdout returns the read end of the child's stdout.
func (s *Supervisor) Stdout() *os.File {
	return s.stdout
}

// Stderr returns the read end of the child's stderr.
func (s *Supervisor) Stderr() *os.File {
	return s.stderr
}

// Done is closed once the child has exited and been reaped.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Exited reports the exit status without blocking.
func (s *Supervisor) Exited() (ExitStatus, bool) {
	select {
	case <-s.done:
		return s.status, true
	default:
		return ExitStatus{}, false
	}
}

// Wait blocks until the child exits.
func (s *Supervisor) Wait() ExitStatus {
	<-s.done
	return s.status
}

// Resize changes the pseudo-terminal size. It is a no-op without a PTY.
func (s *Supervisor) Resize(rows, cols int) error {
	if s.ptmx == nil || rows <= 0 || cols <= 0 {
		return nil
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Terminate stops the child's process group. It sends the stop signal,
// waits up to grace for the child to exit, then sends SIGKILL to whatever
// remains of the group. Calling it after the child has exited only sweeps
// leftover group members. The returned *errors.TerminationError is a
// warning: the caller continues its teardown either way.
func (s *Supervisor) Terminate(grace time.Duration) error {
	s.termMu.Lock()
	defer s.termMu.Unlock()

	if err := s.signalGroup(s.stopSignal); err != nil && !errors.Is(err, unix.ESRCH) {
		s.logger.Warn("failed to send stop signal",
			"signal", signalName(s.stopSignal),
			"error", err,
		)
	}

	deadline := time.Now().Add(grace)
	if s.waitDone(grace) && s.waitGroupExit(deadline) {
		return nil
	}

	s.logger.Warn("grace period elapsed, killing process group", "grace", grace)
	s.escalated.Store(true)
	if err := s.signalGroup(syscall.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		s.logger.Error("failed to kill process group", "error", err)
		return errors.NewTerminationError("kill failed", errors.Join(errors.ErrKillFailed, err)).
			WithPID(s.pid).
			WithSignal(syscall.SIGKILL)
	}

	if !s.waitDone(reapTimeout) {
		return errors.NewTerminationError("process still running after kill", errors.ErrProcessLingering).
			WithPID(s.pid).
			WithSignal(syscall.SIGKILL)
	}
	return nil
}

// signalGroup sends sig to every process in the child's group.
func (s *Supervisor) signalGroup(sig syscall.Signal) error {
	if s.pid <= 0 {
		return errors.ErrNotStarted
	}
	return unix.Kill(-s.pid, sig)
}

// groupAlive reports whether any process in the group still exists.
func (s *Supervisor) groupAlive() bool {
	return s.pid > 0 && unix.Kill(-s.pid, 0) == nil
}

// waitGroupExit polls until no process in the group remains or deadline
// passes. It reports whether the group is gone.
func (s *Supervisor) waitGroupExit(deadline time.Time) bool {
	if !s.groupAlive() {
		return true
	}

	ticker := time.NewTicker(groupPollInterval)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		<-ticker.C
		if !s.groupAlive() {
			return true
		}
	}
	return !s.groupAlive()
}

// waitDone waits up to timeout for the child to exit.
func (s *Supervisor) waitDone(timeout time.Duration) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

// Close releases the parent's read ends. Call it after the stream readers
// have finished.
func (s *Supervisor) Close() error {
	return errors.Join(s.CloseStdout(), s.CloseStderr())
}

// CloseStdout releases the stdout read end. Later calls are no-ops.
func (s *Supervisor) CloseStdout() error {
	return closeOnce(&s.stdoutOnce, s.stdout)
}

// CloseStderr releases the stderr read end. Later calls are no-ops.
func (s *Supervisor) CloseStderr() error {
	return closeOnce(&s.stderrOnce, s.stderr)
}

func closeOnce(once *sync.Once, f *os.File) error {
	var err error
	once.Do(func() {
		if f != nil {
			err = f.Close()
		}
	})
	return err
}
