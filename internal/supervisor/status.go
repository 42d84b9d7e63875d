package supervisor

import (
	"fmt"
	"os/exec"
	"syscall"

	"github.com/Iron-Ham/prefixview/internal/errors"
	"golang.org/x/sys/unix"
)

// ExitStatus describes how the child ended.
type ExitStatus struct {
	// Code is the exit code, or -1 when the child was ended by a signal or
	// could not be waited on.
	Code int
	// Signal is the terminating signal, zero for a normal exit.
	Signal syscall.Signal
	// Killed is set when the child died from the SIGKILL escalation.
	Killed bool
	// Err holds a wait failure that is not an exit status.
	Err error
}

// String renders the status for the dashboard header.
func (s ExitStatus) String() string {
	switch {
	case s.Err != nil:
		return fmt.Sprintf("wait failed: %v", s.Err)
	case s.Signal != 0:
		return "killed by " + signalName(s.Signal)
	default:
		return fmt.Sprintf("exited (code %d)", s.Code)
	}
}

// HostCode is the exit code prefixview itself reports: the child's code,
// 128 plus the signal number for a signaled child, or 1 when the child
// could not be waited on.
func (s ExitStatus) HostCode() int {
	switch {
	case s.Err != nil:
		return 1
	case s.Signal != 0:
		return 128 + int(s.Signal)
	default:
		return s.Code
	}
}

// statusFromWait converts the result of exec.Cmd.Wait.
func statusFromWait(err error, escalated bool) ExitStatus {
	if err == nil {
		return ExitStatus{Code: 0}
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ExitStatus{Code: -1, Err: err}
	}

	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if ok && ws.Signaled() {
		sig := ws.Signal()
		return ExitStatus{
			Code:   -1,
			Signal: sig,
			Killed: escalated && sig == syscall.SIGKILL,
		}
	}
	return ExitStatus{Code: exitErr.ExitCode()}
}

func signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(sig))
}
