// Package session owns one run of prefixview: the child process, the two
// stream readers draining it, and the bucket store they fill. The
// dashboard holds a *Session and only ever calls its methods; the child
// handle never leaves the supervisor.
package session

import (
	"context"
	"io"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/prefixview/internal/bucket"
	"github.com/Iron-Ham/prefixview/internal/errors"
	"github.com/Iron-Ham/prefixview/internal/logging"
	"github.com/Iron-Ham/prefixview/internal/parse"
	"github.com/Iron-Ham/prefixview/internal/stream"
	"github.com/Iron-Ham/prefixview/internal/supervisor"
)

// DefaultDrainTimeout bounds how long Shutdown waits for the readers to
// see end of stream after the child is gone. Survivors that inherited the
// child's output keep the streams open; the readers are canceled then.
const DefaultDrainTimeout = 2 * time.Second

// Config describes a session.
type Config struct {
	Command    []string
	Shell      string
	PTY        bool
	Size       *pty.Winsize
	StopSignal syscall.Signal

	Pattern      string
	ErrorPattern string
	Scrollback   int
	MaxLineBytes int

	// PollInterval is the reader's bounded read wait. Zero uses the
	// stream package default.
	PollInterval time.Duration
	// DrainTimeout overrides DefaultDrainTimeout.
	DrainTimeout time.Duration

	Logger *logging.Logger
}

// Session is the state of one run.
type Session struct {
	store  *bucket.Store
	sup    *supervisor.Supervisor
	logger *logging.Logger
	drain  time.Duration

	stdout *stream.Reader
	stderr *stream.Reader

	updates     chan struct{}
	cancel      context.CancelFunc
	readersDone chan struct{}

	mu       sync.Mutex
	warnings []error

	shutdownOnce sync.Once
	shutdownErr  error
}

// Start validates the grouping pattern, spawns the child and begins
// draining both of its streams. Every error it returns is fatal and
// happens before any output is captured.
func Start(cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	classifier, err := parse.Compile(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	classifier, err = classifier.WithErrorPattern(cfg.ErrorPattern)
	if err != nil {
		return nil, err
	}

	sup, err := supervisor.Start(supervisor.Config{
		Command:    cfg.Command,
		Shell:      cfg.Shell,
		PTY:        cfg.PTY,
		Size:       cfg.Size,
		StopSignal: cfg.StopSignal,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	drain := cfg.DrainTimeout
	if drain <= 0 {
		drain = DefaultDrainTimeout
	}

	s := &Session{
		store:       bucket.NewStore(cfg.Scrollback),
		sup:         sup,
		logger:      logger.WithComponent("session"),
		drain:       drain,
		updates:     make(chan struct{}, 1),
		readersDone: make(chan struct{}),
	}

	newReader := func(st bucket.Stream) *stream.Reader {
		return stream.New(stream.Config{
			Stream:       st,
			Classifier:   classifier,
			Sink:         s.store,
			Logger:       logger,
			MaxLineBytes: cfg.MaxLineBytes,
			PollInterval: cfg.PollInterval,
			OnLine:       func(string, bucket.Category) { s.notify() },
		})
	}
	s.stdout = newReader(bucket.StreamStdout)
	s.stderr = newReader(bucket.StreamStderr)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	var wg conc.WaitGroup
	wg.Go(func() { s.runReader(ctx, s.stdout, sup.Stdout(), sup.CloseStdout) })
	wg.Go(func() { s.runReader(ctx, s.stderr, sup.Stderr(), sup.CloseStderr) })
	go func() {
		wg.Wait()
		close(s.readersDone)
		s.notify()
	}()

	go func() {
		<-sup.Done()
		status := sup.Wait()
		s.logger.Info("child exited", "status", status.String(), "code", status.HostCode())
		s.notify()
	}()

	s.logger.Info("session started",
		"pid", sup.PID(),
		"args", sup.Args(),
		"pattern", classifier.Pattern(),
		"scrollback", s.store.Limit(),
		"pty", cfg.PTY,
	)
	return s, nil
}

// runReader drains one stream. A reader that stops on a read error
// releases its read end so the child sees a broken pipe instead of
// blocking on a full one.
func (s *Session) runReader(ctx context.Context, r *stream.Reader, src io.Reader, closeSrc func() error) {
	if err := r.Run(ctx, src); err != nil {
		s.addWarning(err)
		if cerr := closeSrc(); cerr != nil {
			s.logger.Debug("closing failed stream", "error", cerr)
		}
	}
}

// notify records that something changed. Notifications coalesce: at most
// one is pending no matter how many lines arrive before it is consumed.
func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Updates delivers a value after new lines arrive, the child exits, or
// both readers finish.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Store returns the bucket store the readers fill.
func (s *Session) Store() *bucket.Store {
	return s.store
}

// PID returns the child's process id, which is also its process group id.
func (s *Session) PID() int {
	return s.sup.PID()
}

// Args returns the argv the child was started with.
func (s *Session) Args() []string {
	return s.sup.Args()
}

// Exited reports the child's exit status without blocking.
func (s *Session) Exited() (supervisor.ExitStatus, bool) {
	return s.sup.Exited()
}

// Done is closed when the child exits.
func (s *Session) Done() <-chan struct{} {
	return s.sup.Done()
}

// ReadersDone is closed when both streams have been fully drained.
func (s *Session) ReadersDone() <-chan struct{} {
	return s.readersDone
}

// Resize forwards a new content size to the child's pseudo-terminal.
func (s *Session) Resize(rows, cols int) {
	if err := s.sup.Resize(rows, cols); err != nil {
		s.logger.Debug("resize failed", "rows", rows, "cols", cols, "error", err)
	}
}

// Warnings returns the non-fatal problems seen so far, oldest first.
func (s *Session) Warnings() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.warnings))
	copy(out, s.warnings)
	return out
}

func (s *Session) addWarning(err error) {
	s.mu.Lock()
	s.warnings = append(s.warnings, err)
	s.mu.Unlock()
	s.notify()
}

// Shutdown stops the child (stop signal, grace period, then SIGKILL),
// waits for the readers to drain, and releases the streams. It runs once;
// later calls return the first result. A termination failure is recorded
// as a warning and returned, but teardown always completes.
func (s *Session) Shutdown(grace time.Duration) (supervisor.ExitStatus, error) {
	s.shutdownOnce.Do(func() {
		s.logger.Info("shutting down", "grace_period", grace.String())

		if err := s.sup.Terminate(grace); err != nil {
			s.logger.Warn("termination incomplete", "error", err)
			s.addWarning(err)
			s.shutdownErr = err
		}

		timer := time.NewTimer(s.drain)
		select {
		case <-s.readersDone:
			timer.Stop()
		case <-timer.C:
			s.logger.Warn("streams still open after child exit, abandoning reads",
				"drain_timeout", s.drain.String())
			s.cancel()
			// Closing the read ends unblocks a reader stuck in Read.
			s.closeStreams()
		}
		s.cancel()
		<-s.readersDone
		s.closeStreams()

		s.logger.Info("session finished",
			"stdout_lines", s.stdout.Lines(),
			"stderr_lines", s.stderr.Lines(),
			"groups", s.store.Len(),
		)
	})

	return finalStatus(s.sup.Exited()), s.shutdownErr
}

// finalStatus is the status reported after shutdown. A child that was
// never reaped has no real status, so it is reported as a failure.
func finalStatus(status supervisor.ExitStatus, exited bool) supervisor.ExitStatus {
	if !exited {
		return supervisor.ExitStatus{Code: -1, Err: errors.ErrProcessLingering}
	}
	return status
}

func (s *Session) closeStreams() {
	if err := s.sup.Close(); err != nil {
		s.logger.Debug("closing streams failed", "error", err)
	}
}

// IsTerminationWarning reports whether err came from a child that could
// not be stopped cleanly.
func IsTerminationWarning(err error) bool {
	return errors.Is(err, errors.ErrKillFailed) || errors.Is(err, errors.ErrProcessLingering)
}
