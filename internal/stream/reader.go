// Package stream turns a child's output stream into classified lines.
//
// A Reader pulls bytes from one stream, assembles complete lines, decodes
// their styling, classifies them and inserts them into a Sink. One Reader
// runs per stream so a stalled stdout consumer never stops stderr from
// being drained, and vice versa.
package stream

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/prefixview/internal/bucket"
	"github.com/Iron-Ham/prefixview/internal/errors"
	"github.com/Iron-Ham/prefixview/internal/logging"
	"github.com/Iron-Ham/prefixview/internal/parse"
	"golang.org/x/sys/unix"
)

const (
	// DefaultMaxLineBytes bounds how much of an unterminated line is
	// buffered before it is emitted as a line of its own.
	DefaultMaxLineBytes = 64 * 1024

	// DefaultPollInterval is the bounded wait of a single read on streams
	// that support read deadlines.
	DefaultPollInterval = 50 * time.Millisecond

	readChunkSize = 32 * 1024
)

// Sink receives classified lines. *bucket.Store implements it.
type Sink interface {
	Insert(line bucket.Line, c parse.Classification) (string, bucket.Category)
}

// deadliner is implemented by *os.File for pipes and pseudo-terminals.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Config configures a Reader.
type Config struct {
	Stream     bucket.Stream
	Classifier *parse.Classifier
	Sink       Sink
	Logger     *logging.Logger

	// MaxLineBytes splits lines longer than this. Zero means DefaultMaxLineBytes.
	MaxLineBytes int
	// PollInterval is the per-read wait on deadline capable streams.
	// Zero means DefaultPollInterval.
	PollInterval time.Duration
	// OnLine is called after each insert, outside any lock.
	OnLine func(key string, cat bucket.Category)
	// Now returns the arrival timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Reader assembles and routes the lines of one stream.
type Reader struct {
	cfg     Config
	logger  *logging.Logger
	pending []byte
	seq     uint64
	lines   atomic.Uint64
}

// New creates a Reader.
func New(cfg Config) *Reader {
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Reader{
		cfg:    cfg,
		logger: logger.WithComponent("stream").With("stream", cfg.Stream.String()),
	}
}

// Lines returns how many lines this reader has emitted so far.
func (r *Reader) Lines() uint64 {
	return r.lines.Load()
}

// Run reads src until it closes, ctx is canceled, or a read fails.
// A closed stream (EOF, or EIO from a pseudo-terminal whose child has
// exited) is a normal end and returns nil after flushing any unterminated
// trailing bytes as a final line. A read failure is logged, flushed the
// same way, and returned as a *errors.StreamError.
func (r *Reader) Run(ctx context.Context, src io.Reader) error {
	dl, useDeadline := src.(deadliner)
	buf := make([]byte, readChunkSize)

	for {
		if ctx.Err() != nil {
			r.flush()
			r.logger.Debug("reader canceled", "lines", r.Lines())
			return nil
		}

		if useDeadline {
			if err := dl.SetReadDeadline(time.Now().Add(r.cfg.PollInterval)); err != nil {
				// Regular files and some pipes are not pollable; fall back
				// to plain blocking reads.
				useDeadline = false
			}
		}

		n, err := src.Read(buf)
		if n > 0 {
			r.feed(buf[:n])
		}
		if err == nil {
			continue
		}

		switch {
		case errors.Is(err, os.ErrDeadlineExceeded):
			// No data within the poll interval.
			continue
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed), errors.Is(err, unix.EIO):
			r.flush()
			r.logger.Debug("stream closed", "lines", r.Lines())
			return nil
		default:
			r.flush()
			r.logger.Error("stream read failed", "error", err)
			return errors.NewStreamError(r.cfg.Stream.String(), err)
		}
	}
}

// feed appends data to the pending buffer and emits every complete line.
func (r *Reader) feed(data []byte) {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			r.pending = append(r.pending, data...)
			for len(r.pending) >= r.cfg.MaxLineBytes {
				r.emit(r.pending[:r.cfg.MaxLineBytes])
				r.pending = r.pending[r.cfg.MaxLineBytes:]
			}
			return
		}

		if len(r.pending) > 0 {
			r.pending = append(r.pending, data[:i]...)
			r.emit(r.pending)
			r.pending = r.pending[:0]
		} else {
			r.emit(data[:i])
		}
		data = data[i+1:]
	}
}

// flush emits any unterminated trailing bytes.
func (r *Reader) flush() {
	if len(r.pending) == 0 {
		return
	}
	r.emit(r.pending)
	r.pending = nil
}

// emit builds an immutable Line from raw (which it copies) and hands it
// to the sink.
func (r *Reader) emit(raw []byte) {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	owned := make([]byte, len(raw))
	copy(owned, raw)

	text, spans := Decode(owned)
	r.seq++
	line := bucket.Line{
		Raw:      owned,
		Text:     text,
		Spans:    spans,
		Stream:   r.cfg.Stream,
		Seq:      r.seq,
		Time:     r.cfg.Now(),
		HasError: r.cfg.Classifier.IsError(text),
	}

	key, cat := r.cfg.Sink.Insert(line, r.cfg.Classifier.Classify(text))
	r.lines.Add(1)
	if r.cfg.OnLine != nil {
		r.cfg.OnLine(key, cat)
	}
}
