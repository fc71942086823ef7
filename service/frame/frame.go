// Package frame splits a byte stream into newline terminated text frames.
package frame

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"time"
	"unicode/utf8"
)

const (
	DefaultReadTimeout  = time.Second
	DefaultMaxFrameSize = 64 * 1024

	readChunk = 4096
)

var (
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrInvalidEncoding      = errors.New("frame is not valid utf-8")
	ErrFrameTooLong         = errors.New("frame exceeds maximum size")
)

type Option func(*Reader)

// WithReadTimeout sets how long Poll waits when there is no source to read from,
// and the back-off after a failed read.
func WithReadTimeout(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.readTimeout = d
		}
	}
}

func WithMaxFrameSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxFrame = n
		}
	}
}

// WithErrorHandler receives every dropped frame and transport error.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Reader) {
		if fn != nil {
			r.onError = fn
		}
	}
}

// Reader is not safe for concurrent use; one ingestion goroutine owns it.
type Reader struct {
	src         io.Reader
	readTimeout time.Duration
	maxFrame    int
	onError     func(error)

	chunk      []byte
	pending    []byte
	discarding bool
	closed     bool
	reported   bool
}

// NewReader wraps src. A nil src puts the reader in degraded mode from the start.
func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{
		src:         src,
		readTimeout: DefaultReadTimeout,
		maxFrame:    DefaultMaxFrameSize,
		onError:     func(error) {},
		chunk:       make([]byte, readChunk),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Degraded reports whether the reader has no usable source any more.
func (r *Reader) Degraded() bool {
	return r.src == nil || r.closed
}

// Poll performs at most one physical read and returns the frames it completed.
// In degraded mode it waits one read timeout and returns nothing.
func (r *Reader) Poll(ctx context.Context) []string {
	var (
		n     int
		err   error
		lines []string
	)

	if ctx.Err() != nil {
		return nil
	}

	if r.Degraded() {
		r.unavailable(nil)
		wait(ctx, r.readTimeout)
		return nil
	}

	n, err = r.src.Read(r.chunk)
	if n > 0 {
		lines = r.split(r.chunk[:n])
	}

	if err != nil {
		if isClosed(err) {
			r.closed = true
			r.pending = r.pending[:0]
			r.unavailable(err)
			return lines
		}
		r.onError(errors.Join(err, errors.New("frame read failed")))
		wait(ctx, r.readTimeout)
	}

	return lines
}

func (r *Reader) split(chunk []byte) []string {
	var lines []string

	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			r.buffer(chunk)
			break
		}
		r.buffer(chunk[:i])
		if line, ok := r.complete(); ok {
			lines = append(lines, line)
		}
		chunk = chunk[i+1:]
	}
	return lines
}

func (r *Reader) buffer(b []byte) {
	if r.discarding {
		return
	}
	if len(r.pending)+len(b) > r.maxFrame {
		r.pending = r.pending[:0]
		r.discarding = true
		r.onError(ErrFrameTooLong)
		return
	}
	r.pending = append(r.pending, b...)
}

func (r *Reader) complete() (string, bool) {
	var line []byte

	defer func() {
		r.pending = r.pending[:0]
		r.discarding = false
	}()

	if r.discarding {
		return "", false
	}

	line = bytes.TrimSpace(r.pending)
	if len(line) == 0 {
		return "", false
	}
	if !utf8.Valid(line) {
		r.onError(ErrInvalidEncoding)
		return "", false
	}
	return string(line), true
}

func (r *Reader) unavailable(cause error) {
	if r.reported {
		return
	}
	r.reported = true
	if cause == nil {
		r.onError(ErrTransportUnavailable)
		return
	}
	r.onError(errors.Join(ErrTransportUnavailable, cause))
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed)
}

func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
