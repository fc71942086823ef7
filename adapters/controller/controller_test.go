package controller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/sensor-watch/service/frame"
)

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Process(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if line == "bad" {
		return errors.New("bad line")
	}
	return nil
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

type counter struct {
	mu sync.Mutex
	n  map[string]float64
}

func (c *counter) IncCounter(name string, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		c.n = map[string]float64{}
	}
	c.n[name] += v
}

func (c *counter) SetGauge(string, float64) {}

type closingReader struct {
	io.Reader
	closed chan struct{}
}

func (c *closingReader) Close() error {
	close(c.closed)
	return nil
}

func TestRunProcessesEveryFrame(t *testing.T) {
	var logs bytes.Buffer
	rec := &recorder{}
	c := NewController(strings.NewReader("one\nbad\nthree\n"), rec, zerolog.New(&logs), nil, frame.WithReadTimeout(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	c.Start(ctx, wg)

	assert.Eventually(t, func() bool { return len(rec.get()) == 3 }, time.Second, time.Millisecond)
	cancel()
	wg.Wait()

	assert.Equal(t, []string{"one", "bad", "three"}, rec.get())
	assert.Contains(t, logs.String(), `"processed":3`)
	assert.Contains(t, logs.String(), `"rejected":1`)
}

func TestNilSourceKeepsRunning(t *testing.T) {
	rec := &recorder{}
	c := NewController(nil, rec, zerolog.Nop(), nil, frame.WithReadTimeout(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not observe cancellation")
	}
	assert.Empty(t, rec.get())
}

func TestStartClosesSourceOnCancel(t *testing.T) {
	src := &closingReader{Reader: strings.NewReader(""), closed: make(chan struct{})}
	c := NewController(src, &recorder{}, zerolog.Nop(), nil, frame.WithReadTimeout(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	c.Start(ctx, wg)
	cancel()
	wg.Wait()

	select {
	case <-src.closed:
	default:
		t.Fatal("source was not closed")
	}
}

func TestFrameErrorsAreCounted(t *testing.T) {
	m := &counter{}
	rec := &recorder{}
	c := NewController(strings.NewReader("\xff\nok\n"), rec, zerolog.Nop(), m, frame.WithReadTimeout(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	c.Start(ctx, wg)
	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, time.Millisecond)
	cancel()
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 1.0, m.n["sensorwatch_frame_errors_total"])
}

// stuckReader blocks in Read until release is closed, like a read(2) on a
// terminal that nobody types into.
type stuckReader struct {
	release chan struct{}
}

func (s *stuckReader) Read([]byte) (int, error) {
	<-s.release
	return 0, io.EOF
}

func TestDetachedSourceStopsOnCancel(t *testing.T) {
	stuck := &stuckReader{release: make(chan struct{})}
	defer close(stuck.release)

	c := NewController(Detach(stuck), &recorder{}, zerolog.Nop(), nil, frame.WithReadTimeout(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	c.Start(ctx, wg)
	time.Sleep(10 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("controller stayed blocked on a stuck source")
	}
}

func TestDetachedSourceDeliversFrames(t *testing.T) {
	rec := &recorder{}
	c := NewController(Detach(strings.NewReader("a\nb\n")), rec, zerolog.Nop(), nil, frame.WithReadTimeout(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	c.Start(ctx, wg)

	assert.Eventually(t, func() bool { return len(rec.get()) == 2 }, time.Second, time.Millisecond)
	cancel()
	wg.Wait()

	assert.Equal(t, []string{"a", "b"}, rec.get())
}
