// Package series keeps a per-sensor rolling window of recent readings.
package series

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Go-routine-4595/sensor-watch/model"
)

const (
	DefaultWindow    = 20 * time.Second
	DefaultMaxPoints = 10000
)

type sample struct {
	ts    int64
	value float64
}

type window struct {
	mu     sync.RWMutex
	points []sample
}

// Buffer holds one window per sensor. Each window has its own lock, so a
// reader of one sensor never waits on writes to another.
//
// Eviction is measured from the just inserted timestamp and only walks the
// front of the window. Late points are appended as they arrive and may stay
// until they reach the front.
type Buffer struct {
	span      float64
	maxPoints int

	mu      sync.RWMutex
	windows map[string]*window
}

func NewBuffer(span time.Duration, maxPoints int) *Buffer {
	if span <= 0 {
		span = DefaultWindow
	}
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Buffer{
		span:      span.Seconds(),
		maxPoints: maxPoints,
		windows:   make(map[string]*window),
	}
}

func (b *Buffer) Window() time.Duration {
	return time.Duration(b.span * float64(time.Second))
}

// Insert appends a point and evicts what fell out of the window. Untimed points
// (timestamp <= 0) are not stored and Insert returns false.
func (b *Buffer) Insert(sensor string, timestamp int64, value float64) bool {
	var (
		w      *window
		cutoff float64
		drop   int
	)

	if timestamp <= 0 {
		return false
	}

	w = b.window(sensor)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.points = append(w.points, sample{ts: timestamp, value: value})

	cutoff = float64(timestamp) - b.span
	for drop < len(w.points) && float64(w.points[drop].ts) < cutoff {
		drop++
	}
	if over := len(w.points) - drop - b.maxPoints; over > 0 {
		drop += over
	}
	w.points = w.points[drop:]

	if len(w.points) == 0 || len(w.points) > b.maxPoints {
		panic(fmt.Sprintf("series: window %q corrupted, %d points with ceiling %d", sensor, len(w.points), b.maxPoints))
	}
	return true
}

// Snapshot returns the window of sensor with timestamps rewritten relative to
// the oldest retained point. It returns nil for a sensor never inserted.
func (b *Buffer) Snapshot(sensor string) []model.Point {
	var (
		w   *window
		ok  bool
		out []model.Point
	)

	b.mu.RLock()
	w, ok = b.windows[sensor]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.points) == 0 {
		return []model.Point{}
	}

	out = make([]model.Point, len(w.points))
	t0 := w.points[0].ts
	for i, p := range w.points {
		out[i] = model.Point{Offset: float64(p.ts - t0), Value: p.value}
	}
	return out
}

func (b *Buffer) Len(sensor string) int {
	b.mu.RLock()
	w, ok := b.windows[sensor]
	b.mu.RUnlock()
	if !ok {
		return 0
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.points)
}

// Sensors lists every sensor with a window, sorted by name.
func (b *Buffer) Sensors() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.windows))
	for name := range b.windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Buffer) window(sensor string) *window {
	b.mu.RLock()
	w, ok := b.windows[sensor]
	b.mu.RUnlock()
	if ok {
		return w
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok = b.windows[sensor]; ok {
		return w
	}
	w = &window{}
	b.windows[sensor] = w
	return w
}
