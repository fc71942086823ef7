package alarm

import "sync"

const DefaultHistorySize = 100

// History keeps the most recent alarm lines, dropping the oldest once full.
type History struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{lines: make([]string, size)}
}

func (h *History) Add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lines[h.next] = line
	h.next = (h.next + 1) % len(h.lines)
	if h.next == 0 {
		h.full = true
	}
}

// Lines returns the retained lines oldest first.
func (h *History) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		out := make([]string, h.next)
		copy(out, h.lines[:h.next])
		return out
	}
	out := make([]string, 0, len(h.lines))
	out = append(out, h.lines[h.next:]...)
	return append(out, h.lines[:h.next]...)
}
