package rotation

import (
	"sync"

	"vdelta-screener/internal/domain"
)

// History is a bounded FIFO of trailing flow-share observations, owned by
// the presentation layer for trend display. The rotation engine itself never
// retains state across calls. On overflow the oldest entry is evicted.
type History struct {
	mu      sync.Mutex
	max     int
	entries []domain.FlowShare
}

// NewHistory creates a history retaining at most max observations.
// A max of 0 or less falls back to 1.
func NewHistory(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{max: max}
}

// Push appends an observation, evicting the oldest when full.
func (h *History) Push(fs domain.FlowShare) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, fs)
	if len(h.entries) > h.max {
		h.entries = h.entries[1:]
	}
}

// Entries returns the retained observations, oldest first.
func (h *History) Entries() []domain.FlowShare {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.FlowShare, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of retained observations.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
