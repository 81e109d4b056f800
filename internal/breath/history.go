package breath

// History is a fixed-capacity ring of recent cycles; the oldest entry
// is evicted when a new one arrives at capacity.
type History struct {
	buf   []Cycle
	start int
	size  int
}

// NewHistory creates a ring holding at most capacity cycles.
// A non-positive capacity falls back to HistorySize.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistorySize
	}
	return &History{buf: make([]Cycle, capacity)}
}

// Push appends c, evicting the oldest cycle when full.
func (h *History) Push(c Cycle) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = c
		h.size++
		return
	}
	h.buf[h.start] = c
	h.start = (h.start + 1) % len(h.buf)
}

// Cycles returns a copy of the retained cycles, oldest first.
func (h *History) Cycles() []Cycle {
	out := make([]Cycle, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Len returns the number of retained cycles.
func (h *History) Len() int { return h.size }

// Last returns the most recent cycle, if any.
func (h *History) Last() (Cycle, bool) {
	if h.size == 0 {
		return Cycle{}, false
	}
	return h.buf[(h.start+h.size-1)%len(h.buf)], true
}

// Clear drops every retained cycle.
func (h *History) Clear() {
	h.start, h.size = 0, 0
}
