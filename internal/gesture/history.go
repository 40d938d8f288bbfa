package gesture

// DefaultHistorySize is the number of recent samples kept for live
// circular detection.
const DefaultHistorySize = 60

// History is a fixed-capacity ring buffer of recent touch samples.
// Once full, each Push overwrites the oldest sample. Push never allocates.
type History struct {
	data []Point
	pos  int
	full bool
}

// NewHistory creates a History with the given capacity.
// A capacity below 1 falls back to DefaultHistorySize.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistorySize
	}
	return &History{
		data: make([]Point, capacity),
	}
}

// Push appends a sample, evicting the oldest one when the buffer is full.
func (h *History) Push(p Point) {
	h.data[h.pos] = p
	h.pos++
	if h.pos >= len(h.data) {
		h.pos = 0
		h.full = true
	}
}

// Len returns the number of samples currently held.
func (h *History) Len() int {
	if h.full {
		return len(h.data)
	}
	return h.pos
}

// Cap returns the fixed capacity.
func (h *History) Cap() int {
	return len(h.data)
}

// Last returns the most recent sample and false if the buffer is empty.
func (h *History) Last() (Point, bool) {
	if h.Len() == 0 {
		return Point{}, false
	}
	i := h.pos - 1
	if i < 0 {
		i = len(h.data) - 1
	}
	return h.data[i], true
}

// Reset empties the buffer without releasing its storage.
func (h *History) Reset() {
	h.pos = 0
	h.full = false
}

// Points returns the samples oldest first in a newly allocated slice.
func (h *History) Points() []Point {
	return h.AppendTo(make([]Point, 0, h.Len()))
}

// AppendTo appends the samples oldest first to dst and returns the
// extended slice. Callers reusing dst across calls avoid allocation.
func (h *History) AppendTo(dst []Point) []Point {
	if h.full {
		dst = append(dst, h.data[h.pos:]...)
	}
	return append(dst, h.data[:h.pos]...)
}
