package console

import (
	"regexp"
	"sync"
)

// Match all ANSI/VT100 escape sequences including CSI, OSC, and other control sequences
var ansiEscapePattern = regexp.MustCompile(`\x1b(\[[0-9;?!]*[A-Za-z>hp]|\([B0]|[=>])`)

// StripANSI removes terminal escape sequences from a console line
func StripANSI(line string) string {
	return ansiEscapePattern.ReplaceAllString(line, "")
}

// RingBuffer implements a circular buffer for console output
type RingBuffer struct {
	lines    []string
	maxLines int
	current  int
	full     bool
	mu       sync.RWMutex
}

// NewRingBuffer creates a new ring buffer
func NewRingBuffer(maxLines int) *RingBuffer {
	return &RingBuffer{
		lines:    make([]string, maxLines),
		maxLines: maxLines,
	}
}

// Add adds a line to the buffer
func (rb *RingBuffer) Add(line string) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.lines[rb.current] = line
	rb.current = (rb.current + 1) % rb.maxLines

	if rb.current == 0 {
		rb.full = true
	}
}

// GetLines returns all lines in order (oldest to newest)
func (rb *RingBuffer) GetLines() []string {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if !rb.full {
		result := make([]string, rb.current)
		copy(result, rb.lines[:rb.current])
		return result
	}

	result := make([]string, rb.maxLines)
	for i := 0; i < rb.maxLines; i++ {
		result[i] = rb.lines[(rb.current+i)%rb.maxLines]
	}
	return result
}

// GetLast returns the last n lines
func (rb *RingBuffer) GetLast(n int) []string {
	lines := rb.GetLines()
	if n >= len(lines) {
		return lines
	}
	return lines[len(lines)-n:]
}

// Clear empties the buffer
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.lines = make([]string, rb.maxLines)
	rb.current = 0
	rb.full = false
}
