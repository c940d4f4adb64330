package history

import (
	"sync"
	"time"
)

// Record tracks the observed lifecycle milestones of one spawn attempt.
// Start is stamped at creation and never cleared; Kill, Exit and Close are
// write-once fields set in any order by asynchronous process events (a zero
// time means the milestone has not happened).
type Record struct {
	PID   string
	Start time.Time
	Kill  time.Time
	Exit  time.Time
	Close time.Time
}

// History is an append-only sequence of lifecycle records, one per spawn
// attempt over the supervisor's lifetime. It is not persisted across
// supervisor restarts. Only the newest record represents the current
// instance; the one before it matters only while a fresh spawn is waiting
// for the previous instance to finish closing.
type History struct {
	mu      sync.RWMutex
	records []Record
}

// New creates an empty history
func New() *History {
	return &History{}
}

// Append adds a record for a spawn attempt and returns its index. Event
// listeners hold on to this index instead of re-reading the last record, so
// late events from a stale instance can never touch a newer record.
func (h *History) Append(pid string, start time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, Record{PID: pid, Start: start})
	return len(h.records) - 1
}

// SetKill stamps the kill timestamp on the record at idx. Returns false if
// the index is out of range or the field was already set.
func (h *History) SetKill(idx int, t time.Time) bool {
	return h.setOnce(idx, t, func(r *Record) *time.Time { return &r.Kill })
}

// SetExit stamps the exit timestamp on the record at idx.
func (h *History) SetExit(idx int, t time.Time) bool {
	return h.setOnce(idx, t, func(r *Record) *time.Time { return &r.Exit })
}

// SetClose stamps the close timestamp on the record at idx.
func (h *History) SetClose(idx int, t time.Time) bool {
	return h.setOnce(idx, t, func(r *Record) *time.Time { return &r.Close })
}

func (h *History) setOnce(idx int, t time.Time, field func(*Record) *time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if idx < 0 || idx >= len(h.records) {
		return false
	}

	target := field(&h.records[idx])
	if !target.IsZero() {
		return false
	}

	*target = t
	return true
}

// Len returns the number of spawn attempts recorded
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Last returns a copy of the newest record
func (h *History) Last() (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}

// Get returns a copy of the record at idx
func (h *History) Get(idx int) (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if idx < 0 || idx >= len(h.records) {
		return Record{}, false
	}
	return h.records[idx], true
}

// Records returns a copy of all records, oldest first
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Uptime returns how long the current instance has been up, or zero if
// nothing was ever spawned.
func (h *History) Uptime(now time.Time) time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.records) == 0 {
		return 0
	}

	last := h.records[len(h.records)-1]
	if last.Start.IsZero() {
		return 0
	}
	return now.Sub(last.Start)
}

// Status projects the current status from the recorded lifecycle events
func (h *History) Status() Status {
	return Project(h.Records())
}
