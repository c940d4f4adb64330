package metrics

import (
	"log"
	"sync"
	"time"
)

// Snapshot captures the per-process counters for one interval
type Snapshot struct {
	IntervalStart time.Time `json:"interval_start"`
	StdoutBytes   int64     `json:"stdout_bytes"`
	StderrBytes   int64     `json:"stderr_bytes"`
	OOBMessages   int64     `json:"oob_messages"`
	CommandsSent  int64     `json:"commands_sent"`
}

// ProcessMetrics accumulates counters for the currently supervised process
// instance. Counters are reset on every spawn and summarized on close.
type ProcessMetrics struct {
	mu     sync.Mutex
	snap   Snapshot
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewProcessMetrics creates an empty counter set
func NewProcessMetrics() *ProcessMetrics {
	return &ProcessMetrics{
		snap: Snapshot{IntervalStart: time.Now()},
	}
}

// CountOutput adds n bytes to the counter for the given stream kind
func (m *ProcessMetrics) CountOutput(kind string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case "stderr":
		m.snap.StderrBytes += int64(n)
	default:
		m.snap.StdoutBytes += int64(n)
	}
}

// CountOOBMessage counts one decoded out-of-band value
func (m *ProcessMetrics) CountOOBMessage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.OOBMessages++
}

// CountCommand counts one command written to the server's stdin
func (m *ProcessMetrics) CountCommand() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.CommandsSent++
}

// ResetIntervalStats zeroes all counters and starts a fresh interval
func (m *ProcessMetrics) ResetIntervalStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{IntervalStart: time.Now()}
}

// Snapshot returns a copy of the current counters
func (m *ProcessMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// LogClose writes a summary line for the instance that just closed
func (m *ProcessMetrics) LogClose(reason string) {
	snap := m.Snapshot()
	log.Printf("[Metrics] Server closed (%s): stdout=%dB stderr=%dB oob=%d commands=%d over %v",
		reason, snap.StdoutBytes, snap.StderrBytes, snap.OOBMessages, snap.CommandsSent,
		time.Since(snap.IntervalStart).Round(time.Second))
}

// Start publishes a snapshot to the given callback on a fixed interval
func (m *ProcessMetrics) Start(interval time.Duration, publish func(Snapshot)) {
	if publish == nil || interval <= 0 {
		return
	}

	m.stopCh = make(chan struct{})
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				publish(m.Snapshot())
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop halts the publisher and waits for it to exit
func (m *ProcessMetrics) Stop() {
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
	m.stopCh = nil
}
