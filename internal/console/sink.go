package console

import (
	"log"
	"strings"
	"sync"

	"github.com/yourusername/game-server-supervisor/internal/audit"
)

// Sink fans server output out to the ring buffer, the console log file and
// an optional line broadcaster, and records command activity in the audit
// trail. It implements the supervisor's LogSink contract: every method is
// fire-and-forget.
type Sink struct {
	buffer    *RingBuffer
	writer    *LogWriter
	trail     *audit.Trail
	broadcast func(kind, line string)

	mu      sync.Mutex
	partial map[string]string
}

// NewSink creates a sink. Any of the destinations may be nil.
func NewSink(buffer *RingBuffer, writer *LogWriter, trail *audit.Trail, broadcast func(kind, line string)) *Sink {
	return &Sink{
		buffer:    buffer,
		writer:    writer,
		trail:     trail,
		broadcast: broadcast,
		partial:   make(map[string]string),
	}
}

// WriteOutput forwards raw process output tagged by stream kind. Chunks are
// reassembled into lines; an unterminated tail is held until the next chunk.
func (s *Sink) WriteOutput(kind string, data []byte) {
	s.mu.Lock()
	text := s.partial[kind] + string(data)
	lines := strings.Split(text, "\n")
	s.partial[kind] = lines[len(lines)-1]
	lines = lines[:len(lines)-1]
	s.mu.Unlock()

	for _, line := range lines {
		line = StripANSI(strings.TrimRight(line, "\r"))
		s.emit(kind, line)
	}
}

// Flush emits any held partial lines, e.g. when the process closes
func (s *Sink) Flush() {
	s.mu.Lock()
	pending := s.partial
	s.partial = make(map[string]string)
	s.mu.Unlock()

	for kind, tail := range pending {
		if tail == "" {
			continue
		}
		s.emit(kind, StripANSI(tail))
	}
}

func (s *Sink) emit(kind, line string) {
	if s.buffer != nil {
		s.buffer.Add(line)
	}
	if s.writer != nil {
		if err := s.writer.WriteLine(kind, line); err != nil {
			log.Printf("[Console] Failed to write console line: %v", err)
		}
	}
	if s.broadcast != nil {
		s.broadcast(kind, line)
	}
}

// LogBoot records a successful spawn
func (s *Sink) LogBoot(pid string) {
	s.trail.RecordBoot(pid)
}

// LogAdminCommand records a command attributed to an admin
func (s *Sink) LogAdminCommand(author, text string) {
	s.trail.RecordAdminCommand(author, text)
}

// LogSystemCommand records a command issued by the supervisor itself
func (s *Sink) LogSystemCommand(text string) {
	s.trail.RecordSystemCommand(text)
}

// LogServerClose records an explicit shutdown and flushes held output
func (s *Sink) LogServerClose(reason string) {
	s.Flush()
	s.trail.RecordServerClose(reason)
}
