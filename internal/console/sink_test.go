package console

import (
	"reflect"
	"sync"
	"testing"
)

type broadcastRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *broadcastRecorder) record(kind, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, kind+"|"+line)
}

func (r *broadcastRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func TestSinkReassemblesPartialLines(t *testing.T) {
	buffer := NewRingBuffer(10)
	sink := NewSink(buffer, nil, nil, nil)

	sink.WriteOutput("stdout", []byte("server st"))
	sink.WriteOutput("stdout", []byte("arted\nloading res"))

	if got := buffer.GetLines(); !reflect.DeepEqual(got, []string{"server started"}) {
		t.Fatalf("only complete lines should be emitted, got %v", got)
	}

	sink.WriteOutput("stdout", []byte("ources\n"))
	want := []string{"server started", "loading resources"}
	if got := buffer.GetLines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("GetLines() = %v, want %v", got, want)
	}
}

func TestSinkKeepsStreamsSeparate(t *testing.T) {
	buffer := NewRingBuffer(10)
	sink := NewSink(buffer, nil, nil, nil)

	// Interleaved chunks from different streams must not bleed into each
	// other's partial line.
	sink.WriteOutput("stdout", []byte("out par"))
	sink.WriteOutput("stderr", []byte("err line\n"))
	sink.WriteOutput("stdout", []byte("tial\n"))

	want := []string{"err line", "out partial"}
	if got := buffer.GetLines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("GetLines() = %v, want %v", got, want)
	}
}

func TestSinkStripsCarriageReturnAndANSI(t *testing.T) {
	buffer := NewRingBuffer(10)
	sink := NewSink(buffer, nil, nil, nil)

	sink.WriteOutput("stdout", []byte("\x1b[32mready\x1b[0m\r\n"))

	if got := buffer.GetLines(); !reflect.DeepEqual(got, []string{"ready"}) {
		t.Fatalf("GetLines() = %v", got)
	}
}

func TestSinkBroadcastsLines(t *testing.T) {
	recorder := &broadcastRecorder{}
	sink := NewSink(nil, nil, nil, recorder.record)

	sink.WriteOutput("stderr", []byte("warning: low memory\n"))

	want := []string{"stderr|warning: low memory"}
	if got := recorder.all(); !reflect.DeepEqual(got, want) {
		t.Fatalf("broadcast = %v, want %v", got, want)
	}
}

func TestSinkFlushEmitsHeldTail(t *testing.T) {
	buffer := NewRingBuffer(10)
	sink := NewSink(buffer, nil, nil, nil)

	sink.WriteOutput("stdout", []byte("no newline at exit"))
	sink.Flush()

	if got := buffer.GetLines(); !reflect.DeepEqual(got, []string{"no newline at exit"}) {
		t.Fatalf("Flush must emit the held tail, got %v", got)
	}

	// A second flush has nothing left to emit.
	sink.Flush()
	if got := buffer.GetLines(); len(got) != 1 {
		t.Fatalf("Flush must consume the tail, got %v", got)
	}
}
