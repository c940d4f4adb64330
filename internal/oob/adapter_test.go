package oob

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

type recordingConsumer struct {
	mu       sync.Mutex
	sessions []string
	values   []string
}

func (c *recordingConsumer) Consume(sessionID string, value json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = append(c.sessions, sessionID)
	c.values = append(c.values, string(value))
}

func TestAttachDecodesConcatenatedValues(t *testing.T) {
	adapter := NewAdapter()
	consumer := &recordingConsumer{}
	adapter.SetConsumer(consumer)

	// Values arrive back to back with no delimiter, the way the child
	// writes them onto the pipe.
	stream := `{"type":"playerJoined","data":{"id":7}}{"type":"heartbeat"}[1,2,3]"bare"`
	adapter.Attach("abc12345", strings.NewReader(stream))

	if len(consumer.values) != 4 {
		t.Fatalf("expected 4 decoded values, got %d: %v", len(consumer.values), consumer.values)
	}
	if consumer.values[0] != `{"type":"playerJoined","data":{"id":7}}` {
		t.Fatalf("first value mangled: %s", consumer.values[0])
	}
	for _, session := range consumer.sessions {
		if session != "abc12345" {
			t.Fatalf("value tagged with wrong session: %s", session)
		}
	}
}

func TestAttachWithoutConsumerDropsValues(t *testing.T) {
	adapter := NewAdapter()
	// Must not panic with nothing registered.
	adapter.Attach("abc12345", strings.NewReader(`{"type":"heartbeat"}`))
}

func TestAttachStopsOnMalformedStream(t *testing.T) {
	adapter := NewAdapter()
	consumer := &recordingConsumer{}
	adapter.SetConsumer(consumer)

	adapter.Attach("abc12345", strings.NewReader(`{"ok":true} this is not json`))

	if len(consumer.values) != 1 {
		t.Fatalf("values before the corruption must still be delivered, got %d", len(consumer.values))
	}
}

func TestAttachReturnsOnEOF(t *testing.T) {
	adapter := NewAdapter()
	consumer := &recordingConsumer{}
	adapter.SetConsumer(consumer)

	done := make(chan struct{})
	go func() {
		adapter.Attach("abc12345", strings.NewReader(""))
		close(done)
	}()

	<-done
	if len(consumer.values) != 0 {
		t.Fatalf("empty stream must deliver nothing, got %v", consumer.values)
	}
}
