package oob

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"
)

// Consumer receives every decoded value from the out-of-band channel,
// tagged with the session identifier that was active when the process
// spawned. Implementations must not block; the adapter calls them inline
// from the channel read loop.
type Consumer interface {
	Consume(sessionID string, value json.RawMessage)
}

// errLogWindow rate-limits diagnostics for stream noise. Empirically tuned,
// kept as a named constant rather than inlined.
const errLogWindow = 5 * time.Second

// Adapter wraps the child process's auxiliary output stream. It decodes the
// framed sequence of JSON values and forwards each one to the registered
// consumer. What the values mean is entirely the consumer's business.
type Adapter struct {
	mu        sync.Mutex
	consumer  Consumer
	lastError time.Time
}

// NewAdapter creates an adapter with no consumer registered
func NewAdapter() *Adapter {
	return &Adapter{}
}

// SetConsumer registers the single consumer. Values decoded while no
// consumer is registered are dropped.
func (a *Adapter) SetConsumer(c Consumer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consumer = c
}

// Attach reads framed JSON values from r until EOF or a decode failure,
// forwarding each to the consumer together with sessionID. It blocks, so
// the supervisor runs it in its own goroutine per spawn. Stream errors are
// uninteresting OS-level noise and only get a rate-limited diagnostic.
func (a *Adapter) Attach(sessionID string, r io.Reader) {
	dec := json.NewDecoder(r)

	for {
		var value json.RawMessage
		err := dec.Decode(&value)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.logStreamError(sessionID, err)
			}
			return
		}

		a.mu.Lock()
		consumer := a.consumer
		a.mu.Unlock()

		if consumer != nil {
			consumer.Consume(sessionID, value)
		}
	}
}

func (a *Adapter) logStreamError(sessionID string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if now.Sub(a.lastError) < errLogWindow {
		return
	}
	a.lastError = now
	log.Printf("[OOB] Stream error on session %s: %v", sessionID, err)
}
