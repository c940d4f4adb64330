package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnnounceDeliversPayload(t *testing.T) {
	received := make(chan payload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		received <- p
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	notifier.Announce("shutdown", "Server shutting down: maintenance")

	select {
	case p := <-received:
		if p.Type != "shutdown" {
			t.Errorf("unexpected type %q", p.Type)
		}
		if p.Message != "Server shutting down: maintenance" {
			t.Errorf("unexpected message %q", p.Message)
		}
		if p.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("announcement never arrived")
	}
}

func TestAnnounceWithEmptyURLIsNoop(t *testing.T) {
	notifier := NewWebhookNotifier("")
	// Must not panic or block.
	notifier.Announce("spawning", "Starting the game server...")
}
