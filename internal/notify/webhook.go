package notify

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// WebhookNotifier posts announcements to a configured webhook URL.
// Best-effort: delivery failures are logged and otherwise ignored, and the
// post runs off the caller's goroutine so announcing never blocks a spawn
// or shutdown sequence.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type payload struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewWebhookNotifier creates a notifier. An empty URL disables delivery.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Announce sends a fire-and-forget notification
func (n *WebhookNotifier) Announce(eventType, message string) {
	if n.url == "" {
		return
	}

	body, err := json.Marshal(payload{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("[Notify] Failed to marshal announcement: %v", err)
		return
	}

	go func() {
		resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("[Notify] Announcement delivery failed: %v", err)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("[Notify] Announcement rejected with status %d", resp.StatusCode)
		}
	}()
}
