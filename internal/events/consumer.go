package events

import (
	"encoding/json"
	"log"

	"github.com/yourusername/game-server-supervisor/internal/frontend"
	"github.com/yourusername/game-server-supervisor/internal/metrics"
	"github.com/yourusername/game-server-supervisor/internal/websocket"
)

// Router consumes decoded out-of-band values. It routes the player events
// it understands into the frontend state and rebroadcasts everything to
// connected observers. Unknown event types are forwarded untouched; what
// they mean is the observer's business.
type Router struct {
	state   *frontend.State
	hub     *websocket.Hub
	metrics *metrics.ProcessMetrics
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type playerEvent struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewRouter creates the default out-of-band consumer
func NewRouter(state *frontend.State, hub *websocket.Hub, m *metrics.ProcessMetrics) *Router {
	return &Router{state: state, hub: hub, metrics: m}
}

// Consume handles one decoded value tagged with its session. Never blocks:
// hub broadcasts drop on backpressure and frontend updates are in-memory.
func (r *Router) Consume(sessionID string, value json.RawMessage) {
	if r.metrics != nil {
		r.metrics.CountOOBMessage()
	}

	var env envelope
	if err := json.Unmarshal(value, &env); err != nil || env.Type == "" {
		log.Printf("[Events] Dropping malformed out-of-band value (session %s)", sessionID)
		return
	}

	switch env.Type {
	case "playerJoined":
		var p playerEvent
		if err := json.Unmarshal(env.Data, &p); err == nil && r.state != nil {
			r.state.AddPlayer(sessionID, frontend.Player{ID: p.ID, Name: p.Name})
		}
	case "playerLeft":
		var p playerEvent
		if err := json.Unmarshal(env.Data, &p); err == nil && r.state != nil {
			r.state.RemovePlayer(sessionID, p.ID)
		}
	case "resources":
		var names []string
		if err := json.Unmarshal(env.Data, &names); err == nil && r.state != nil {
			r.state.SetResources(names)
		}
	}

	if r.hub != nil {
		r.hub.Broadcast("serverEvent", map[string]interface{}{
			"session": sessionID,
			"type":    env.Type,
			"data":    env.Data,
		})
	}
}
