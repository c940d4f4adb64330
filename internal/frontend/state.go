package frontend

import (
	"sync"

	"github.com/google/uuid"
)

// Player is one entry in the buffered player list shown to the frontend
type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// State holds the frontend-facing pieces the supervisor resets around
// spawns: the session/auth token, the buffered player list and the
// resource list. The player buffer is scoped to a session identifier so
// data from a stale process instance is silently discarded.
type State struct {
	mu            sync.RWMutex
	authToken     string
	players       []Player
	playerSession string
	resources     []string
	broadcast     func(msgType string, payload interface{})
}

// New creates the frontend state. broadcast may be nil.
func New(broadcast func(msgType string, payload interface{})) *State {
	return &State{
		authToken: uuid.NewString(),
		broadcast: broadcast,
	}
}

// ResetToken invalidates the current session/auth token
func (s *State) ResetToken() {
	s.mu.Lock()
	s.authToken = uuid.NewString()
	s.mu.Unlock()

	s.notify("tokenReset", nil)
}

// AuthToken returns the current token
func (s *State) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authToken
}

// ResetPlayerList empties the buffer and rebinds it to sessionID
func (s *State) ResetPlayerList(sessionID string) {
	s.mu.Lock()
	s.players = nil
	s.playerSession = sessionID
	s.mu.Unlock()

	s.notify("playerlistReset", map[string]interface{}{"session": sessionID})
}

// AddPlayer buffers a player update. Updates tagged with a session other
// than the current one come from a stale instance and are dropped.
func (s *State) AddPlayer(sessionID string, p Player) bool {
	s.mu.Lock()
	if sessionID != s.playerSession {
		s.mu.Unlock()
		return false
	}
	s.players = append(s.players, p)
	s.mu.Unlock()

	s.notify("playerJoined", p)
	return true
}

// RemovePlayer drops a player from the buffer
func (s *State) RemovePlayer(sessionID string, id int) bool {
	s.mu.Lock()
	if sessionID != s.playerSession {
		s.mu.Unlock()
		return false
	}
	for i, p := range s.players {
		if p.ID == id {
			s.players = append(s.players[:i], s.players[i+1:]...)
			s.mu.Unlock()
			s.notify("playerLeft", map[string]interface{}{"id": id})
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// Players returns a copy of the buffered player list
func (s *State) Players() []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Player, len(s.players))
	copy(out, s.players)
	return out
}

// SetResources replaces the known resource list
func (s *State) SetResources(resources []string) {
	s.mu.Lock()
	s.resources = append([]string{}, resources...)
	s.mu.Unlock()
}

// ResetResources clears the resource list
func (s *State) ResetResources() {
	s.mu.Lock()
	s.resources = nil
	s.mu.Unlock()

	s.notify("resourcesReset", nil)
}

// Resources returns a copy of the resource list
func (s *State) Resources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.resources))
	copy(out, s.resources)
	return out
}

func (s *State) notify(msgType string, payload interface{}) {
	if s.broadcast != nil {
		s.broadcast(msgType, payload)
	}
}
