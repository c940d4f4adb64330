package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/game-server-supervisor/internal/audit"
	"github.com/yourusername/game-server-supervisor/internal/config"
	"github.com/yourusername/game-server-supervisor/internal/console"
	"github.com/yourusername/game-server-supervisor/internal/frontend"
	"github.com/yourusername/game-server-supervisor/internal/supervisor"
	"github.com/yourusername/game-server-supervisor/internal/websocket"
)

func newTestRouter(t *testing.T) (*gin.Engine, *console.RingBuffer) {
	t.Helper()

	cfg := config.Defaults()
	sup, err := supervisor.New(cfg.Server, nil, supervisor.Collaborators{})
	if err != nil {
		t.Fatalf("failed to create supervisor: %v", err)
	}

	buffer := console.NewRingBuffer(100)
	router := SetupRouter(cfg, sup, websocket.NewHub(), buffer, (*audit.Trail)(nil), frontend.New(nil))
	return router, buffer
}

func doGet(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doGet(t, router, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if body["status"] != "NOT_STARTED" {
		t.Fatalf("expected NOT_STARTED before any spawn, got %v", body["status"])
	}
}

func TestHistoryEndpointEmpty(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doGet(t, router, "/api/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(body.Records) != 0 {
		t.Fatalf("expected no records, got %d", len(body.Records))
	}
}

func TestConsoleEndpoint(t *testing.T) {
	router, buffer := newTestRouter(t)
	buffer.Add("server started")
	buffer.Add("map loaded")

	rec := doGet(t, router, "/api/console?lines=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Lines []string `json:"lines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(body.Lines) != 1 || body.Lines[0] != "map loaded" {
		t.Fatalf("unexpected lines: %v", body.Lines)
	}
}

func TestConsoleEndpointRejectsBadQuery(t *testing.T) {
	router, _ := newTestRouter(t)

	if rec := doGet(t, router, "/api/console?lines=zero"); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if rec := doGet(t, router, "/api/console?lines=-5"); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAuditEndpointWithDisabledTrail(t *testing.T) {
	router, _ := newTestRouter(t)

	// The trail is nil when auditing is disabled; the route must degrade
	// to an error response, not panic.
	if rec := doGet(t, router, "/api/audit"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
