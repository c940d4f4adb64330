package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/yourusername/game-server-supervisor/internal/audit"
	"github.com/yourusername/game-server-supervisor/internal/config"
	"github.com/yourusername/game-server-supervisor/internal/console"
	"github.com/yourusername/game-server-supervisor/internal/frontend"
	"github.com/yourusername/game-server-supervisor/internal/history"
	"github.com/yourusername/game-server-supervisor/internal/supervisor"
	"github.com/yourusername/game-server-supervisor/internal/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The observer surface binds to localhost; the reverse proxy in front
	// of it is responsible for origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetupRouter configures the read-only status surface. It exposes the
// projected status, the lifecycle history, recent console output, the
// audit trail and the websocket observer endpoint. There are deliberately
// no mutating routes here.
func SetupRouter(
	cfg *config.Config,
	sup *supervisor.Supervisor,
	hub *websocket.Hub,
	buffer *console.RingBuffer,
	trail *audit.Trail,
	state *frontend.State,
) *gin.Engine {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/status", func(c *gin.Context) {
			status := sup.Status()
			c.JSON(http.StatusOK, gin.H{
				"status":         status.String(),
				"pending":        status.Pending,
				"uptime_seconds": int64(sup.Uptime().Seconds()),
				"session":        sup.SessionID(),
				"endpoint":       sup.ConnectEndpoint(),
				"players":        state.Players(),
				"observers":      hub.ClientCount(),
			})
		})

		apiGroup.GET("/history", func(c *gin.Context) {
			records := sup.History().Records()
			views := make([]recordView, len(records))
			for i, r := range records {
				views[i] = newRecordView(r)
			}
			c.JSON(http.StatusOK, gin.H{"records": views})
		})

		apiGroup.GET("/console", func(c *gin.Context) {
			lines := 100
			if raw := c.Query("lines"); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil || parsed <= 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "lines must be a positive integer"})
					return
				}
				lines = parsed
			}
			c.JSON(http.StatusOK, gin.H{"lines": buffer.GetLast(lines)})
		})

		apiGroup.GET("/audit", func(c *gin.Context) {
			limit := 50
			if raw := c.Query("limit"); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil || parsed <= 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
					return
				}
				limit = parsed
			}

			entries, err := trail.Recent(limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read audit trail"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"entries": entries})
		})
	}

	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[API] WebSocket upgrade failed: %v", err)
			return
		}

		client := hub.NewClient(conn)
		hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	return router
}

// recordView renders a lifecycle record with absent timestamps as null
type recordView struct {
	PID   string  `json:"pid"`
	Start *string `json:"start"`
	Kill  *string `json:"kill"`
	Exit  *string `json:"exit"`
	Close *string `json:"close"`
}

func newRecordView(r history.Record) recordView {
	return recordView{
		PID:   r.PID,
		Start: formatTime(r.Start),
		Kill:  formatTime(r.Kill),
		Exit:  formatTime(r.Exit),
		Close: formatTime(r.Close),
	}
}

func formatTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
