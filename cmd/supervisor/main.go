package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourusername/game-server-supervisor/internal/api"
	"github.com/yourusername/game-server-supervisor/internal/audit"
	"github.com/yourusername/game-server-supervisor/internal/config"
	"github.com/yourusername/game-server-supervisor/internal/console"
	"github.com/yourusername/game-server-supervisor/internal/events"
	"github.com/yourusername/game-server-supervisor/internal/frontend"
	"github.com/yourusername/game-server-supervisor/internal/logging"
	"github.com/yourusername/game-server-supervisor/internal/metrics"
	"github.com/yourusername/game-server-supervisor/internal/notify"
	"github.com/yourusername/game-server-supervisor/internal/oob"
	"github.com/yourusername/game-server-supervisor/internal/scheduler"
	"github.com/yourusername/game-server-supervisor/internal/supervisor"
	"github.com/yourusername/game-server-supervisor/internal/validator"
	"github.com/yourusername/game-server-supervisor/internal/watcher"
	"github.com/yourusername/game-server-supervisor/internal/websocket"
)

const maxConsoleLogBytes = 50 * 1024 * 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Init(cfg.Logging)
	defer logging.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit trail
	var trail *audit.Trail
	if cfg.Audit.Enabled {
		trail, err = audit.NewTrail(cfg.Audit.Path)
		if err != nil {
			log.Fatalf("Failed to open audit trail: %v", err)
		}
		defer trail.Close()
	}

	// Observer hub
	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Console surface
	buffer := console.NewRingBuffer(cfg.Server.ConsoleBufferLines)
	logWriter, err := console.NewLogWriter(cfg.Server.ConsoleLogDir, maxConsoleLogBytes)
	if err != nil {
		log.Fatalf("Failed to open console log: %v", err)
	}
	defer logWriter.Close()

	sink := console.NewSink(buffer, logWriter, trail, func(kind, line string) {
		hub.Broadcast("console", map[string]interface{}{"kind": kind, "line": line})
	})

	// Frontend state and metrics
	state := frontend.New(hub.Broadcast)
	procMetrics := metrics.NewProcessMetrics()
	procMetrics.Start(15*time.Second, func(snap metrics.Snapshot) {
		hub.Broadcast("metrics", snap)
	})
	defer procMetrics.Stop()

	// Out-of-band channel
	adapter := oob.NewAdapter()
	adapter.SetConsumer(events.NewRouter(state, hub, procMetrics))

	// Supervisor core
	sup, err := supervisor.New(cfg.Server, supervisor.ExecLauncher{}, supervisor.Collaborators{
		Validator: validator.New(),
		Sink:      sink,
		Notifier:  notify.NewWebhookNotifier(cfg.Notifications.WebhookURL),
		Frontend:  state,
		Metrics:   procMetrics,
		Adapter:   adapter,
	})
	if err != nil {
		log.Fatalf("Failed to create supervisor: %v", err)
	}
	sup.AddStatusObserver(hub)

	// Scheduled restarts
	if cfg.Schedule.Enabled {
		sched := scheduler.New(sup)
		if err := sched.Configure(cfg.Schedule.Restarts); err != nil {
			log.Fatalf("Failed to configure restart schedule: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// Config file watcher
	if cfg.Server.WatchCfgFile && cfg.Server.CfgPath != "" {
		cfgWatcher, err := watcher.New(cfg.Server.CfgPath, func() {
			if sup.UpdateMutableConvars() {
				log.Println("Pushed updated convars to the running server")
			}
		})
		if err != nil {
			log.Printf("Config watcher disabled: %v", err)
		} else {
			cfgWatcher.Start()
			defer cfgWatcher.Stop()
		}
	}

	// Status surface
	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		router := api.SetupRouter(cfg, sup, hub, buffer, trail, state)
		httpServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
			Handler: router,
		}
		go func() {
			log.Printf("Status surface listening on %s", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTP server failed: %v", err)
			}
		}()
	}

	if cfg.Server.AutoStart {
		if err := sup.Spawn(true); err != nil {
			log.Printf("Auto-start failed: %v", err)
		}
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down supervisor...")

	if err := sup.KillServer("supervisor shutting down", "", false); err != nil &&
		err != supervisor.ErrKillInProgress {
		log.Printf("Shutdown kill failed: %v", err)
	}

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
	}

	cancel()
	log.Println("Supervisor stopped")
}
