package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/game-server-supervisor/internal/command"
	"github.com/yourusername/game-server-supervisor/internal/config"
	"github.com/yourusername/game-server-supervisor/internal/history"
	"github.com/yourusername/game-server-supervisor/internal/oob"
)

const (
	// minKillGrace guarantees connected clients a minimum warning window
	// even when the shutdown notice delay is configured to zero.
	minKillGrace = 250 * time.Millisecond

	// shortRunThreshold flags a process that exited suspiciously soon after
	// spawn. Heuristic, not authoritative; empirically tuned.
	shortRunThreshold = 5 * time.Second

	// noiseLogWindow rate-limits diagnostics for stdin write failures and
	// similar OS-level noise.
	noiseLogWindow = 5 * time.Second

	// eventCommandName is the internal event-dispatch command understood by
	// the server runtime.
	eventCommandName = "svEvent"
)

// Operation errors
var (
	ErrNotConfigured  = errors.New("server data directory or cfg path not configured")
	ErrAlreadyRunning = errors.New("server is already started")
	ErrKillInProgress = errors.New("server shutdown already in progress")
	ErrSpawnFailed    = errors.New("process creation did not produce a valid pid")
	ErrKillFailed     = errors.New("failed to terminate server process")
)

// ValidationResult is what the external config validator reports.
// A non-empty Errors blocks the spawn; Warnings are advisory.
type ValidationResult struct {
	Errors          string
	Warnings        string
	ConnectEndpoint string
}

// Validator checks the server's textual config file before a spawn
type Validator interface {
	Validate(cfgPath, dataPath string) ValidationResult
}

// LogSink receives process output and command logs. All methods are
// fire-and-forget and must never affect supervisor state.
type LogSink interface {
	WriteOutput(kind string, data []byte)
	LogBoot(pid string)
	LogAdminCommand(author, text string)
	LogSystemCommand(text string)
	LogServerClose(reason string)
}

// Notifier emits outbound announcements. Best-effort; the supervisor
// ignores its failures.
type Notifier interface {
	Announce(eventType, message string)
}

// Frontend is the frontend-facing state that must be reset around spawns:
// the session/auth token, the buffered player list, and the resource list.
type Frontend interface {
	ResetToken()
	ResetPlayerList(sessionID string)
	ResetResources()
}

// Metrics tracks per-process counters
type Metrics interface {
	ResetIntervalStats()
	CountOutput(kind string, n int)
	CountCommand()
	LogClose(reason string)
}

// StatusObserver is notified whenever the projected status may have
// changed. Implementations must not block.
type StatusObserver interface {
	StatusChanged(status history.Status)
}

// Collaborators groups the external collaborators. Any of them may be nil.
type Collaborators struct {
	Validator Validator
	Sink      LogSink
	Notifier  Notifier
	Frontend  Frontend
	Metrics   Metrics
	Adapter   *oob.Adapter
}

// Supervisor owns the single active child process handle and orchestrates
// spawn, restart, kill and the command protocol. There is exactly one per
// supervisor process.
type Supervisor struct {
	cfg      config.ServerConfig
	launcher Launcher
	collab   Collaborators
	hist     *history.History

	mu                   sync.Mutex
	child                Child
	spawning             bool
	recordIdx            int
	sessionID            string
	connectEndpoint      string
	lastKillRequest      time.Time
	restartDelayOverride time.Duration
	lastNoiseLog         time.Time
	observers            []StatusObserver
}

// New creates a supervisor from an immutable configuration snapshot.
// An out-of-range shutdown notice delay is a fatal configuration error.
func New(cfg config.ServerConfig, launcher Launcher, collab Collaborators) (*Supervisor, error) {
	if cfg.ShutdownNoticeDelayMS < config.MinShutdownNoticeDelayMS ||
		cfg.ShutdownNoticeDelayMS > config.MaxShutdownNoticeDelayMS {
		return nil, fmt.Errorf("shutdown notice delay %dms is outside %d-%d",
			cfg.ShutdownNoticeDelayMS, config.MinShutdownNoticeDelayMS, config.MaxShutdownNoticeDelayMS)
	}
	if launcher == nil {
		launcher = ExecLauncher{}
	}

	return &Supervisor{
		cfg:       cfg,
		launcher:  launcher,
		collab:    collab,
		hist:      history.New(),
		recordIdx: -1,
	}, nil
}

// AddStatusObserver registers an observer for status changes
func (s *Supervisor) AddStatusObserver(o StatusObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// History exposes the lifecycle history read-only (callers get copies)
func (s *Supervisor) History() *history.History {
	return s.hist
}

// Status projects the current status from the history
func (s *Supervisor) Status() history.Status {
	return s.hist.Status()
}

// Uptime returns how long the current instance has been up
func (s *Supervisor) Uptime() time.Duration {
	return s.hist.Uptime(time.Now())
}

// SessionID returns the identifier of the current process instance
func (s *Supervisor) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ConnectEndpoint returns the endpoint reported by the config validator on
// the last successful spawn
func (s *Supervisor) ConnectEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectEndpoint
}

// SetRestartDelayOverride sets a one-shot delay consumed by exactly one
// subsequent restart
func (s *Supervisor) SetRestartDelayOverride(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restartDelayOverride = d
}

// Spawn launches a new server process. It fails if a child is already
// active, if the data/cfg paths are missing, if the external validator
// rejects the config file, or if the OS does not produce a valid pid.
func (s *Supervisor) Spawn(announce bool) error {
	// The slot is claimed before the lock is dropped. Validation and process
	// creation run unlocked, so without the claim two concurrent callers
	// could both pass the nil check and both launch, and the loser's handle
	// would be overwritten while its process lives on.
	s.mu.Lock()
	if s.child != nil || s.spawning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.spawning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.spawning = false
		s.mu.Unlock()
	}()

	if strings.TrimSpace(s.cfg.DataPath) == "" || strings.TrimSpace(s.cfg.CfgPath) == "" {
		return ErrNotConfigured
	}

	if s.collab.Frontend != nil {
		s.collab.Frontend.ResetToken()
	}

	session := newSessionID()
	desc := BuildSpawnDescriptor(s.cfg, runtime.GOOS)

	if s.collab.Validator != nil {
		result := s.collab.Validator.Validate(s.cfg.CfgPath, s.cfg.DataPath)
		if result.Errors != "" {
			// Surfaced verbatim so the admin sees exactly what the
			// validator saw.
			return errors.New(result.Errors)
		}
		if result.Warnings != "" {
			log.Printf("[Supervisor] Config validation warning: %s", result.Warnings)
		}
		s.mu.Lock()
		s.connectEndpoint = result.ConnectEndpoint
		s.mu.Unlock()
	}

	if s.collab.Metrics != nil {
		s.collab.Metrics.ResetIntervalStats()
	}
	if s.collab.Frontend != nil {
		s.collab.Frontend.ResetPlayerList(session)
	}

	if announce && s.collab.Notifier != nil {
		s.collab.Notifier.Announce("spawning", "Starting the game server...")
	}

	log.Printf("[Supervisor] Spawning server: %s (workdir: %s)", desc.Executable, desc.WorkDir)

	child, err := s.launcher.Launch(desc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	if child.Pid() <= 0 {
		child.Kill()
		return ErrSpawnFailed
	}

	pid := strconv.Itoa(child.Pid())
	start := time.Now()
	idx := s.hist.Append(pid, start)

	s.mu.Lock()
	s.child = child
	s.sessionID = session
	s.recordIdx = idx
	s.mu.Unlock()

	if s.collab.Sink != nil {
		s.collab.Sink.LogBoot(pid)
	}
	s.notifyStatus()
	s.attachListeners(child, idx, session, start)

	log.Printf("[Supervisor] Server process started (pid %s, session %s)", pid, session)
	return nil
}

// KillServer terminates the running server after delivering the shutdown
// notice. Repeated calls within the notice window are rejected rather than
// interleaved.
func (s *Supervisor) KillServer(reason, author string, isRestarting bool) error {
	noticeDelay := time.Duration(s.cfg.ShutdownNoticeDelayMS) * time.Millisecond

	s.mu.Lock()
	if !s.lastKillRequest.IsZero() && time.Since(s.lastKillRequest) < noticeDelay {
		s.mu.Unlock()
		return ErrKillInProgress
	}
	s.lastKillRequest = time.Now()
	s.mu.Unlock()

	message := shutdownMessage(reason, isRestarting)

	s.SendEvent("serverShuttingDown", map[string]any{
		"delay":   s.cfg.ShutdownNoticeDelayMS,
		"author":  author,
		"message": message,
	})
	if s.collab.Notifier != nil {
		kind := "shutdown"
		if isRestarting {
			kind = "restarting"
		}
		s.collab.Notifier.Announce(kind, message)
	}

	// Clients get at least the grace floor even with a zero notice delay.
	wait := noticeDelay
	if wait < minKillGrace {
		wait = minKillGrace
	}
	time.Sleep(wait)

	// The handle is cleared before the kill signal so the supervisor can
	// never end up believing a dead process is alive.
	s.mu.Lock()
	child := s.child
	idx := s.recordIdx
	session := s.sessionID
	s.child = nil
	s.mu.Unlock()

	var killErr error
	if child != nil {
		if err := child.Kill(); err != nil {
			log.Printf("[Supervisor] Kill signal failed: %v", err)
			killErr = ErrKillFailed
		}
		s.hist.SetKill(idx, time.Now())
		s.notifyStatus()
	}

	if s.collab.Frontend != nil {
		s.collab.Frontend.ResetResources()
		s.collab.Frontend.ResetPlayerList(session)
	}
	if s.collab.Metrics != nil {
		s.collab.Metrics.LogClose(reason)
	}
	if s.collab.Sink != nil {
		s.collab.Sink.LogServerClose(reason)
	}

	return killErr
}

// RestartServer composes kill, delay and spawn. The first error stops the
// sequence. A pending one-shot delay override is consumed here.
func (s *Supervisor) RestartServer(reason, author string) error {
	if err := s.KillServer(reason, author, true); err != nil {
		return err
	}

	s.mu.Lock()
	delay := time.Duration(s.cfg.RestartSpawnDelayMS) * time.Millisecond
	if s.restartDelayOverride > 0 {
		delay = s.restartDelayOverride
		s.restartDelayOverride = 0
	}
	s.mu.Unlock()

	time.Sleep(delay)

	return s.Spawn(true)
}

// UpdateMutableConvars pushes the convars declared safe to change without a
// restart, then emits a config-changed event. Failures are logged and
// reported as a boolean, not raised.
func (s *Supervisor) UpdateMutableConvars() bool {
	ok := true

	names := make([]string, 0, len(s.cfg.MutableConvars))
	for name := range s.cfg.MutableConvars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sent, err := s.SendCommand("setr", []any{name, s.cfg.MutableConvars[name]}, "")
		if err != nil || !sent {
			log.Printf("[Supervisor] Failed to push convar %s: %v", name, err)
			ok = false
		}
	}

	if !s.SendEvent("configChanged", map[string]any{}) {
		ok = false
	}

	return ok
}

// SendEvent dispatches a structured event to the running server through the
// command protocol
func (s *Supervisor) SendEvent(eventType string, data map[string]any) bool {
	sent, err := s.SendCommand(eventCommandName, []any{eventType, data}, "")
	if err != nil {
		log.Printf("[Supervisor] Failed to encode %s event: %v", eventType, err)
		return false
	}
	return sent
}

// SendCommand validates and encodes a command, then writes it to the
// server's stdin. Encoding problems are caller errors and returned; write
// failures are runtime conditions and reported as false.
func (s *Supervisor) SendCommand(name string, args []any, author string) (bool, error) {
	line, err := command.Encode(name, args)
	if err != nil {
		return false, err
	}
	return s.SendRawCommand(line, author), nil
}

// SendRawCommand writes one line to the server's stdin. Returns false
// without error if no child is running or the pipe is dead.
func (s *Supervisor) SendRawCommand(text, author string) bool {
	s.mu.Lock()
	child := s.child
	s.mu.Unlock()

	if child == nil {
		return false
	}

	if _, err := io.WriteString(child.Stdin(), text+"\n"); err != nil {
		s.logNoise("stdin write failed: %v", err)
		return false
	}

	if s.collab.Metrics != nil {
		s.collab.Metrics.CountCommand()
	}
	if s.collab.Sink != nil {
		if author != "" {
			s.collab.Sink.LogAdminCommand(author, text)
		} else {
			s.collab.Sink.LogSystemCommand(text)
		}
	}

	return true
}

// attachListeners wires the per-spawn event surface. Every listener holds
// the record index and session captured at registration, so events from a
// stale instance can never touch a newer record.
func (s *Supervisor) attachListeners(child Child, idx int, session string, start time.Time) {
	var streams sync.WaitGroup

	streams.Add(1)
	go func() {
		defer streams.Done()
		s.forwardOutput("stdout", child.Stdout())
		closeReader(child.Stdout())
	}()

	streams.Add(1)
	go func() {
		defer streams.Done()
		s.forwardOutput("stderr", child.Stderr())
		closeReader(child.Stderr())
	}()

	if aux := child.Aux(); aux != nil && s.collab.Adapter != nil {
		streams.Add(1)
		go func() {
			defer streams.Done()
			s.collab.Adapter.Attach(session, aux)
			closeReader(aux)
		}()
	}

	// Exit watcher: the OS reported process exit.
	go func() {
		if err := child.Wait(); err != nil {
			log.Printf("[Supervisor] Server process exited: %v", err)
		}

		exitAt := time.Now()
		s.hist.SetExit(idx, exitAt)

		s.mu.Lock()
		if s.child == child {
			s.child = nil
		}
		s.mu.Unlock()

		s.notifyStatus()

		if exitAt.Sub(start) <= shortRunThreshold {
			time.AfterFunc(250*time.Millisecond, func() {
				log.Printf("[Supervisor] Server exited %v after spawn; the server binary likely failed to start",
					exitAt.Sub(start).Round(time.Millisecond))
			})
		}
	}()

	// Close watcher: all stdio streams finished flushing.
	go func() {
		streams.Wait()
		s.hist.SetClose(idx, time.Now())
		s.notifyStatus()
	}()
}

// forwardOutput copies a child output stream to the log sink, tagged by
// stream kind. Read errors are log-only; termination is detected through
// exit and close, never here.
func (s *Supervisor) forwardOutput(kind string, r io.Reader) {
	buf := make([]byte, 16*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if s.collab.Sink != nil {
				s.collab.Sink.WriteOutput(kind, data)
			}
			if s.collab.Metrics != nil {
				s.collab.Metrics.CountOutput(kind, n)
			}
		}
		if err != nil {
			if err != io.EOF {
				s.logNoise("%s read failed: %v", kind, err)
			}
			return
		}
	}
}

// closeReader releases a stream's read end once its forwarder has drained
// it to EOF
func closeReader(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}
}

func (s *Supervisor) notifyStatus() {
	status := s.hist.Status()

	s.mu.Lock()
	observers := make([]StatusObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.StatusChanged(status)
	}
}

// logNoise logs uninteresting OS-level noise at most once per window
func (s *Supervisor) logNoise(format string, args ...any) {
	s.mu.Lock()
	now := time.Now()
	if now.Sub(s.lastNoiseLog) < noiseLogWindow {
		s.mu.Unlock()
		return
	}
	s.lastNoiseLog = now
	s.mu.Unlock()

	log.Printf("[Supervisor] "+format, args...)
}

func shutdownMessage(reason string, isRestarting bool) string {
	verb := "shutting down"
	if isRestarting {
		verb = "restarting"
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Sprintf("Server %s.", verb)
	}
	return fmt.Sprintf("Server %s: %s", verb, reason)
}

// newSessionID generates the short random token that correlates out-of-band
// messages and frontend resets to one process instance
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
