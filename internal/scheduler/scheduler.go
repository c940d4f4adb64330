package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Restarter is the slice of the supervisor the scheduler needs
type Restarter interface {
	RestartServer(reason, author string) error
}

// Scheduler fires announced server restarts on cron expressions from the
// configuration.
type Scheduler struct {
	cron      *cron.Cron
	restarter Restarter
}

// New creates a scheduler around the given restarter
func New(restarter Restarter) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		restarter: restarter,
	}
}

// Configure registers one restart job per cron expression. Returns an error
// on the first expression that does not parse.
func (s *Scheduler) Configure(expressions []string) error {
	for _, expr := range expressions {
		expr := expr
		_, err := s.cron.AddFunc(expr, func() {
			log.Printf("[Scheduler] Scheduled restart firing (%s)", expr)
			if err := s.restarter.RestartServer("scheduled restart", "scheduler"); err != nil {
				log.Printf("[Scheduler] Scheduled restart failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid restart schedule %q: %w", expr, err)
		}
	}
	return nil
}

// Start begins firing scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	if entries := len(s.cron.Entries()); entries > 0 {
		log.Printf("[Scheduler] Started with %d restart schedule(s)", entries)
	}
}

// Stop halts the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
