package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron and periodically sweeps every active alert
// through the engine, so alerts fire without a user pressing "check now".
type Scheduler struct {
	cron   *cron.Cron
	engine *AlertEngine
	spec   string
}

// NewScheduler creates a Scheduler using the ALERT_CHECK_CRON spec, default
// every 15 minutes.
func NewScheduler(engine *AlertEngine) *Scheduler {
	spec := os.Getenv("ALERT_CHECK_CRON")
	if spec == "" {
		spec = "@every 15m"
	}
	return &Scheduler{
		cron:   cron.New(),
		engine: engine,
		spec:   spec,
	}
}

// Start registers the sweep and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("Alert scheduler started, spec: %s", s.spec)
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Alert scheduler stopped")
}

// runSweep evaluates every active alert; per-alert failures are already
// isolated inside the engine.
func (s *Scheduler) runSweep(ctx context.Context) {
	results, err := s.engine.EvaluateEverything(ctx)
	if err != nil {
		log.Printf("Alert sweep failed to list alerts: %v", err)
		return
	}

	notified := 0
	for _, r := range results {
		if r.NotificationCreated {
			notified++
		}
	}
	log.Printf("Alert sweep complete: %d alert(s) evaluated, %d notification(s) created", len(results), notified)
}
