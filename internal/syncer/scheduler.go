package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler triggers SyncAll on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	orch *Orchestrator
}

func NewScheduler(orch *Orchestrator, schedule string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}

	logger := cron.PrintfLogger(log.StandardLogger())
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(logger))),
		orch: orch,
	}
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	report, err := s.orch.SyncAll(context.Background())
	if errors.Is(err, ErrScopeBusy) {
		log.Info("scheduled sync skipped, another run holds the scope")
		return
	}
	if err != nil {
		log.Errorf("scheduled sync failed to start: %v", err)
		return
	}
	log.WithFields(log.Fields{
		"run_id": report.RunID,
		"state":  report.State,
		"failed": report.Totals.Failed,
	}).Info("scheduled sync finished")
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule; the returned context is done once a running job returns.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
