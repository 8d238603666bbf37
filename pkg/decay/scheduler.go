package decay

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs maintenance nightly at 03:00.
const DefaultSchedule = "0 3 * * *"

// Scheduler periodically runs the sweeper's staleness and
// consolidation passes.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	opts    ConsolidateOptions
}

// NewScheduler builds a scheduler around the sweeper. An empty
// schedule uses DefaultSchedule; an invalid expression is an error.
func NewScheduler(sweeper *Sweeper, schedule string, opts ConsolidateOptions) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	s := &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		opts:    opts,
	}

	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins scheduled maintenance in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling. A pass already in flight finishes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// runOnce executes one full maintenance pass. Errors are logged, not
// propagated; the next tick retries.
func (s *Scheduler) runOnce() {
	if _, err := s.sweeper.MarkStale(s.opts.Project); err != nil {
		s.sweeper.logger.Error().Err(err).Msg("Scheduled staleness pass failed")
	}
	if _, err := s.sweeper.Consolidate(s.opts); err != nil {
		s.sweeper.logger.Error().Err(err).Msg("Scheduled consolidation pass failed")
	}
}
