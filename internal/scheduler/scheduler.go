package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/whoop-data-sync/internal/whoop"
)

// cycleTimeout bounds one full fetch cycle so a stalled vendor endpoint
// delays, but never wedges, the schedule.
const cycleTimeout = 5 * time.Minute

// CycleRunner runs one fetch cycle. It must never panic or return control
// abnormally; outcomes are reported through the CycleReport.
type CycleRunner interface {
	RunCycle(ctx context.Context) whoop.CycleReport
}

// Scheduler triggers fetch cycles: once synchronously on Start so the store
// is warm before the query API serves traffic, then on a recurring interval
// until Stop.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    CycleRunner
	interval  Interval
}

// New creates a Scheduler driving runner at the given interval.
func New(runner CycleRunner, interval Interval) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		interval:  interval,
	}
}

// Start fires cycle 0 synchronously, then arms the recurring job.
// SingletonMode keeps a slow cycle from overlapping the next trigger; the
// delayed trigger queues behind it instead.
func (s *Scheduler) Start() error {
	s.runCycle()

	_, err := s.scheduler.Every(s.interval.Duration()).SingletonMode().Do(s.runCycle)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Info().Str("interval", s.interval.String()).Msg("scheduler started")
	return nil
}

// Stop cancels pending triggers. A cycle already in progress is allowed to
// finish; it is not interrupted mid-flight.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
		log.Info().Msg("scheduler stopped")
	}
}

func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	s.runner.RunCycle(ctx)
}
