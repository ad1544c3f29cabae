package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const expiryRunTimeout = 5 * time.Minute

// Expirer rejects requests that stayed PENDING past a cutoff.
type Expirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler runs the expiry sweep on a cron schedule in UTC.
type Scheduler struct {
	cron    *cron.Cron
	expirer Expirer
	maxAge  time.Duration
	now     func() time.Time
}

// New registers the expiry job. schedule accepts standard 5-field specs and
// descriptors such as "@every 1h".
func New(exp Expirer, schedule string, maxAge time.Duration) (*Scheduler, error) {
	cronLog := cron.PrintfLogger(&log.Logger)
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		expirer: exp,
		maxAge:  maxAge,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if _, err := s.cron.AddFunc(schedule, s.RunExpiry); err != nil {
		return nil, fmt.Errorf("register expiry job %q: %w", schedule, err)
	}
	return s, nil
}

// RunExpiry is one sweep; exported so it can be triggered outside the schedule.
func (s *Scheduler) RunExpiry() {
	ctx, cancel := context.WithTimeout(context.Background(), expiryRunTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.maxAge)
	n, err := s.expirer.ExpireStale(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Int("expired", n).Msg("scheduler: expiry sweep finished with errors")
		return
	}
	log.Info().Time("cutoff", cutoff).Int("expired", n).Msg("scheduler: expiry sweep finished")
}

func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler: starting")
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler: stopped")
}
