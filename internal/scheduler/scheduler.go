package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-lookup/internal/logger"
)

// Resubmitter is the part of the session the refresher drives.
type Resubmitter interface {
	LastCity() string
	Submit(city string) (<-chan struct{}, error)
}

// Scheduler periodically re-issues the most recent city query.
type Scheduler struct {
	scheduler *gocron.Scheduler
	session   Resubmitter
	interval  time.Duration
	log       *logger.Logger
}

// New creates a new Scheduler. A non-positive interval disables refreshing.
func New(session Resubmitter, interval time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		session:   session,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Infow("refresh_disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.refresh)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Infow("refresh_scheduled", "interval", s.interval.String())
	return nil
}

// refresh re-submits the last issued city, if any. The outcome settles
// through the session like any other query.
func (s *Scheduler) refresh() {
	city := s.session.LastCity()
	if city == "" {
		s.log.Debugw("refresh_skipped", "reason", "no_city")
		return
	}
	if _, err := s.session.Submit(city); err != nil {
		s.log.Warnw("refresh_failed", "city", city, "err", err)
		return
	}
	s.log.Debugw("refresh_issued", "city", city)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
