package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Refetcher is anything that can start a fresh fetch on demand.
type Refetcher interface {
	Refetch()
}

// Scheduler periodically refreshes the page's weather data.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Refetcher
	interval  time.Duration
}

// New creates a new Scheduler.
func New(target Refetcher, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		target:    target,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens one interval from now; the target fetched on mount.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).WaitForSchedule().Do(func() {
		log.Println("scheduler: refreshing weather")
		s.target.Refetch()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

// NextRun returns when the refresh job runs next, or the zero time when
// nothing is scheduled yet.
func (s *Scheduler) NextRun() time.Time {
	jobs := s.scheduler.Jobs()
	if len(jobs) == 0 {
		return time.Time{}
	}
	return jobs[0].NextRun()
}
