package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Ticker is the unit of work run on every poll.
type Ticker interface {
	Tick(ctx context.Context)
}

// Scheduler drives a Ticker on a fixed poll interval. Runs never overlap.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ticker    Ticker
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a new Scheduler evaluating jobs in loc.
func New(ticker Ticker, interval time.Duration, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		ticker:    ticker,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the poll job and starts the underlying scheduler.
// The first tick runs immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.ticker.Tick(s.ctx)
	})
	if err != nil {
		return err
	}

	log.Printf("scheduler: polling every %s", interval)
	s.scheduler.StartAsync()
	return nil
}

// Stop cancels the in-flight tick and stops the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
