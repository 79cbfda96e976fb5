package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is a unit of recurring background work. Next computes the first
// due time strictly after the given instant.
type Job interface {
	Name() string
	Next(after time.Time) time.Time
	Run(ctx context.Context, now time.Time) error
}

type scheduledJob struct {
	job   Job
	dueAt time.Time
}

// Scheduler wakes on a fixed interval and fires each registered job at
// most once per occurrence. A wake that arrives late still fires the
// missed occurrence exactly once.
type Scheduler struct {
	wakeInterval time.Duration
	jobs         []*scheduledJob
	now          func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler waking every wakeInterval.
func New(wakeInterval time.Duration, jobs ...Job) *Scheduler {
	s := &Scheduler{
		wakeInterval: wakeInterval,
		now:          time.Now,
	}
	for _, j := range jobs {
		s.jobs = append(s.jobs, &scheduledJob{job: j})
	}
	return s
}

// Start launches the wake loop. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Warn().Msg("Scheduler already running, ignoring Start")
		return
	}
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	now := s.now()
	for _, sj := range s.jobs {
		sj.dueAt = sj.job.Next(now)
		log.Info().
			Str("job", sj.job.Name()).
			Time("due_at", sj.dueAt).
			Msg("Scheduler job registered")
	}

	go s.loop(ctx)
}

// Stop halts the wake loop and waits for an in-flight wake to finish.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.wakeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.wake(ctx)
		}
	}
}

// wake fires every job whose occurrence has passed, then advances it to
// the next occurrence.
func (s *Scheduler) wake(ctx context.Context) {
	now := s.now()

	for _, sj := range s.jobs {
		if now.Before(sj.dueAt) {
			continue
		}

		s.fire(ctx, sj, now)
		sj.dueAt = sj.job.Next(now)
	}
}

// fire runs one job, isolating failures so one broken job never takes
// down the loop or its siblings.
func (s *Scheduler) fire(ctx context.Context, sj *scheduledJob, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("job", sj.job.Name()).
				Interface("panic", r).
				Msg("Scheduler job panicked")
		}
	}()

	started := s.now()
	if err := sj.job.Run(ctx, now); err != nil {
		log.Error().Err(err).
			Str("job", sj.job.Name()).
			Msg("Scheduler job failed")
		return
	}

	log.Info().
		Str("job", sj.job.Name()).
		Dur("took", s.now().Sub(started)).
		Msg("Scheduler job completed")
}

// parseClock parses "HH:MM" in the local timezone.
func parseClock(hhmm string) (hour, minute int, err error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q", hhmm)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", hhmm)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", hhmm)
	}
	return hour, minute, nil
}

// nextDaily returns the first instant after `after` whose wall clock
// reads hour:minute.
func nextDaily(after time.Time, hour, minute int) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextWeekly returns the first instant after `after` falling on the
// given weekday at hour:minute.
func nextWeekly(after time.Time, day time.Weekday, hour, minute int) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, after.Location())
	offset := (int(day) - int(next.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, offset)
	if !next.After(after) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
