package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeJob struct {
	name    string
	runs    int64
	err     error
	doPanic bool
}

func (j *fakeJob) Name() string { return j.name }

// Always due on the next wake.
func (j *fakeJob) Next(after time.Time) time.Time { return after.Add(time.Millisecond) }

func (j *fakeJob) Run(ctx context.Context, now time.Time) error {
	atomic.AddInt64(&j.runs, 1)
	if j.doPanic {
		panic("boom")
	}
	return j.err
}

func (j *fakeJob) runCount() int64 { return atomic.LoadInt64(&j.runs) }

func TestSchedulerFiresDueJobs(t *testing.T) {
	job := &fakeJob{name: "a"}
	s := New(5*time.Millisecond, job)

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if job.runCount() == 0 {
		t.Fatal("expected job to fire at least once")
	}
}

func TestSchedulerDoubleStartIsNoop(t *testing.T) {
	job := &fakeJob{name: "a"}
	s := New(5*time.Millisecond, job)

	s.Start()
	s.Start() // must not spawn a second loop
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop() // must not block or panic
}

func TestSchedulerIsolatesFailingJob(t *testing.T) {
	failing := &fakeJob{name: "failing", err: errors.New("db down")}
	panicking := &fakeJob{name: "panicking", doPanic: true}
	healthy := &fakeJob{name: "healthy"}

	s := New(5*time.Millisecond, failing, panicking, healthy)

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if healthy.runCount() == 0 {
		t.Fatal("healthy job starved by failing siblings")
	}
	if failing.runCount() == 0 || panicking.runCount() == 0 {
		t.Fatal("expected failing jobs to keep being scheduled")
	}
}

func TestSchedulerStopReturnsPromptly(t *testing.T) {
	s := New(time.Hour, &fakeJob{name: "a"})
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestParseClock(t *testing.T) {
	hour, minute, err := parseClock("10:00")
	if err != nil || hour != 10 || minute != 0 {
		t.Fatalf("parseClock(10:00) = %d:%d, %v", hour, minute, err)
	}

	if _, _, err := parseClock("25:00"); err == nil {
		t.Fatal("expected error for hour 25")
	}
	if _, _, err := parseClock("10:75"); err == nil {
		t.Fatal("expected error for minute 75")
	}
	if _, _, err := parseClock("1000"); err == nil {
		t.Fatal("expected error for missing colon")
	}
}

func TestNextDaily(t *testing.T) {
	// Wednesday 2025-06-11 08:30
	base := time.Date(2025, 6, 11, 8, 30, 0, 0, time.UTC)

	next := nextDaily(base, 10, 0)
	want := time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("before occurrence: got %v, want %v", next, want)
	}

	// Already past today's slot, rolls to tomorrow
	next = nextDaily(base.Add(3*time.Hour), 10, 0)
	want = time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("after occurrence: got %v, want %v", next, want)
	}

	// Exactly at the slot still moves forward, never fires twice
	at := time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)
	next = nextDaily(at, 10, 0)
	if !next.After(at) {
		t.Fatalf("expected strictly later occurrence, got %v", next)
	}
}

func TestNextWeekly(t *testing.T) {
	// Wednesday 2025-06-11
	base := time.Date(2025, 6, 11, 8, 30, 0, 0, time.UTC)

	next := nextWeekly(base, time.Monday, 9, 0)
	want := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("midweek: got %v, want %v", next, want)
	}

	// Monday before 09:00 fires the same day
	monday := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	next = nextWeekly(monday, time.Monday, 9, 0)
	want = time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("same-day: got %v, want %v", next, want)
	}

	// Monday after 09:00 rolls a full week
	next = nextWeekly(monday.Add(2*time.Hour), time.Monday, 9, 0)
	want = time.Date(2025, 6, 23, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("rollover: got %v, want %v", next, want)
	}
}
