// Package schedule runs recurring background work, such as the sweep that
// expires stale pending orders.
//
//	schedule.Hourly().Name("orders.expire_pending").WithoutOverlapping().Run(sweep)
//	schedule.Every(10).Minutes().Run(refresh)
//	schedule.Cron("0 3 * * *").Run(nightly)
//
//	schedule.Start(ctx) // once, at boot
package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adityaraj/bazario/pkg/logger"
)

// Task is one unit of scheduled work.
type Task func()

type job struct {
	mu        sync.Mutex
	id        string
	every     time.Duration
	cron      string
	task      Task
	lastRun   time.Time
	active    bool
	noOverlap bool
}

var (
	regMu sync.Mutex
	jobs  []*job
)

// Schedule builds one job before registration.
type Schedule struct{ j *job }

// Every begins an interval: Every(5).Minutes() and so on.
func Every(n int) *unitBuilder { return &unitBuilder{n: n} }

// EveryMinute runs the task once a minute.
func EveryMinute() *Schedule { return Every(1).Minutes() }

// Hourly runs the task once an hour.
func Hourly() *Schedule { return Every(1).Hours() }

// Daily runs the task once a day.
func Daily() *Schedule { return Every(24).Hours() }

// Cron takes a 5-field expression: minute hour dom month dow.
func Cron(expr string) *Schedule { return &Schedule{j: &job{cron: expr}} }

type unitBuilder struct{ n int }

func (u *unitBuilder) Seconds() *Schedule {
	return &Schedule{j: &job{every: time.Duration(u.n) * time.Second}}
}
func (u *unitBuilder) Minutes() *Schedule {
	return &Schedule{j: &job{every: time.Duration(u.n) * time.Minute}}
}
func (u *unitBuilder) Hours() *Schedule {
	return &Schedule{j: &job{every: time.Duration(u.n) * time.Hour}}
}
func (u *unitBuilder) Days() *Schedule {
	return &Schedule{j: &job{every: time.Duration(u.n) * 24 * time.Hour}}
}

// Name labels the job in logs and the schedule:run listing.
func (s *Schedule) Name(id string) *Schedule {
	s.j.id = id
	return s
}

// WithoutOverlapping skips a tick while the previous run is still going.
func (s *Schedule) WithoutOverlapping() *Schedule {
	s.j.noOverlap = true
	return s
}

// Run registers the job. Nothing executes until Start.
func (s *Schedule) Run(fn Task) {
	s.j.task = fn
	regMu.Lock()
	if s.j.id == "" {
		s.j.id = fmt.Sprintf("task-%d", len(jobs)+1)
	}
	jobs = append(jobs, s.j)
	regMu.Unlock()
}

// Start launches the dispatch loop and returns immediately. The loop stops
// when ctx is cancelled.
func Start(ctx context.Context) {
	go loop(ctx)
	logger.Info("schedule: scheduler started")
}

func loop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("schedule: scheduler stopped")
			return
		case now := <-ticker.C:
			regMu.Lock()
			snapshot := append([]*job(nil), jobs...)
			regMu.Unlock()

			for _, j := range snapshot {
				j.maybeRun(now)
			}
		}
	}
}

func (j *job) maybeRun(now time.Time) {
	j.mu.Lock()
	if !j.due(now) || (j.noOverlap && j.active) {
		skipOverlap := j.due(now) && j.noOverlap && j.active
		j.mu.Unlock()
		if skipOverlap {
			logger.Warn("schedule: skipping overlapping task", "id", j.id)
		}
		return
	}
	j.active = true
	j.lastRun = now
	j.mu.Unlock()

	go func() {
		defer func() {
			j.mu.Lock()
			j.active = false
			j.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", j.id, "panic", r)
			}
		}()
		logger.Info("schedule: running task", "id", j.id)
		j.task()
	}()
}

// due must be called with j.mu held.
func (j *job) due(now time.Time) bool {
	if j.cron != "" {
		// One firing per matching minute, even though the loop ticks per second.
		return cronMatches(j.cron, now) && !j.lastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute))
	}
	if j.lastRun.IsZero() {
		return true
	}
	return now.Sub(j.lastRun) >= j.every
}

// cronMatches evaluates a 5-field expression. Fields accept *, a number,
// */step, or a-b ranges.
func cronMatches(expr string, t time.Time) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	values := []int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, field := range fields {
		if !fieldMatches(field, values[i]) {
			return false
		}
	}
	return true
}

func fieldMatches(field string, val int) bool {
	switch {
	case field == "*":
		return true
	case strings.HasPrefix(field, "*/"):
		var step int
		fmt.Sscanf(field[2:], "%d", &step)
		return step > 0 && val%step == 0
	case strings.Contains(field, "-"):
		var lo, hi int
		fmt.Sscanf(field, "%d-%d", &lo, &hi)
		return val >= lo && val <= hi
	default:
		var n int
		fmt.Sscanf(field, "%d", &n)
		return n == val
	}
}

// List describes every registered job for the schedule:run command.
func List() []string {
	regMu.Lock()
	defer regMu.Unlock()
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		freq := j.cron
		if freq == "" {
			freq = j.every.String()
		}
		out = append(out, fmt.Sprintf("%s  [%s]", j.id, freq))
	}
	return out
}
