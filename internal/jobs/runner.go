// Package jobs runs recurring cron jobs and one-shot jobs at a fixed time.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/lojf/habits/internal/logger"
)

var ErrStopped = errors.New("job runner stopped")

type Func func(ctx context.Context)

// Runner executes jobs in their own goroutines. Every job gets a context
// that is cancelled by Stop.
type Runner struct {
	cron *cron.Cron
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func NewRunner(loc *time.Location) *Runner {
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron:   cron.New(cron.WithLocation(loc)),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[string]*time.Timer),
	}
}

// Every registers fn on a standard five-field cron spec. Jobs start firing
// after Start.
func (r *Runner) Every(spec, name string, fn Func) error {
	_, err := r.cron.AddFunc(spec, func() { r.run(name, "", fn) })
	return err
}

// At runs fn once, at or after at. A time in the past runs right away.
// It returns the job id.
func (r *Runner) At(at time.Time, name string, fn Func) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return "", ErrStopped
	}

	id := uuid.NewString()
	delay := at.Sub(r.now())
	if delay < 0 {
		delay = 0
	}
	r.timers[id] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, id)
		r.mu.Unlock()
		r.run(name, id, fn)
	})
	logger.Debug("job scheduled", "job", name, "id", id, "at", at.Format(time.RFC3339))
	return id, nil
}

// Pending returns the number of one-shot jobs that have not fired yet.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (r *Runner) Start() { r.cron.Start() }

// Stop drops pending one-shot jobs, stops the cron schedule, cancels the
// context of running jobs and waits for them to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) run(name, id string, fn Func) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("job panicked", "job", name, "id", id, "panic", p)
		}
	}()
	start := r.now()
	fn(r.ctx)
	logger.Debug("job finished", "job", name, "id", id, "dur", time.Since(start))
}
