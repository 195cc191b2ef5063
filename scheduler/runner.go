package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/logging"
)

// InProcessRunner executes recurring jobs on goroutine-backed tickers. Jobs
// scheduled before Start are held and launched when Start is called; jobs
// scheduled afterwards launch immediately. Scheduling an existing name
// replaces the prior registration, so at most one recurring job exists per
// name at any time.
type InProcessRunner struct {
	logger logging.Logger

	mu       sync.Mutex
	handlers map[string]core.JobHandler
	jobs     map[string]*job
	started  bool
	baseCtx  context.Context
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

type job struct {
	name          string
	period        time.Duration
	payload       string
	skipImmediate bool
	cancel        context.CancelFunc
}

// RunnerOptions configure an InProcessRunner.
type RunnerOptions struct {
	Logger logging.Logger
}

// NewInProcessRunner constructs a stopped runner.
func NewInProcessRunner(optFns ...func(o *RunnerOptions)) *InProcessRunner {
	opts := RunnerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InProcessRunner{
		logger:   opts.Logger,
		handlers: make(map[string]core.JobHandler),
		jobs:     make(map[string]*job),
	}
}

// Define implements core.JobRunner.
func (r *InProcessRunner) Define(name string, handler core.JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Schedule implements core.JobRunner.
func (r *InProcessRunner) Schedule(name string, period time.Duration, payload string, opts core.ScheduleOptions) error {
	if period <= 0 {
		return fmt.Errorf("schedule %s: period must be positive", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[name]; !ok {
		return fmt.Errorf("schedule %s: no handler defined", name)
	}

	// Replace any existing registration under the same name.
	if existing, ok := r.jobs[name]; ok && existing.cancel != nil {
		existing.cancel()
	}

	j := &job{name: name, period: period, payload: payload, skipImmediate: opts.SkipImmediate}
	r.jobs[name] = j
	if r.started {
		r.launchLocked(j)
	}
	return nil
}

// Cancel implements core.JobRunner.
func (r *InProcessRunner) Cancel(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[name]; ok {
		if j.cancel != nil {
			j.cancel()
		}
		delete(r.jobs, name)
		delete(r.handlers, name)
	}
	return nil
}

// Start implements core.JobRunner. It launches all held jobs and is a no-op
// when already started.
func (r *InProcessRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	r.baseCtx, r.cancel = context.WithCancel(context.Background())
	r.started = true
	for _, j := range r.jobs {
		r.launchLocked(j)
	}
	return nil
}

// Stop implements core.JobRunner. It cancels all jobs and waits for in-flight
// fires to return or ctx to expire.
func (r *InProcessRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launchLocked starts the ticker goroutine for j; caller holds r.mu.
func (r *InProcessRunner) launchLocked(j *job) {
	jobCtx, cancel := context.WithCancel(r.baseCtx)
	j.cancel = cancel
	handler := r.handlers[j.name]

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if !j.skipImmediate {
			r.fire(jobCtx, j, handler)
		}

		ticker := time.NewTicker(j.period)
		defer ticker.Stop()
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				r.fire(jobCtx, j, handler)
			}
		}
	}()
}

// fire runs one handler invocation, containing panics so a single bad fire
// never tears down the recurring registration.
func (r *InProcessRunner) fire(ctx context.Context, j *job, handler core.JobHandler) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job handler panicked", "job", j.name, "panic", fmt.Sprint(rec))
		}
	}()
	handler(ctx, j.payload)
}
