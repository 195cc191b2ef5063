package core

import (
	"context"
	"time"
)

// JobHandler executes one fire of a recurring job. The payload is the value
// supplied at scheduling time (for agent jobs, the agent id).
type JobHandler func(ctx context.Context, payload string)

// ScheduleOptions tune job registration.
type ScheduleOptions struct {
	// SkipImmediate suppresses the fire at registration time; the first fire
	// occurs one period after scheduling.
	SkipImmediate bool
}

// JobRunner is the process-wide recurring-job collaborator. Jobs are keyed by
// a stable name; scheduling an existing name replaces the prior registration
// so at most one recurring job exists per name. The runner executes fires
// concurrently with request handling.
type JobRunner interface {
	// Define registers the handler executed on each fire of the named job.
	Define(name string, handler JobHandler)

	// Schedule registers (or replaces) a recurring job.
	Schedule(name string, period time.Duration, payload string, opts ScheduleOptions) error

	// Cancel removes a pending recurring job. Cancelling an unknown name is
	// a no-op.
	Cancel(name string) error

	// Start begins executing scheduled jobs.
	Start() error

	// Stop cancels all jobs and waits for in-flight fires to return, or for
	// ctx to expire.
	Stop(ctx context.Context) error
}
