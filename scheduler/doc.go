// Package scheduler drives periodic agents. It contains two pieces:
//
//   - InProcessRunner, a process-wide recurring-job runner implementing
//     core.JobRunner with explicit Start/Stop lifecycle. It is an injected
//     collaborator rather than a module-level singleton so tests can run
//     multiple isolated instances deterministically.
//
//   - Scheduler, which owns the cadence for periodic agents: one recurring
//     job per agent keyed by a stable job name, immediate fire suppressed,
//     intro-message posting on initialization, and an epoch counter per
//     agent so a late-firing stale timer detects it has been superseded and
//     no-ops instead of relying on best-effort cancellation alone.
package scheduler
