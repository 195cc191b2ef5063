package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/internal/testutil"
	"github.com/hupe1980/convene/store/memory"
)

// fakeRunner records registrations and lets tests fire handlers by hand.
type fakeRunner struct {
	mu        sync.Mutex
	handlers  map[string]core.JobHandler
	schedules []scheduleCall
	cancels   []string
}

type scheduleCall struct {
	name    string
	period  time.Duration
	payload string
	opts    core.ScheduleOptions
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{handlers: make(map[string]core.JobHandler)}
}

func (r *fakeRunner) Define(name string, handler core.JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

func (r *fakeRunner) Schedule(name string, period time.Duration, payload string, opts core.ScheduleOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules = append(r.schedules, scheduleCall{name: name, period: period, payload: payload, opts: opts})
	return nil
}

func (r *fakeRunner) Cancel(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels = append(r.cancels, name)
	return nil
}

func (r *fakeRunner) Start() error { return nil }

func (r *fakeRunner) Stop(context.Context) error { return nil }

// fire invokes the recorded handler for name with the scheduled payload.
func (r *fakeRunner) fire(t *testing.T, name, payload string) {
	r.mu.Lock()
	handler, ok := r.handlers[name]
	r.mu.Unlock()
	require.True(t, ok, "no handler defined for %s", name)
	handler(context.Background(), payload)
}

// countingCycles counts periodic cycle invocations per agent.
type countingCycles struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingCycles) RunPeriodicCycle(_ context.Context, agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, agentID)
}

func (c *countingCycles) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// noopBehavior satisfies core.Behavior for type fixtures.
type noopBehavior struct{}

func (noopBehavior) Initialize(context.Context) error { return nil }
func (noopBehavior) Evaluate(context.Context, *core.BehaviorContext, core.Trigger) (*core.Evaluation, error) {
	return &core.Evaluation{Action: core.ActionOK, UserContributionVisible: true}, nil
}
func (noopBehavior) Respond(context.Context, *core.BehaviorContext, core.Trigger) ([]core.Draft, error) {
	return nil, nil
}
func (noopBehavior) IsWithinTokenLimit(string) bool { return true }

type fixedTypes map[string]*core.AgentType

func (s fixedTypes) Get(id string) (*core.AgentType, error) {
	t, ok := s[id]
	if !ok {
		return nil, core.ErrTypeNotRegistered
	}
	return t, nil
}

func periodicType(id string, intro string) *core.AgentType {
	period := 30 * time.Second
	return &core.AgentType{
		ID:           id,
		Name:         id,
		MaxTokens:    2000,
		TimerPeriod:  &period,
		IntroMessage: intro,
		Behavior:     noopBehavior{},
	}
}

func messageType(id string) *core.AgentType {
	return &core.AgentType{ID: id, Name: id, MaxTokens: 2000, Behavior: noopBehavior{}}
}

func TestInitialize_PeriodicRegistersJobWithImmediateFireSuppressed(t *testing.T) {
	runner := newFakeRunner()
	cycles := &countingCycles{}
	store := memory.NewStore()
	types := fixedTypes{"periodic": periodicType("periodic", "")}
	s := New(runner, cycles, store, types)

	thread := testutil.NewThread("topic").WithAgent("a1", "periodic", "Periodic").MustCreate(t, store)
	agent := thread.Agents[0]

	require.NoError(t, s.Initialize(context.Background(), agent, false))

	require.Len(t, runner.schedules, 1)
	call := runner.schedules[0]
	assert.Equal(t, "agent:a1", call.name)
	assert.Equal(t, 30*time.Second, call.period)
	assert.Equal(t, "a1", call.payload)
	assert.True(t, call.opts.SkipImmediate)

	runner.fire(t, "agent:a1", "a1")
	assert.Equal(t, 1, cycles.count())
}

func TestInitialize_IntroPostedBeforeAnyTimerFire(t *testing.T) {
	runner := newFakeRunner()
	cycles := &countingCycles{}
	store := memory.NewStore()
	types := fixedTypes{"periodic": periodicType("periodic", "Hello, I am here to help.")}
	s := New(runner, cycles, store, types)

	thread := testutil.NewThread("topic").WithAgent("a1", "periodic", "Greeter").MustCreate(t, store)
	agent := thread.Agents[0]

	require.NoError(t, s.Initialize(context.Background(), agent, true))

	// The intro is persisted synchronously, before the runner has fired once.
	msgs, err := store.ThreadMessages(context.Background(), thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello, I am here to help.", msgs[0].Body)
	assert.True(t, msgs[0].FromAgent)
	assert.Equal(t, "Greeter", msgs[0].Pseudonym)
	assert.Equal(t, 0, cycles.count())
}

func TestInitialize_IntroSentExactlyOnce(t *testing.T) {
	runner := newFakeRunner()
	store := memory.NewStore()
	types := fixedTypes{"periodic": periodicType("periodic", "Hello!")}
	s := New(runner, &countingCycles{}, store, types)

	thread := testutil.NewThread("topic").WithAgent("a1", "periodic", "Greeter").MustCreate(t, store)
	agent := thread.Agents[0]

	require.NoError(t, s.Initialize(context.Background(), agent, true))
	require.NoError(t, s.Initialize(context.Background(), agent, false))

	msgs, err := store.ThreadMessages(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestInitialize_MissingIntroSkippedGracefully(t *testing.T) {
	runner := newFakeRunner()
	store := memory.NewStore()
	types := fixedTypes{"periodic": periodicType("periodic", "")}
	s := New(runner, &countingCycles{}, store, types)

	thread := testutil.NewThread("topic").WithAgent("a1", "periodic", "Silent").MustCreate(t, store)
	agent := thread.Agents[0]

	require.NoError(t, s.Initialize(context.Background(), agent, true))

	msgs, err := store.ThreadMessages(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestInitialize_MessageTriggeredTypeRegistersNoJob(t *testing.T) {
	runner := newFakeRunner()
	store := memory.NewStore()
	types := fixedTypes{"reactive": messageType("reactive")}
	s := New(runner, &countingCycles{}, store, types)

	thread := testutil.NewThread("topic").WithAgent("a1", "reactive", "Reactive").MustCreate(t, store)
	agent := thread.Agents[0]

	require.NoError(t, s.Initialize(context.Background(), agent, false))
	assert.Empty(t, runner.schedules)
}

func TestInitialize_UnknownTypeFails(t *testing.T) {
	runner := newFakeRunner()
	s := New(runner, &countingCycles{}, memory.NewStore(), fixedTypes{})

	agent := &core.Agent{ID: "a1", TypeID: "missing", ThreadID: "t1"}
	err := s.Initialize(context.Background(), agent, false)
	assert.ErrorIs(t, err, core.ErrTypeNotRegistered)
}

func TestCancel_InvalidatesInFlightFire(t *testing.T) {
	runner := newFakeRunner()
	cycles := &countingCycles{}
	store := memory.NewStore()
	types := fixedTypes{"periodic": periodicType("periodic", "")}
	s := New(runner, cycles, store, types)

	thread := testutil.NewThread("topic").WithAgent("a1", "periodic", "Periodic").MustCreate(t, store)
	agent := thread.Agents[0]

	require.NoError(t, s.Initialize(context.Background(), agent, false))
	s.Cancel(agent.ID)

	assert.Contains(t, runner.cancels, "agent:a1")

	// A fire from the superseded registration detects the epoch change and
	// no-ops.
	runner.fire(t, "agent:a1", "a1")
	assert.Equal(t, 0, cycles.count())
}

func TestInitialize_ReinitializationSupersedesOldEpoch(t *testing.T) {
	runner := newFakeRunner()
	cycles := &countingCycles{}
	store := memory.NewStore()
	types := fixedTypes{"periodic": periodicType("periodic", "")}
	s := New(runner, cycles, store, types)

	thread := testutil.NewThread("topic").WithAgent("a1", "periodic", "Periodic").MustCreate(t, store)
	agent := thread.Agents[0]

	require.NoError(t, s.Initialize(context.Background(), agent, false))
	oldHandler := runner.handlers["agent:a1"]

	require.NoError(t, s.Initialize(context.Background(), agent, false))

	// The first registration's handler is stale and must not run a cycle.
	oldHandler(context.Background(), "a1")
	assert.Equal(t, 0, cycles.count())

	// The current registration still fires.
	runner.fire(t, "agent:a1", "a1")
	assert.Equal(t, 1, cycles.count())
}

func TestCancelThread_CancelsEveryAgent(t *testing.T) {
	runner := newFakeRunner()
	store := memory.NewStore()
	types := fixedTypes{"periodic": periodicType("periodic", "")}
	s := New(runner, &countingCycles{}, store, types)

	thread := testutil.NewThread("topic").
		WithAgent("a1", "periodic", "One").
		WithAgent("a2", "periodic", "Two").
		MustCreate(t, store)

	for _, a := range thread.Agents {
		require.NoError(t, s.Initialize(context.Background(), a, false))
	}

	s.CancelThread(thread)
	assert.ElementsMatch(t, []string{"agent:a1", "agent:a2"}, runner.cancels)
}
