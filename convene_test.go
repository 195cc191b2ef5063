package convene

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/convene/agenttype"
	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/internal/testutil"
	"github.com/hupe1980/convene/provider"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []core.Message
}

func (r *recordingBroadcaster) Publish(_ string, _ string, msg core.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, msg)
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newConvene(t *testing.T, completer provider.Completer, optFns ...func(o *Options)) *Convene {
	t.Helper()
	registry := agenttype.NewRegistry()
	require.NoError(t, agenttype.RegisterBuiltins(registry, completer))

	fns := append([]func(o *Options){func(o *Options) { o.Registry = registry }}, optFns...)
	return New(fns...)
}

func TestConvene_CivilMessagePersistedAndBroadcast(t *testing.T) {
	completer := provider.NewMockCompleter()
	completer.SetFallback("OK")
	broadcaster := &recordingBroadcaster{}
	c := newConvene(t, completer, func(o *Options) { o.Broadcaster = broadcaster })

	ctx := context.Background()
	thread, err := c.CreateThread(ctx, "book club", "alice", agenttype.CivilityMonitorID)
	require.NoError(t, err)
	require.Len(t, thread.Agents, 1)
	assert.True(t, thread.EnableAgents)

	created, err := c.PostMessage(ctx, thread.ID, &core.Message{Body: "I loved chapter three", Owner: "alice", Pseudonym: "alice", Visible: true})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Count)
	assert.True(t, created.Visible)
	assert.Equal(t, 1, broadcaster.count())

	msgs, err := c.ThreadMessages(ctx, thread.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestConvene_UncivilMessageRejectedNotPersisted(t *testing.T) {
	completer := provider.NewMockCompleter()
	completer.SetFallback("Try making your point without the personal attack.")
	c := newConvene(t, completer)

	ctx := context.Background()
	thread, err := c.CreateThread(ctx, "book club", "alice", agenttype.CivilityMonitorID)
	require.NoError(t, err)

	_, err = c.PostMessage(ctx, thread.ID, &core.Message{Body: "only an idiot likes this book", Owner: "bob", Pseudonym: "bob", Visible: true})
	require.Error(t, err)

	rej, ok := core.IsRejection(err)
	require.True(t, ok)
	assert.Equal(t, "Try making your point without the personal attack.", rej.Suggestion)

	msgs, err := c.ThreadMessages(ctx, thread.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestConvene_FacilitatorContributesAtActivityFloor(t *testing.T) {
	completer := provider.NewMockCompleter()
	completer.SetFallback("@alice what surprised you the most?")
	c := newConvene(t, completer)

	ctx := context.Background()
	thread, err := c.CreateThread(ctx, "book club", "alice", agenttype.PlayfulFacilitatorID)
	require.NoError(t, err)
	agentID := thread.Agents[0].ID

	// First message is below the two-message floor: accepted, no reply.
	a, err := c.PostMessage(ctx, thread.ID, &core.Message{Body: "the ending confused me", Owner: "alice", Pseudonym: "alice", Visible: true})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Count)

	// Second message reaches the floor: the facilitator contributes.
	b, err := c.PostMessage(ctx, thread.ID, &core.Message{Body: "same, who was the narrator?", Owner: "bob", Pseudonym: "bob", Visible: true})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Count)

	var contribution *core.Message
	require.True(t, testutil.WaitFor(2*time.Second, func() bool {
		msgs, err := c.ThreadMessages(ctx, thread.ID)
		if err != nil {
			return false
		}
		for i := range msgs {
			if msgs[i].FromAgent {
				contribution = &msgs[i]
				return true
			}
		}
		return false
	}))

	assert.Equal(t, "@alice what surprised you the most?", contribution.Body)
	assert.Equal(t, 2, contribution.Count)
	assert.Equal(t, agentID, contribution.Owner)

	require.True(t, testutil.WaitFor(2*time.Second, func() bool {
		fresh, err := c.GetThread(ctx, thread.ID)
		return err == nil && fresh.Agents[0].LastActiveMessageCount == 2
	}))

	// A third message: the agent reply does not count, so the delta is back
	// to one and the facilitator stays quiet.
	d, err := c.PostMessage(ctx, thread.ID, &core.Message{Body: "let us reread it", Owner: "alice", Pseudonym: "alice", Visible: true})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Count)

	require.NoError(t, c.Stop(context.Background()))
	msgs, err := c.ThreadMessages(ctx, thread.ID)
	require.NoError(t, err)
	agentReplies := 0
	for _, m := range msgs {
		if m.FromAgent {
			agentReplies++
		}
	}
	assert.Equal(t, 1, agentReplies)
}

func TestConvene_PeriodicAgentPostsIntroAndContributes(t *testing.T) {
	completer := provider.NewMockCompleter()
	completer.SetFallback("How is everyone feeling about the pace?")

	registry := agenttype.NewRegistry()
	playful := agenttype.NewPlayfulPeriodic(completer)
	period := 30 * time.Millisecond
	playful.TimerPeriod = &period
	require.NoError(t, registry.Register(playful))

	c := New(func(o *Options) { o.Registry = registry })
	ctx := context.Background()

	thread, err := c.CreateThread(ctx, "standup", "carol", agenttype.PlayfulPeriodicID)
	require.NoError(t, err)

	// The intro is posted synchronously at creation, before any timer fire.
	msgs, err := c.ThreadMessages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].FromAgent)
	assert.NotEmpty(t, msgs[0].Body)

	require.NoError(t, c.Start())
	defer c.Stop(context.Background())

	// Two qualifying messages satisfy the periodic floor.
	for _, body := range []string{"yesterday I finished the migration", "today I am writing docs"} {
		_, err := c.PostMessage(ctx, thread.ID, &core.Message{Body: body, Owner: "carol", Pseudonym: "carol", Visible: true})
		require.NoError(t, err)
	}

	assert.True(t, testutil.WaitFor(2*time.Second, func() bool {
		msgs, err := c.ThreadMessages(ctx, thread.ID)
		if err != nil {
			return false
		}
		contributions := 0
		for _, m := range msgs {
			if m.FromAgent && m.Body == "How is everyone feeling about the pace?" {
				contributions++
			}
		}
		return contributions >= 1
	}))
}

func TestConvene_LockedThreadRejectsPosts(t *testing.T) {
	c := newConvene(t, provider.NewMockCompleter())
	ctx := context.Background()

	thread, err := c.CreateThread(ctx, "archive", "alice")
	require.NoError(t, err)
	require.NoError(t, c.SetThreadLocked(ctx, thread.ID, true))

	_, err = c.PostMessage(ctx, thread.ID, &core.Message{Body: "anyone here?", Owner: "bob", Pseudonym: "bob", Visible: true})
	assert.ErrorIs(t, err, core.ErrThreadLocked)

	require.NoError(t, c.SetThreadLocked(ctx, thread.ID, false))
	_, err = c.PostMessage(ctx, thread.ID, &core.Message{Body: "anyone here?", Owner: "bob", Pseudonym: "bob", Visible: true})
	assert.NoError(t, err)
}

func TestConvene_ThreadWithoutAgentsHasAgentsDisabled(t *testing.T) {
	c := newConvene(t, provider.NewMockCompleter())
	ctx := context.Background()

	thread, err := c.CreateThread(ctx, "plain", "alice")
	require.NoError(t, err)
	assert.False(t, thread.EnableAgents)

	created, err := c.PostMessage(ctx, thread.ID, &core.Message{Body: "hello", Owner: "alice", Pseudonym: "alice", Visible: true})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Count)
}

func TestConvene_CreateThreadUnknownTypeFails(t *testing.T) {
	c := newConvene(t, provider.NewMockCompleter())
	_, err := c.CreateThread(context.Background(), "x", "alice", "no-such-type")
	assert.ErrorIs(t, err, core.ErrTypeNotRegistered)
}

func TestConvene_AddAgentInitializesWithIntro(t *testing.T) {
	completer := provider.NewMockCompleter()
	c := newConvene(t, completer)
	ctx := context.Background()

	thread, err := c.CreateThread(ctx, "book club", "alice")
	require.NoError(t, err)

	agent, err := c.AddAgent(ctx, thread.ID, agenttype.PlayfulPeriodicID, "Sparky")
	require.NoError(t, err)
	assert.Equal(t, "Sparky", agent.Pseudonym)

	fresh, err := c.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.True(t, fresh.EnableAgents)
	require.Len(t, fresh.Agents, 1)

	msgs, err := c.ThreadMessages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Sparky", msgs[0].Pseudonym)
	assert.True(t, msgs[0].FromAgent)
}

func TestConvene_DeleteThreadRemovesEverything(t *testing.T) {
	c := newConvene(t, provider.NewMockCompleter())
	ctx := context.Background()

	thread, err := c.CreateThread(ctx, "ephemeral", "alice", agenttype.PlayfulPeriodicID)
	require.NoError(t, err)

	require.NoError(t, c.DeleteThread(ctx, thread.ID))

	_, err = c.GetThread(ctx, thread.ID)
	assert.ErrorIs(t, err, core.ErrThreadNotFound)
	_, err = c.ThreadMessages(ctx, thread.ID)
	assert.ErrorIs(t, err, core.ErrThreadNotFound)
}

func TestConvene_PostToUnknownThread(t *testing.T) {
	c := newConvene(t, provider.NewMockCompleter())
	_, err := c.PostMessage(context.Background(), "missing", &core.Message{Body: "x", Visible: true})
	assert.ErrorIs(t, err, core.ErrThreadNotFound)
}
