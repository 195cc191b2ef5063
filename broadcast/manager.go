package broadcast

import (
	"context"

	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/logging"
)

// Event is one delivered notification: a named event on a thread channel
// carrying the persisted message.
type Event struct {
	ThreadID string       `json:"thread_id"`
	Name     string       `json:"event"`
	Message  core.Message `json:"message"`
}

const (
	opSubscribe = iota
	opUnsubscribe
	opSend
)

type operation struct {
	op  int
	sub *Subscriber
	evt Event
}

// Subscriber receives the live feed of one thread channel.
type Subscriber struct {
	threadID string
	outgoing chan Event
	manager  *Manager
}

// Events returns the subscriber's delivery channel. It is closed when the
// subscriber is removed or the manager stops.
func (s *Subscriber) Events() <-chan Event { return s.outgoing }

// Close unsubscribes and releases the delivery channel.
func (s *Subscriber) Close() { s.manager.unsubscribe(s) }

// Options configure a Manager.
type Options struct {
	// OpBufferSize is the operations channel buffer. When full, published
	// events are dropped (delivery is best-effort by contract).
	OpBufferSize int

	// SubscriberBufferSize is each subscriber's delivery buffer. A full
	// buffer drops the event for that subscriber only.
	SubscriberBufferSize int

	// Logger provides structured logging. Defaults to NoOp logger if nil.
	Logger logging.Logger
}

// Manager is an in-process core.Broadcaster with per-thread subscriber
// channels.
type Manager struct {
	ops    chan *operation
	closed chan struct{}
	logger logging.Logger

	subBuffer int
	subs      map[string][]*Subscriber // keyed by thread id; loop-owned
}

// NewManager constructs a stopped manager; call Start before publishing.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{
		OpBufferSize:         256,
		SubscriberBufferSize: 16,
		Logger:               logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		ops:       make(chan *operation, opts.OpBufferSize),
		closed:    make(chan struct{}),
		logger:    opts.Logger,
		subBuffer: opts.SubscriberBufferSize,
		subs:      make(map[string][]*Subscriber),
	}
}

// Start launches the fan-out loop.
func (m *Manager) Start() {
	go m.run()
}

// Stop terminates the fan-out loop and closes all subscriber channels.
func (m *Manager) Stop(_ context.Context) error {
	close(m.closed)
	return nil
}

func (m *Manager) run() {
	for {
		select {
		case <-m.closed:
			for _, subs := range m.subs {
				for _, s := range subs {
					close(s.outgoing)
				}
			}
			m.subs = make(map[string][]*Subscriber)
			return

		case op := <-m.ops:
			switch op.op {
			case opSubscribe:
				m.subs[op.sub.threadID] = append(m.subs[op.sub.threadID], op.sub)

			case opUnsubscribe:
				subs := m.subs[op.sub.threadID]
				for i, s := range subs {
					if s == op.sub {
						subs[i] = subs[len(subs)-1]
						m.subs[op.sub.threadID] = subs[:len(subs)-1]
						close(s.outgoing)
						break
					}
				}

			case opSend:
				for _, s := range m.subs[op.evt.ThreadID] {
					select {
					case s.outgoing <- op.evt:
					default:
						m.logger.Warn("subscriber overflow, event dropped",
							"thread_id", op.evt.ThreadID)
					}
				}
			}
		}
	}
}

// Subscribe registers a new subscriber for the thread's channel. There is no
// replay: only messages published after subscription are delivered.
func (m *Manager) Subscribe(threadID string) *Subscriber {
	sub := &Subscriber{
		threadID: threadID,
		outgoing: make(chan Event, m.subBuffer),
		manager:  m,
	}
	m.submit(&operation{op: opSubscribe, sub: sub})
	return sub
}

func (m *Manager) unsubscribe(sub *Subscriber) {
	m.submit(&operation{op: opUnsubscribe, sub: sub})
}

// Publish implements core.Broadcaster. Delivery failures are non-fatal: when
// the manager is stopped or saturated the event is dropped and logged.
func (m *Manager) Publish(threadID, event string, msg core.Message) {
	m.submit(&operation{op: opSend, evt: Event{ThreadID: threadID, Name: event, Message: msg}})
}

func (m *Manager) submit(op *operation) {
	select {
	case <-m.closed:
		m.logger.Debug("broadcast manager stopped, operation dropped")
	case m.ops <- op:
	default:
		m.logger.Warn("broadcast operation buffer full, operation dropped")
	}
}
