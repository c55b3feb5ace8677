// Package realtime owns the push-event subscription used to reconcile
// grading state across examiner dashboards. The manager replaces the old
// process-wide client: it is constructor-injected, has an explicit
// Start/Stop lifecycle, and serializes reconnection attempts itself so
// reconnects and teardown never race.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
)

// ErrConnectionExhausted indicates the reconnect budget is spent; the
// consumer runs in degraded mode until restarted.
var ErrConnectionExhausted = errors.New("realtime connection attempts exhausted")

// State describes the connection lifecycle.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateStopped
	StateExhausted
)

// DefaultMaxAttempts bounds the reconnect loop when no cap is configured.
const DefaultMaxAttempts = 10

// reconnectDelays is the capped backoff schedule; attempts past the end
// repeat the final delay.
var reconnectDelays = []time.Duration{
	0,
	2 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// ReconnectDelay returns the wait before the given 1-based attempt.
func ReconnectDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	if attempt > len(reconnectDelays) {
		return reconnectDelays[len(reconnectDelays)-1]
	}
	return reconnectDelays[attempt-1]
}

// EventHandler consumes a decoded submission event.
type EventHandler func(event dto.SubmissionEvent)

// Options configures the manager. Redis and NATS are both optional; with
// both set the manager publishes to and consumes from the two brokers the
// same way the rest of the platform does.
type Options struct {
	Redis       *redis.Client
	Channel     string
	NATS        *nats.Conn
	Subject     string
	MaxAttempts int
	Logger      zerolog.Logger
}

// Manager is the single owner of the logical push subscription.
type Manager struct {
	redis       *redis.Client
	channel     string
	nats        *nats.Conn
	subject     string
	maxAttempts int
	logger      zerolog.Logger
	nodeID      string

	mu         sync.RWMutex
	onCreated  EventHandler
	onUpdated  EventHandler
	onDegraded func(error)

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}

	// overridable in tests
	connect func(ctx context.Context, onUp func()) error
	wait    func(ctx context.Context, delay time.Duration) bool
}

// NewManager builds a manager around the supplied brokers.
func NewManager(opts Options) *Manager {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	m := &Manager{
		redis:       opts.Redis,
		channel:     opts.Channel,
		nats:        opts.NATS,
		subject:     opts.Subject,
		maxAttempts: maxAttempts,
		logger:      opts.Logger.With().Str("component", "realtime_manager").Logger(),
		nodeID:      uuid.NewString(),
	}
	m.connect = m.connectBrokers
	m.wait = waitWithContext
	m.state.Store(int32(StateIdle))

	return m
}

// OnSubmissionCreated registers the handler for created events.
func (m *Manager) OnSubmissionCreated(fn EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreated = fn
}

// OnSubmissionUpdated registers the handler for updated events.
func (m *Manager) OnSubmissionUpdated(fn EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdated = fn
}

// OffSubmissionCreated removes the created handler.
func (m *Manager) OffSubmissionCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreated = nil
}

// OffSubmissionUpdated removes the updated handler.
func (m *Manager) OffSubmissionUpdated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdated = nil
}

// OnDegraded registers the callback fired once the reconnect budget is
// exhausted.
func (m *Manager) OnDegraded(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDegraded = fn
}

// State exposes the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Start launches the subscription loop. Reconnection attempts are
// serialized inside the loop; Start itself never blocks.
func (m *Manager) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.state.Store(int32(StateConnecting))

	go m.run(runCtx)
}

// Stop tears the subscription down. All handlers are unsubscribed before
// the connection closes, so no stale callback can fire afterwards.
func (m *Manager) Stop() {
	m.OffSubmissionCreated()
	m.OffSubmissionUpdated()

	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		<-m.done
	}
	m.state.Store(int32(StateStopped))
}

// Publish fans a submission event out to the configured brokers.
func (m *Manager) Publish(ctx context.Context, kind string, payload dto.SubmissionEventPayload) error {
	event := dto.SubmissionEvent{
		Kind:    kind,
		Source:  m.nodeID,
		SentAt:  time.Now().UTC(),
		Payload: payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Local handlers see the event immediately: the brokers echo our own
	// publishes back and dispatch drops those, so this is the only delivery
	// a dashboard on this node gets for its own mutations.
	m.deliver(event)

	if m.redis != nil && m.channel != "" {
		if err := m.redis.Publish(ctx, m.channel, data).Err(); err != nil {
			return err
		}
	}

	if m.nats != nil && m.subject != "" {
		if err := m.nats.Publish(m.subject, data); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		attempt++
		if attempt > m.maxAttempts {
			m.state.Store(int32(StateExhausted))
			m.logger.Error().Int("attempts", m.maxAttempts).Msg("realtime reconnect budget exhausted")
			m.notifyDegraded(ErrConnectionExhausted)
			return
		}

		if !m.wait(ctx, ReconnectDelay(attempt)) {
			return
		}

		m.state.Store(int32(StateConnecting))
		err := m.connect(ctx, func() {
			attempt = 0
			m.state.Store(int32(StateConnected))
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.logger.Warn().Err(err).Int("attempt", attempt).Msg("realtime subscription dropped")
		}
	}
}

// connectBrokers establishes the broker subscriptions and blocks until the
// context ends or the subscription fails.
func (m *Manager) connectBrokers(ctx context.Context, onUp func()) error {
	var natsSub *nats.Subscription
	if m.nats != nil && m.subject != "" {
		sub, err := m.nats.Subscribe(m.subject, func(msg *nats.Msg) {
			m.dispatch(msg.Data)
		})
		if err != nil {
			return err
		}
		natsSub = sub
		defer func() {
			if err := natsSub.Drain(); err != nil {
				m.logger.Warn().Err(err).Msg("failed to drain realtime nats subscription")
			}
		}()
	}

	if m.redis == nil || m.channel == "" {
		if natsSub == nil {
			return errors.New("no realtime broker configured")
		}
		onUp()
		<-ctx.Done()
		return nil
	}

	pubsub := m.redis.Subscribe(ctx, m.channel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	onUp()

	// Consume through the channel so teardown can interrupt the read: a
	// blocking ReceiveMessage would not observe ctx and Stop would hang on
	// the run loop forever.
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("realtime redis subscription closed")
			}
			m.dispatch([]byte(msg.Payload))
		}
	}
}

func (m *Manager) dispatch(data []byte) {
	var event dto.SubmissionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		m.logger.Warn().Err(err).Msg("invalid realtime event payload")
		return
	}

	// Our own publishes were already delivered locally in Publish; the
	// broker echo would double-apply them.
	if event.Source == m.nodeID {
		return
	}

	m.deliver(event)
}

func (m *Manager) deliver(event dto.SubmissionEvent) {
	m.mu.RLock()
	created := m.onCreated
	updated := m.onUpdated
	m.mu.RUnlock()

	switch event.Kind {
	case dto.EventSubmissionCreated:
		if created != nil {
			created(event)
		}
	case dto.EventSubmissionUpdated:
		if updated != nil {
			updated(event)
		}
	default:
		m.logger.Debug().Str("kind", event.Kind).Msg("ignoring unknown realtime event kind")
	}
}

func (m *Manager) notifyDegraded(err error) {
	m.mu.RLock()
	fn := m.onDegraded
	m.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func waitWithContext(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
