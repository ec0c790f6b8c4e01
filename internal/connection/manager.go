package connection

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Manager owns the streaming connection and its subscriptions.
type Manager interface {
	// Start dials the server and begins forwarding messages.
	Start(ctx context.Context) error

	// Stop closes the connection and the output channel.
	Stop(ctx context.Context) error

	// Subscribe registers a subscription. It is sent immediately when
	// connected and replayed after every reconnect.
	Subscribe(sub Subscription) error

	// Unsubscribe removes a subscription.
	Unsubscribe(sub Subscription) error

	// Messages returns channel of raw messages for the router.
	Messages() <-chan RawMessage

	// Stats returns current connection and subscription statistics.
	Stats() ManagerStats
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	Connected     bool
	Session       int
	Subscriptions int
	Reconnects    int64
	Forwarded     int64
	Dropped       int64
}

// ClientFactory creates the client for each connection attempt.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

// manager implements the Manager interface.
type manager struct {
	cfg       ManagerConfig
	logger    *slog.Logger
	newClient ClientFactory

	// Output to router
	out chan RawMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Connection and subscriptions, guarded together so a reconnect replays
	// exactly the set that Subscribe has seen.
	mu      sync.Mutex
	client  Client
	session int
	subs    map[string]Subscription

	reconnects atomic.Int64
	forwarded  atomic.Int64
	dropped    atomic.Int64
}

// ManagerOption customizes a Manager.
type ManagerOption func(*manager)

// WithClientFactory replaces the WebSocket client constructor.
func WithClientFactory(f ClientFactory) ManagerOption {
	return func(m *manager) { m.newClient = f }
}

// NewManager creates a new Manager.
func NewManager(cfg ManagerConfig, logger *slog.Logger, opts ...ManagerOption) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = DefaultManagerConfig().ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait < cfg.ReconnectBaseWait {
		cfg.ReconnectMaxWait = cfg.ReconnectBaseWait
	}

	m := &manager{
		cfg:       cfg,
		logger:    logger,
		newClient: NewClient,
		out:       make(chan RawMessage, cfg.MessageBufferSize),
		subs:      make(map[string]Subscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start dials the server and begins forwarding messages.
func (m *manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	c := m.newClient(m.cfg.Client, m.logger)
	if err := c.Connect(m.ctx); err != nil {
		m.cancel()
		return err
	}

	m.mu.Lock()
	m.client = c
	m.session = 1
	m.replayLocked()
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(c)

	m.logger.Info("connection manager started", "url", m.cfg.Client.URL)
	return nil
}

// Stop closes the connection and the output channel.
func (m *manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping connection manager")

	if m.cancel != nil {
		m.cancel()
	}

	m.mu.Lock()
	if m.client != nil {
		_ = m.client.Close()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(m.out)
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, leaving output open")
	}

	m.logger.Info("connection manager stopped")
	return nil
}

// Subscribe registers a subscription.
func (m *manager) Subscribe(sub Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs[sub.Key()] = sub
	if m.client == nil || !m.client.IsConnected() {
		return nil
	}
	return m.client.SendCommand(Command{Method: MethodSubscribe, Subscription: &sub})
}

// Unsubscribe removes a subscription.
func (m *manager) Unsubscribe(sub Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[sub.Key()]; !ok {
		return nil
	}
	delete(m.subs, sub.Key())
	if m.client == nil || !m.client.IsConnected() {
		return nil
	}
	return m.client.SendCommand(Command{Method: MethodUnsubscribe, Subscription: &sub})
}

// Messages returns the output channel for the router.
func (m *manager) Messages() <-chan RawMessage {
	return m.out
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return ManagerStats{
		Connected:     m.client != nil && m.client.IsConnected(),
		Session:       m.session,
		Subscriptions: len(m.subs),
		Reconnects:    m.reconnects.Load(),
		Forwarded:     m.forwarded.Load(),
		Dropped:       m.dropped.Load(),
	}
}

// replayLocked sends every registered subscription in key order.
func (m *manager) replayLocked() {
	keys := make([]string, 0, len(m.subs))
	for k := range m.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sub := m.subs[k]
		if err := m.client.SendCommand(Command{Method: MethodSubscribe, Subscription: &sub}); err != nil {
			m.logger.Warn("subscribe failed", "coin", sub.Coin, "type", sub.Type, "error", err)
		}
	}
}

// run forwards messages until the context ends, reconnecting on errors.
func (m *manager) run(c Client) {
	defer m.wg.Done()

	for {
		err := m.readLoop(c)
		if err == nil {
			return
		}
		m.logger.Warn("connection error", "error", err)

		c = m.reconnect()
		if c == nil {
			return
		}
	}
}

// readLoop returns nil when the context ends and the connection error otherwise.
func (m *manager) readLoop(c Client) error {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	for {
		select {
		case <-m.ctx.Done():
			return nil

		case err := <-c.Errors():
			return err

		case msg := <-c.Messages():
			raw := RawMessage{
				Data:       msg.Data,
				Session:    session,
				ReceivedAt: msg.ReceivedAt,
			}

			select {
			case m.out <- raw:
				m.forwarded.Add(1)
			case <-m.ctx.Done():
				return nil
			default:
				m.dropped.Add(1)
				m.logger.Warn("message buffer full, dropping", "session", session)
			}
		}
	}
}

// reconnect dials with exponential backoff and replays subscriptions. It
// returns nil once the context ends.
func (m *manager) reconnect() Client {
	m.mu.Lock()
	if m.client != nil {
		_ = m.client.Close()
	}
	m.mu.Unlock()

	wait := m.cfg.ReconnectBaseWait
	for {
		select {
		case <-m.ctx.Done():
			return nil
		case <-time.After(wait):
		}

		m.logger.Info("attempting reconnection", "wait", wait)

		c := m.newClient(m.cfg.Client, m.logger)
		if err := c.Connect(m.ctx); err != nil {
			m.logger.Warn("reconnection failed", "error", err)
			wait = nextBackoff(wait, m.cfg.ReconnectMaxWait)
			continue
		}

		m.mu.Lock()
		if m.ctx.Err() != nil {
			m.mu.Unlock()
			_ = c.Close()
			return nil
		}
		m.client = c
		m.session++
		m.replayLocked()
		session := m.session
		m.mu.Unlock()

		m.reconnects.Add(1)
		m.logger.Info("reconnected", "session", session)
		return c
	}
}

// nextBackoff doubles wait, capped at limit.
func nextBackoff(wait, limit time.Duration) time.Duration {
	wait *= 2
	if wait > limit {
		return limit
	}
	return wait
}
