package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records commands and lets the test inject frames and errors.
type fakeClient struct {
	mu        sync.Mutex
	connected bool
	commands  []Command
	connErr   error

	messages chan TimestampedMessage
	errs     chan error
}

func newFakeClient(connErr error) *fakeClient {
	return &fakeClient{
		connErr:  connErr,
		messages: make(chan TimestampedMessage, 10),
		errs:     make(chan error, 1),
	}
}

func (f *fakeClient) Connect(context.Context) error {
	if f.connErr != nil {
		return f.connErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Send([]byte) error { return nil }

func (f *fakeClient) SendCommand(cmd Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeClient) Messages() <-chan TimestampedMessage { return f.messages }
func (f *fakeClient) Errors() <-chan error                { return f.errs }

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var coins []string
	for _, c := range f.commands {
		if c.Method == MethodSubscribe {
			coins = append(coins, c.Subscription.Coin)
		}
	}
	return coins
}

// factory hands out prepared clients in order.
type factory struct {
	mu      sync.Mutex
	clients []*fakeClient
	made    int
}

func (f *factory) New(ClientConfig, *slog.Logger) Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.clients[f.made]
	f.made++
	return c
}

func (f *factory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.made
}

func testManagerConfig() ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.ReconnectBaseWait = time.Millisecond
	cfg.ReconnectMaxWait = 4 * time.Millisecond
	cfg.MessageBufferSize = 10
	return cfg
}

func TestManager_ForwardsMessages(t *testing.T) {
	first := newFakeClient(nil)
	f := &factory{clients: []*fakeClient{first}}
	m := NewManager(testManagerConfig(), nil, WithClientFactory(f.New))

	require.NoError(t, m.Subscribe(CandleSubscription("BTC", "1m")))
	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, []string{"BTC"}, first.subscribed(), "pending subscription sent on start")

	require.NoError(t, m.Subscribe(CandleSubscription("ETH", "1m")))
	assert.Equal(t, []string{"BTC", "ETH"}, first.subscribed())

	first.messages <- TimestampedMessage{Data: []byte(`{"channel":"candle"}`), ReceivedAt: time.Now()}

	select {
	case raw := <-m.Messages():
		assert.Equal(t, `{"channel":"candle"}`, string(raw.Data))
		assert.Equal(t, 1, raw.Session)
	case <-time.After(time.Second):
		t.Fatal("message not forwarded")
	}

	stats := m.Stats()
	assert.True(t, stats.Connected)
	assert.Equal(t, 2, stats.Subscriptions)
	assert.Equal(t, int64(1), stats.Forwarded)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))

	_, ok := <-m.Messages()
	assert.False(t, ok, "output closed after stop")
}

func TestManager_ReconnectReplaysSubscriptions(t *testing.T) {
	first := newFakeClient(nil)
	failed := newFakeClient(errors.New("dial refused"))
	second := newFakeClient(nil)
	f := &factory{clients: []*fakeClient{first, failed, second}}
	m := NewManager(testManagerConfig(), nil, WithClientFactory(f.New))

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	require.NoError(t, m.Subscribe(CandleSubscription("SOL", "1m")))
	require.NoError(t, m.Subscribe(CandleSubscription("BTC", "1m")))
	require.NoError(t, m.Unsubscribe(CandleSubscription("SOL", "1m")))

	first.errs <- ErrStaleConnection

	require.Eventually(t, func() bool { return m.Stats().Reconnects == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, f.count())
	assert.Equal(t, []string{"BTC"}, second.subscribed())
	assert.False(t, first.IsConnected())

	second.messages <- TimestampedMessage{Data: []byte("x")}
	select {
	case raw := <-m.Messages():
		assert.Equal(t, 2, raw.Session)
	case <-time.After(time.Second):
		t.Fatal("message not forwarded after reconnect")
	}
}

func TestManager_StartFails(t *testing.T) {
	f := &factory{clients: []*fakeClient{newFakeClient(errors.New("refused"))}}
	m := NewManager(testManagerConfig(), nil, WithClientFactory(f.New))
	assert.Error(t, m.Start(context.Background()))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, time.Minute))
	assert.Equal(t, time.Minute, nextBackoff(40*time.Second, time.Minute))
}
