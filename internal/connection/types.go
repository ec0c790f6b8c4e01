package connection

import (
	"errors"
	"time"

	"github.com/rickgao/perp-research/internal/config"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no message within read timeout)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a message from the Manager to the router.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	Session    int       // Connection generation, incremented on every reconnect
	ReceivedAt time.Time // Local timestamp when the client received the message
}

// Subscription types.
const (
	SubscriptionCandle = "candle"
)

// Subscription is a Hyperliquid subscription descriptor.
type Subscription struct {
	Type     string `json:"type"`
	Coin     string `json:"coin,omitempty"`
	Interval string `json:"interval,omitempty"`
}

// CandleSubscription subscribes to closed and in-progress bars for coin.
func CandleSubscription(coin, interval string) Subscription {
	return Subscription{Type: SubscriptionCandle, Coin: coin, Interval: interval}
}

// Key identifies the subscription within the Manager.
func (s Subscription) Key() string {
	return s.Type + "|" + s.Coin + "|" + s.Interval
}

// Command methods.
const (
	MethodSubscribe   = "subscribe"
	MethodUnsubscribe = "unsubscribe"
	MethodPing        = "ping"
)

// Command is a request sent to the server.
type Command struct {
	Method       string        `json:"method"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL (e.g., wss://api.hyperliquid.xyz/ws)
	PingInterval time.Duration // Interval between application pings
	ReadTimeout  time.Duration // Max silence before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:          config.DefaultStreamURL,
		PingInterval: config.DefaultPingInterval,
		ReadTimeout:  config.DefaultReadTimeout,
		WriteTimeout: 5 * time.Second,
		BufferSize:   10000,
	}
}

// ManagerConfig configures the Manager.
type ManagerConfig struct {
	Client            ClientConfig
	ReconnectBaseWait time.Duration // Base wait time for reconnection
	ReconnectMaxWait  time.Duration // Max wait time for reconnection
	MessageBufferSize int           // Buffer size for output message channel
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:            DefaultClientConfig(),
		ReconnectBaseWait: config.DefaultReconnectBaseDelay,
		ReconnectMaxWait:  config.DefaultReconnectMaxDelay,
		MessageBufferSize: config.DefaultBufferSize,
	}
}

// ManagerConfigFrom builds a ManagerConfig from the gatherer configuration.
func ManagerConfigFrom(g config.GathererConfig) ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.Client.URL = g.Stream.WSURL
	cfg.Client.PingInterval = g.Stream.PingInterval
	cfg.Client.ReadTimeout = g.Stream.ReadTimeout
	cfg.Client.BufferSize = g.Writers.BufferSize
	cfg.ReconnectBaseWait = g.Stream.ReconnectBaseDelay
	cfg.ReconnectMaxWait = g.Stream.ReconnectMaxDelay
	cfg.MessageBufferSize = g.Writers.BufferSize
	return cfg
}
