package router

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/perp-research/internal/model"
)

// RouterConfig holds configuration for the Message Router.
type RouterConfig struct {
	CandleBufferSize int // Default: 10000
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CandleBufferSize: 10000,
	}
}

// Hyperliquid channel names.
const (
	ChannelCandle               = "candle"
	ChannelSubscriptionResponse = "subscriptionResponse"
	ChannelPong                 = "pong"
	ChannelError                = "error"
)

// CandleMsg is one streamed bar. Hyperliquid pushes the open bar repeatedly,
// so several messages may share an open time; the last one wins downstream.
type CandleMsg struct {
	Exchange   string
	Coin       string
	Interval   model.Timeframe
	OpenTime   time.Time
	CloseTime  time.Time
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	Trades     int64
	Session    int
	ReceivedAt time.Time
}

// Candle converts the message to the float model used by the research code.
func (m CandleMsg) Candle() model.Candle {
	return model.Candle{
		Exchange:  m.Exchange,
		Symbol:    m.Coin,
		Interval:  m.Interval,
		OpenTime:  m.OpenTime,
		CloseTime: m.CloseTime,
		Open:      m.Open.InexactFloat64(),
		High:      m.High.InexactFloat64(),
		Low:       m.Low.InexactFloat64(),
		Close:     m.Close.InexactFloat64(),
		Volume:    m.Volume.InexactFloat64(),
		Trades:    m.Trades,
	}
}

// SnapshotMsg is one polled market snapshot tagged with its poll.
type SnapshotMsg struct {
	PollID   uuid.UUID
	Snapshot model.Snapshot
}

// FundingMsg is one polled funding sample tagged with its poll.
type FundingMsg struct {
	PollID  uuid.UUID
	Funding model.FundingRate
}

// -----------------------------------------------------------------------------
// Wire formats
// -----------------------------------------------------------------------------

// messageEnvelope is the outer frame of every server push.
type messageEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// candleWire is the candle channel payload. Prices arrive as strings.
type candleWire struct {
	OpenTime  int64           `json:"t"`
	CloseTime int64           `json:"T"`
	Coin      string          `json:"s"`
	Interval  string          `json:"i"`
	Open      decimal.Decimal `json:"o"`
	Close     decimal.Decimal `json:"c"`
	High      decimal.Decimal `json:"h"`
	Low       decimal.Decimal `json:"l"`
	Volume    decimal.Decimal `json:"v"`
	Trades    int64           `json:"n"`
}
