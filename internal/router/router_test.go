package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/perp-research/internal/connection"
	"github.com/rickgao/perp-research/internal/model"
)

const candleFrame = `{"channel":"candle","data":{"t":1735689600000,"T":1735689659999,"s":"BTC","i":"1m","o":"93500.5","c":"93510","h":"93520.25","l":"93490","v":"12.3456","n":87}}`

func startRouter(t *testing.T) (Router, chan connection.RawMessage) {
	t.Helper()
	input := make(chan connection.RawMessage, 10)
	r := NewRouter(DefaultRouterConfig(), input, nil)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop(context.Background()) })
	return r, input
}

func TestRouter_StartStop(t *testing.T) {
	input := make(chan connection.RawMessage)
	r := NewRouter(DefaultRouterConfig(), input, nil)
	require.NoError(t, r.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	_, ok := r.Buffers().Candle.Receive()
	assert.False(t, ok, "buffer closed after stop")
}

func TestRouter_ParseCandle(t *testing.T) {
	r, input := startRouter(t)

	receivedAt := time.Date(2025, 1, 1, 0, 0, 30, 0, time.UTC)
	input <- connection.RawMessage{Data: []byte(candleFrame), Session: 3, ReceivedAt: receivedAt}

	require.Eventually(t, func() bool { return r.Buffers().Candle.Len() == 1 }, time.Second, 5*time.Millisecond)
	msg, ok := r.Buffers().Candle.TryReceive()
	require.True(t, ok)

	assert.Equal(t, model.ExchangeHyperliquid, msg.Exchange)
	assert.Equal(t, "BTC", msg.Coin)
	assert.Equal(t, model.M1, msg.Interval)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), msg.OpenTime)
	assert.Equal(t, "93500.5", msg.Open.String())
	assert.Equal(t, "93520.25", msg.High.String())
	assert.Equal(t, "12.3456", msg.Volume.String())
	assert.Equal(t, int64(87), msg.Trades)
	assert.Equal(t, 3, msg.Session)
	assert.Equal(t, receivedAt, msg.ReceivedAt)

	c := msg.Candle()
	assert.Equal(t, 93510.0, c.Close)
	assert.Equal(t, "BTC", c.Symbol)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.MessagesReceived)
	assert.Equal(t, int64(1), stats.MessagesRouted)
}

func TestRouter_ControlAndBadFrames(t *testing.T) {
	r, input := startRouter(t)

	frames := []string{
		`{"channel":"subscriptionResponse","data":{"method":"subscribe"}}`,
		`{"channel":"pong"}`,
		`{"channel":"error","data":"Invalid subscription"}`,
		`{"channel":"trades","data":[]}`,
		`not json`,
		`{"channel":"candle","data":{"t":1,"s":"","i":"1m"}}`,
		`{"channel":"candle","data":{"t":1,"s":"BTC","i":"7m"}}`,
	}
	for _, f := range frames {
		input <- connection.RawMessage{Data: []byte(f)}
	}

	require.Eventually(t, func() bool {
		return r.Stats().MessagesReceived == int64(len(frames))
	}, time.Second, 5*time.Millisecond)

	stats := r.Stats()
	assert.Equal(t, int64(0), stats.MessagesRouted)
	assert.Equal(t, int64(3), stats.ParseErrors)
	assert.Equal(t, int64(1), stats.ServerErrors)
	assert.Equal(t, int64(1), stats.UnknownMessages)
	assert.Zero(t, r.Buffers().Candle.Len())
}
