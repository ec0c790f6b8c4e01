package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/rickgao/perp-research/internal/connection"
	"github.com/rickgao/perp-research/internal/model"
)

var errMissingCoin = errors.New("candle without coin")

// Router parses raw WebSocket messages and routes them to the writers.
type Router interface {
	// Start begins routing messages from input channel to writers.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router.
	Stop(ctx context.Context) error

	// Buffers returns output buffers for writers to consume.
	Buffers() RouterBuffers

	// Stats returns current router statistics.
	Stats() RouterStats
}

// RouterBuffers provides access to output buffers for writers.
type RouterBuffers struct {
	Candle *GrowableBuffer[CandleMsg]
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	MessagesRouted   int64
	ParseErrors      int64
	ServerErrors     int64
	UnknownMessages  int64
	CandleBuffer     BufferStats
}

// router is the internal implementation.
type router struct {
	cfg    RouterConfig
	logger *slog.Logger

	// Input from the connection Manager
	input <-chan connection.RawMessage

	// Output to writers
	candleBuf *GrowableBuffer[CandleMsg]

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	mu              sync.RWMutex
	received        int64
	routed          int64
	parseErrors     int64
	serverErrors    int64
	unknownMessages int64
}

// NewRouter creates a new Message Router.
func NewRouter(cfg RouterConfig, input <-chan connection.RawMessage, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		cfg:       cfg,
		logger:    logger,
		input:     input,
		candleBuf: NewGrowableBuffer[CandleMsg](cfg.CandleBufferSize),
	}
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started", "candle_buffer", r.cfg.CandleBufferSize)
	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	r.candleBuf.Close()
	return nil
}

// Buffers returns output buffers for writers.
func (r *router) Buffers() RouterBuffers {
	return RouterBuffers{Candle: r.candleBuf}
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		ParseErrors:      r.parseErrors,
		ServerErrors:     r.serverErrors,
		UnknownMessages:  r.unknownMessages,
		CandleBuffer:     r.candleBuf.Stats(),
	}
}

// routeLoop is the main routing goroutine.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(raw)
		}
	}
}

func (r *router) count(n *int64) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}

// route parses and routes a single message.
func (r *router) route(raw connection.RawMessage) {
	r.count(&r.received)

	var env messageEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		r.logger.Warn("failed to decode frame", "error", err)
		r.count(&r.parseErrors)
		return
	}

	switch env.Channel {
	case ChannelCandle:
		msg, err := parseCandle(env.Data, raw)
		if err != nil {
			r.logger.Warn("failed to parse candle", "error", err)
			r.count(&r.parseErrors)
			return
		}
		if r.candleBuf.Send(msg) {
			r.count(&r.routed)
		}

	case ChannelError:
		r.logger.Warn("server error", "data", string(env.Data))
		r.count(&r.serverErrors)

	case ChannelSubscriptionResponse:
		r.logger.Debug("subscription acknowledged", "data", string(env.Data))

	case ChannelPong:

	default:
		r.logger.Debug("skipping channel", "channel", env.Channel)
		r.count(&r.unknownMessages)
	}
}

// parseCandle decodes a candle payload.
func parseCandle(data []byte, raw connection.RawMessage) (CandleMsg, error) {
	var w candleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return CandleMsg{}, err
	}
	if w.Coin == "" {
		return CandleMsg{}, errMissingCoin
	}
	tf, err := model.ParseTimeframe(w.Interval)
	if err != nil {
		return CandleMsg{}, err
	}

	return CandleMsg{
		Exchange:   model.ExchangeHyperliquid,
		Coin:       w.Coin,
		Interval:   tf,
		OpenTime:   model.UnixMilli(w.OpenTime),
		CloseTime:  model.UnixMilli(w.CloseTime),
		Open:       w.Open,
		High:       w.High,
		Low:        w.Low,
		Close:      w.Close,
		Volume:     w.Volume,
		Trades:     w.Trades,
		Session:    raw.Session,
		ReceivedAt: raw.ReceivedAt,
	}, nil
}
