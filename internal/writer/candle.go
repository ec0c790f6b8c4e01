package writer

import (
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/perp-research/internal/database"
	"github.com/rickgao/perp-research/internal/router"
)

// Hyperliquid pushes the open bar on every trade, so the candle writer
// upserts and the final push for an open time is what remains.
const insertCandle = `
	INSERT INTO candles (exchange, symbol, interval, open_time, close_time,
		open, high, low, close, volume, trades, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (exchange, symbol, interval, open_time) DO UPDATE SET
		close_time  = EXCLUDED.close_time,
		high        = EXCLUDED.high,
		low         = EXCLUDED.low,
		close       = EXCLUDED.close,
		volume      = EXCLUDED.volume,
		trades      = EXCLUDED.trades,
		received_at = EXCLUDED.received_at
	WHERE candles.received_at <= EXCLUDED.received_at`

// CandleWriter writes streamed bars to the candles table.
type CandleWriter = Writer[router.CandleMsg]

// NewCandleWriter creates a writer for streamed candles.
func NewCandleWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[router.CandleMsg],
	db DB,
	logger *slog.Logger,
) *CandleWriter {
	return newWriter(database.TableCandles, cfg, input, db, queueCandle, logger)
}

func queueCandle(b *pgx.Batch, m router.CandleMsg) {
	b.Queue(insertCandle,
		m.Exchange, m.Coin, string(m.Interval), m.OpenTime.UTC(), timestamp(m.CloseTime),
		m.Open, m.High, m.Low, m.Close, m.Volume, m.Trades, m.ReceivedAt.UTC(),
	)
}
