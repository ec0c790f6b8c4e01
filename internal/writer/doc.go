// Package writer implements batch writers for the gatherer's time-series
// tables.
//
// Writers:
//   - Candle writer: streamed Hyperliquid bars (upsert, last push wins)
//   - Funding writer: polled funding samples (append-only)
//   - Snapshot writer: polled market snapshots (append-only)
//
// Each writer drains a router.GrowableBuffer, batches rows and flushes them
// with a single pgx.Batch either when the batch is full or on a timer.
// Prices and sizes are stored as NUMERIC through shopspring/decimal.
package writer
