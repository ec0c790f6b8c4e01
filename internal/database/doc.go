// Package database manages the TimescaleDB pool used by the live gatherer.
//
// The gatherer stores three time-series tables:
//   - candles: streamed and backfilled OHLCV bars
//   - funding_rates: polled funding samples
//   - market_snapshots: polled mark price, volume and open interest
//
// Every table is keyed on its natural identity so replays are idempotent.
package database
