// Package ohlcv holds the venue-independent candle logic: forward cursor
// pagination, de-duplication, trimming, cross-venue aggregation, and the
// DeFi/TradFi join used by the comparison workbooks.
package ohlcv
