// Package model defines the normalized records shared by every exchange client,
// the research pipelines and the live gatherer.
//
// Conventions:
//   - Timestamps: time.Time in UTC, candle times are bar open times
//   - Prices and volumes: float64 parsed from exchange decimal strings
//   - Exchange: lower-case venue name ("hyperliquid", "edgex", ...)
package model
