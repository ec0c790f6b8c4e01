// Package connection maintains the Hyperliquid WebSocket used by the live
// gatherer.
//
// The Manager owns one connection, replays every candle subscription after
// a reconnect, and backs off exponentially between dial attempts. Hyperliquid
// closes idle sockets, so the client sends an application-level ping on a
// fixed interval and treats a silent socket as stale.
package connection
