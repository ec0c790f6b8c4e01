package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe is a candle interval in Hyperliquid notation.
type Timeframe string

const (
	M1  Timeframe = "1m"
	M3  Timeframe = "3m"
	M5  Timeframe = "5m"
	M15 Timeframe = "15m"
	M30 Timeframe = "30m"
	H1  Timeframe = "1h"
	H2  Timeframe = "2h"
	H4  Timeframe = "4h"
	H8  Timeframe = "8h"
	H12 Timeframe = "12h"
	D1  Timeframe = "1d"
	D3  Timeframe = "3d"
	W1  Timeframe = "1w"
	MO1 Timeframe = "1M"
)

// Approximate bar widths used for pagination math. 1M is 30 days.
var timeframeMillis = map[Timeframe]int64{
	M1:  60_000,
	M3:  180_000,
	M5:  300_000,
	M15: 900_000,
	M30: 1_800_000,
	H1:  3_600_000,
	H2:  7_200_000,
	H4:  14_400_000,
	H8:  28_800_000,
	H12: 43_200_000,
	D1:  86_400_000,
	D3:  259_200_000,
	W1:  604_800_000,
	MO1: 2_592_000_000,
}

// Timeframes lists every interval from shortest to longest.
var Timeframes = []Timeframe{M1, M3, M5, M15, M30, H1, H2, H4, H8, H12, D1, D3, W1, MO1}

// ParseTimeframe accepts "1h", "1H" style input. "1M" stays monthly.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeMillis[tf]; ok {
		return tf, nil
	}
	tf = Timeframe(strings.ToLower(s))
	if _, ok := timeframeMillis[tf]; ok {
		return tf, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedTimeframe, s)
}

// Valid reports whether tf is a known interval.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeMillis[tf]
	return ok
}

// Milliseconds returns the bar width in ms, 0 for unknown intervals.
func (tf Timeframe) Milliseconds() int64 {
	return timeframeMillis[tf]
}

// Duration returns the bar width.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Milliseconds()) * time.Millisecond
}

func (tf Timeframe) String() string {
	return string(tf)
}

// ParseFloat converts an exchange decimal string to float64.
// Empty or malformed input yields 0.
func ParseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// ParseInt converts an exchange integer string, tolerating decimal notation.
func ParseInt(s string) int64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.IntPart()
}

// UnixMilli converts epoch milliseconds to a UTC time.
func UnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
