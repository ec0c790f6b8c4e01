package model

import (
	"errors"
	"time"
)

var (
	// ErrUnsupportedTimeframe is returned when a venue has no equivalent interval.
	ErrUnsupportedTimeframe = errors.New("unsupported timeframe")

	// ErrUnknownMarket is returned when a symbol cannot be resolved on a venue.
	ErrUnknownMarket = errors.New("unknown market")

	// ErrNoData is returned when a venue answers with an empty series.
	ErrNoData = errors.New("no data")
)

// Exchange names used as the Exchange/chain column.
const (
	ExchangeHyperliquid = "hyperliquid"
	ExchangeDydx        = "dydx"
	ExchangeEdgex       = "edgex"
	ExchangeZkLighter   = "zklighter"
	ExchangeYahoo       = "yahoo"
	ExchangeBinance     = "binance"
)

// Market types.
const (
	MarketTypePerp = "perp"
	MarketTypeSpot = "spot"
)

// MarketStatusActive is the normalized status of a tradable market.
const MarketStatusActive = "active"

// -----------------------------------------------------------------------------
// Reference Types
// -----------------------------------------------------------------------------

// Market is one listed instrument on one venue.
type Market struct {
	Exchange     string // Venue (chain column in exports)
	MarketID     string // Venue-native id: coin, contractId, market_id, ticker
	Name         string // Venue display name (e.g. "xyz:GOLD", "BTCUSD", "ETH-USD")
	BaseSymbol   string // Base asset with venue prefixes stripped
	QuoteSymbol  string // Quote asset, empty when implicit USD(C)
	Dex          string // Hyperliquid builder DEX, empty elsewhere
	MarketType   string // perp or spot
	Status       string // Venue status string
	IsDelisted   bool
	MaxLeverage  float64
	SizeDecimals int

	// Fees and limits (edgeX, zkLighter)
	TakerFee     float64
	MakerFee     float64
	MinOrderSize float64
	MaxOrderSize float64
}

// Snapshot is a point-in-time market statistics row.
type Snapshot struct {
	Time     time.Time
	Exchange string
	Dex      string
	Symbol   string // Venue display name
	Base     string // Base asset

	MarkPrice    float64
	OraclePrice  float64
	IndexPrice   float64
	MidPrice     float64
	PrevDayPrice float64
	LastPrice    float64

	Volume24hUSD    float64
	Volume24hBase   float64
	Trades24h       int64
	OpenInterest    float64 // Base units
	OpenInterestUSD float64

	FundingRate    float64
	Premium        float64
	PriceChangePct float64
}

// Price returns the best available reference price.
func (s Snapshot) Price() float64 {
	switch {
	case s.MarkPrice != 0:
		return s.MarkPrice
	case s.LastPrice != 0:
		return s.LastPrice
	case s.OraclePrice != 0:
		return s.OraclePrice
	default:
		return s.MidPrice
	}
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// Candle is one OHLCV bar keyed by its open time.
type Candle struct {
	Exchange  string
	Symbol    string
	Interval  Timeframe
	OpenTime  time.Time
	CloseTime time.Time // Zero when the venue does not report it

	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64 // Base units
	QuoteVolume float64 // Quote units, 0 when not reported
	Trades      int64
}

// FundingRate is one funding sample.
type FundingRate struct {
	Exchange     string
	Symbol       string
	Time         time.Time
	Rate         float64
	Premium      float64
	MarkPrice    float64
	IndexPrice   float64
	OraclePrice  float64
	IsSettlement bool
}

// Inception records how far back a market's history reaches.
type Inception struct {
	Asset         string
	Exchange      string
	Dex           string
	Coin          string
	DataSince     *time.Time // nil when unknown
	DaysAvailable int
}

// NewInception fills DaysAvailable relative to now.
func NewInception(asset, exchange, dex, coin string, since *time.Time, now time.Time) Inception {
	inc := Inception{
		Asset:     asset,
		Exchange:  exchange,
		Dex:       dex,
		Coin:      coin,
		DataSince: since,
	}
	if since != nil {
		inc.DaysAvailable = int(now.Sub(*since).Hours() / 24)
	}
	return inc
}

// DataSinceString formats DataSince as YYYY-MM-DD, or "" when unknown.
func (i Inception) DataSinceString() string {
	if i.DataSince == nil {
		return ""
	}
	return i.DataSince.UTC().Format(DateLayout)
}

// DateLayout is the calendar date format used in every export.
const DateLayout = "2006-01-02"
