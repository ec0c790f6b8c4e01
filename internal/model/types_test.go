package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeframe(t *testing.T) {
	tests := []struct {
		tf   Timeframe
		want int64
	}{
		{M1, 60_000},
		{M3, 180_000},
		{H1, 3_600_000},
		{H12, 43_200_000},
		{D1, 86_400_000},
		{W1, 604_800_000},
		{MO1, 2_592_000_000},
	}

	for _, tt := range tests {
		t.Run(string(tt.tf), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tf.Milliseconds())
			assert.Equal(t, time.Duration(tt.want)*time.Millisecond, tt.tf.Duration())
		})
	}

	assert.Len(t, Timeframes, 14)
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in      string
		want    Timeframe
		wantErr bool
	}{
		{"1h", H1, false},
		{"1H", H1, false},
		{"1M", MO1, false},
		{"1m", M1, false},
		{"4D", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeframe(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedTimeframe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssetTypeRank(t *testing.T) {
	assert.Equal(t, 0, AssetCrypto.Rank())
	assert.Equal(t, 6, AssetSectorBasket.Rank())
	assert.Equal(t, len(AssetTypes), AssetType("Other").Rank(), "unknown sorts last")
	assert.True(t, AssetCrypto.IsCrypto())
	assert.False(t, AssetEquity.IsCrypto())
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0.52", 0.52},
		{"-0.0000125", -0.0000125},
		{"1e3", 1000},
		{"", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseFloat(tt.in), "ParseFloat(%q)", tt.in)
	}
	assert.Equal(t, int64(42), ParseInt("42.9"))
}

func TestSnapshotPrice(t *testing.T) {
	tests := []struct {
		name string
		s    Snapshot
		want float64
	}{
		{"mark", Snapshot{MarkPrice: 10, LastPrice: 11}, 10},
		{"last", Snapshot{LastPrice: 11, OraclePrice: 12}, 11},
		{"oracle", Snapshot{OraclePrice: 12, MidPrice: 13}, 12},
		{"mid", Snapshot{MidPrice: 13}, 13},
		{"none", Snapshot{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.Price())
		})
	}
}

func TestNewInception(t *testing.T) {
	now := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	inc := NewInception("BTC", ExchangeHyperliquid, "", "BTC", &since, now)
	assert.Equal(t, 10, inc.DaysAvailable)
	assert.Equal(t, "2025-01-01", inc.DataSinceString())

	unknown := NewInception("BTC", ExchangeHyperliquid, "", "BTC", nil, now)
	assert.Zero(t, unknown.DaysAvailable)
	assert.Empty(t, unknown.DataSinceString())
}
