package ohlcv

import (
	"sort"
	"time"

	"github.com/rickgao/perp-research/internal/model"
)

// DedupeFunding drops repeated timestamps (first wins), keeps samples in
// [start, end] and sorts ascending. A zero start or end leaves that side open.
func DedupeFunding(rates []model.FundingRate, start, end time.Time) []model.FundingRate {
	seen := make(map[int64]struct{}, len(rates))
	out := make([]model.FundingRate, 0, len(rates))
	for _, f := range rates {
		if !start.IsZero() && f.Time.Before(start) {
			continue
		}
		if !end.IsZero() && f.Time.After(end) {
			continue
		}
		key := f.Time.UnixMilli()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
