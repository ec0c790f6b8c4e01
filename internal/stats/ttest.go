package stats

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Defaults of the rolling t-test.
const (
	DefaultWindow          = 3
	DefaultConfidenceLevel = 0.95

	// MinOverlapDays is the fewest overlapping days a t-test runs on.
	MinOverlapDays = 5

	// InsufficientData marks a day whose look-back window could not be filled.
	InsufficientData = "insufficient_data"
)

// ErrInsufficientData is returned when a series is too short to analyse.
var ErrInsufficientData = errors.New("insufficient data")

// ValidWindow returns the n most recent indices before idx whose value is
// present and non-zero, oldest first, or nil when fewer than n exist.
func ValidWindow(values []float64, idx, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := idx - 1; i >= 0 && len(out) < n; i-- {
		v := values[i]
		if valid(v) && v != 0 {
			out = append(out, i)
		}
	}
	if len(out) < n {
		return nil
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// CriticalT is the two-tailed Student's t critical value for a confidence
// level and degrees of freedom.
func CriticalT(confidence float64, df int) float64 {
	if df < 1 {
		return math.NaN()
	}
	d := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return d.Quantile((1 + confidence) / 2)
}

// Score is one side's t-test result for one day. Window is nil when the
// look-back window could not be filled.
type Score struct {
	T      float64
	Mean   float64
	Std    float64
	Window []int
}

// WindowString renders the window as a bracketed index list or
// InsufficientData.
func (s Score) WindowString() string {
	if len(s.Window) == 0 {
		return InsufficientData
	}
	parts := make([]string, len(s.Window))
	for i, idx := range s.Window {
		parts[i] = strconv.Itoa(idx)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Significant reports |t| >= threshold.
func (s Score) Significant(threshold float64) bool {
	return math.Abs(s.T) >= threshold
}

// TTestRow is one day of the rolling volume t-test.
type TTestRow struct {
	Date         time.Time
	DefiVolume   float64
	TradFiVolume float64
	Defi         Score
	TradFi       Score
}

// TTestResult is the rolling t-test of one asset.
type TTestResult struct {
	Asset      string
	Window     int
	Critical   float64
	Rows       []TTestRow
	DefiHits   int // days with |t| above the critical value
	TradFiHits int
}

// DailyVolumeTTest tests each day's volume against the mean of the previous
// window valid days on each side. The series starts at the first day with
// DeFi volume.
func DailyVolumeTTest(a AssetSeries, window int, confidence float64) (TTestResult, error) {
	res := TTestResult{Asset: a.Name, Window: window, Critical: CriticalT(confidence, window-1)}

	first := -1
	for i, r := range a.Rows {
		if valid(r.DefiNotionalVolume) && r.DefiNotionalVolume > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return res, ErrInsufficientData
	}
	rows := a.Rows[first:]
	if (AssetSeries{Rows: rows}).Overlap() < MinOverlapDays {
		return res, ErrInsufficientData
	}

	defi := make([]float64, len(rows))
	tradfi := make([]float64, len(rows))
	for i, r := range rows {
		defi[i] = r.DefiNotionalVolume
		tradfi[i] = r.TradFiNotionalVolume
	}

	res.Rows = make([]TTestRow, len(rows))
	for i, r := range rows {
		row := TTestRow{
			Date:         r.Date,
			DefiVolume:   defi[i],
			TradFiVolume: tradfi[i],
			Defi:         score(defi, i, window),
			TradFi:       score(tradfi, i, window),
		}
		if math.Abs(row.Defi.T) > res.Critical {
			res.DefiHits++
		}
		if math.Abs(row.TradFi.T) > res.Critical {
			res.TradFiHits++
		}
		res.Rows[i] = row
	}
	return res, nil
}

func score(values []float64, idx, window int) Score {
	empty := Score{Mean: math.NaN(), Std: math.NaN()}
	if idx < window {
		return empty
	}
	w := ValidWindow(values, idx, window)
	today := values[idx]
	if w == nil || !valid(today) || today == 0 {
		return empty
	}

	sample := make([]float64, len(w))
	for i, j := range w {
		sample[i] = values[j]
	}
	mean, std := stat.MeanStdDev(sample, nil)

	s := Score{Mean: mean, Std: std, Window: w}
	if std > 0 {
		s.T = (today - mean) / (std / math.Sqrt(float64(window)))
	}
	if math.IsInf(s.T, 0) || math.IsNaN(s.T) {
		s.T = 0
	}
	return s
}
