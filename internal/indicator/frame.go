package indicator

import (
	"fmt"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
)

// Feature names produced by Compute
const (
	FeatureRSI             = "rsi"
	FeatureSMA5            = "sma_5"
	FeatureSMA10           = "sma_10"
	FeatureSMA20           = "sma_20"
	FeatureSMA50           = "sma_50"
	FeatureEMA12           = "ema_12"
	FeatureEMA26           = "ema_26"
	FeatureMACD            = "macd"
	FeatureMACDSignal      = "macd_signal"
	FeatureMACDHistogram   = "macd_histogram"
	FeatureBBUpper         = "bb_upper"
	FeatureBBLower         = "bb_lower"
	FeatureBBPosition      = "bb_position"
	FeaturePriceChange1d   = "price_change_1d"
	FeaturePriceChange5d   = "price_change_5d"
	FeatureVolatility      = "volatility"
	FeatureVolumeRatio     = "volume_ratio"
	FeaturePriceVsSMA20    = "price_vs_sma20"
	FeaturePriceVsSMA50    = "price_vs_sma50"
	FeaturePositionInRange = "position_in_range"
)

// FeatureNames lists every feature in a fixed order.
var FeatureNames = []string{
	FeatureRSI, FeatureSMA5, FeatureSMA10, FeatureSMA20, FeatureSMA50,
	FeatureEMA12, FeatureEMA26, FeatureMACD, FeatureMACDSignal, FeatureMACDHistogram,
	FeatureBBUpper, FeatureBBLower, FeatureBBPosition,
	FeaturePriceChange1d, FeaturePriceChange5d, FeatureVolatility,
	FeatureVolumeRatio, FeaturePriceVsSMA20, FeaturePriceVsSMA50, FeaturePositionInRange,
}

// Params holds the window lengths used by Compute
type Params struct {
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerPeriod int
	BollingerK      float64
	VolatilityWin   int
	VolumeWin       int
	RangeWin        int
}

// DefaultParams returns the standard indicator windows
func DefaultParams() Params {
	return Params{
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerPeriod: 20,
		BollingerK:      2,
		VolatilityWin:   10,
		VolumeWin:       20,
		RangeWin:        20,
	}
}

// FeatureVector holds every feature for one price point. It only exists for
// points whose requested features are all defined.
type FeatureVector struct {
	Index  int
	Time   time.Time
	Close  float64
	Values map[string]float64
}

// Vector returns the values for names in order.
func (fv FeatureVector) Vector(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := fv.Values[name]
		if !ok {
			return nil, core.WrapError(core.ErrSchemaMismatch, fmt.Errorf("feature %q missing", name))
		}
		out[i] = v
	}
	return out, nil
}

// Frame is the result of running every indicator over one price series
type Frame struct {
	points []core.PricePoint
	series map[string]Series
}

// Compute runs the indicator set with default windows.
func Compute(points []core.PricePoint) (*Frame, error) {
	return ComputeWith(points, DefaultParams())
}

// ComputeWith runs the indicator set over points. The series must be strictly
// increasing in time. An empty series yields an empty frame.
func ComputeWith(points []core.PricePoint, p Params) (*Frame, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Time.After(points[i-1].Time) {
			return nil, core.WrapError(core.ErrInvalidSeries,
				fmt.Errorf("point %d at %s does not follow %s", i, points[i].Time, points[i-1].Time))
		}
	}

	n := len(points)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, pt := range points {
		closes[i] = pt.Close
		highs[i] = pt.High
		lows[i] = pt.Low
		volumes[i] = pt.Volume
	}

	s := make(map[string]Series, len(FeatureNames))
	s[FeatureRSI] = RSI(closes, p.RSIPeriod)
	s[FeatureSMA5] = SMA(closes, 5)
	s[FeatureSMA10] = SMA(closes, 10)
	s[FeatureSMA20] = SMA(closes, 20)
	s[FeatureSMA50] = SMA(closes, 50)
	s[FeatureEMA12] = EMA(closes, p.MACDFast)
	s[FeatureEMA26] = EMA(closes, p.MACDSlow)
	s[FeatureMACD], s[FeatureMACDSignal], s[FeatureMACDHistogram] = MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)

	upper, _, lower := Bollinger(closes, p.BollingerPeriod, p.BollingerK)
	s[FeatureBBUpper] = upper
	s[FeatureBBLower] = lower
	s[FeatureBBPosition] = BandPosition(closes, upper, lower)

	s[FeaturePriceChange1d] = PctChange(closes, 1)
	s[FeaturePriceChange5d] = PctChange(closes, 5)
	s[FeatureVolatility] = RollingStd(closes, p.VolatilityWin)
	s[FeatureVolumeRatio] = relativeTo(volumes, SMA(volumes, p.VolumeWin), false)
	s[FeaturePriceVsSMA20] = relativeTo(closes, s[FeatureSMA20], true)
	s[FeaturePriceVsSMA50] = relativeTo(closes, s[FeatureSMA50], true)
	s[FeaturePositionInRange] = rangePosition(closes, RollingMax(highs, p.RangeWin), RollingMin(lows, p.RangeWin))

	return &Frame{points: points, series: s}, nil
}

// relativeTo returns v/base, or (v-base)/base*100 when asPctDiff is set.
func relativeTo(values []float64, base Series, asPctDiff bool) Series {
	out := newSeries(len(values))
	for i, v := range values {
		b, ok := base.At(i)
		if !ok {
			continue
		}
		num := v
		if asPctDiff {
			num = v - b
		}
		if r, ok := ratio(num, b); ok {
			if asPctDiff {
				r *= 100
			}
			out.set(i, r)
		}
	}
	return out
}

func rangePosition(closes []float64, high, low Series) Series {
	out := newSeries(len(closes))
	for i, c := range closes {
		h, okH := high.At(i)
		l, okL := low.At(i)
		if !okH || !okL {
			continue
		}
		if r, ok := ratio(c-l, h-l); ok {
			out.set(i, r)
		}
	}
	return out
}

// Len returns the number of price points
func (f *Frame) Len() int {
	return len(f.points)
}

// Points returns the underlying price series
func (f *Frame) Points() []core.PricePoint {
	return f.points
}

// Series returns a named indicator series
func (f *Frame) Series(name string) (Series, bool) {
	s, ok := f.series[name]
	return s, ok
}

// Latest returns the most recent value of a named feature
func (f *Frame) Latest(name string) (float64, bool) {
	s, ok := f.series[name]
	if !ok {
		return 0, false
	}
	return s.Last()
}

// Row returns the feature vector at index i restricted to names (all features
// when names is empty). It reports false if any requested feature is missing.
func (f *Frame) Row(i int, names ...string) (FeatureVector, bool) {
	if i < 0 || i >= len(f.points) {
		return FeatureVector{}, false
	}
	if len(names) == 0 {
		names = FeatureNames
	}

	values := make(map[string]float64, len(names))
	for _, name := range names {
		s, ok := f.series[name]
		if !ok {
			return FeatureVector{}, false
		}
		v, ok := s.At(i)
		if !ok {
			return FeatureVector{}, false
		}
		values[name] = v
	}

	return FeatureVector{
		Index:  i,
		Time:   f.points[i].Time,
		Close:  f.points[i].Close,
		Values: values,
	}, true
}

// Rows returns every complete feature vector in time order. Incomplete rows
// are dropped, never filled.
func (f *Frame) Rows(names ...string) []FeatureVector {
	rows := make([]FeatureVector, 0, len(f.points))
	for i := range f.points {
		if fv, ok := f.Row(i, names...); ok {
			rows = append(rows, fv)
		}
	}
	return rows
}

// LatestRow returns the most recent point's vector if it is complete
func (f *Frame) LatestRow(names ...string) (FeatureVector, bool) {
	return f.Row(len(f.points)-1, names...)
}
