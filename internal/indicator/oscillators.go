package indicator

import "math"

// RSIOverbought is reported when a window has gains but no losses, where the
// relative strength ratio is undefined.
const RSIOverbought = 100.0

// RSI calculates the Relative Strength Index from the simple averages of
// positive and negative price deltas over the trailing period. The first
// defined value sits at index period, since period deltas need period+1 prices.
// A window without any price change is left missing.
func RSI(prices []float64, period int) Series {
	out := newSeries(len(prices))
	if period <= 0 || len(prices) <= period {
		return out
	}

	for i := period; i < len(prices); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			d := prices[j] - prices[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		avgGain := gain / float64(period)
		avgLoss := loss / float64(period)

		if avgLoss == 0 {
			if avgGain > 0 {
				out.set(i, RSIOverbought)
			}
			continue
		}
		rs := avgGain / avgLoss
		out.set(i, 100-100/(1+rs))
	}

	return out
}

// MACD returns the MACD line (EMA fast - EMA slow), its EMA signal line and
// the histogram (line - signal).
func MACD(prices []float64, fast, slow, signal int) (line, sig, hist Series) {
	n := len(prices)
	line = newSeries(n)
	hist = newSeries(n)

	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)
	for i := 0; i < n; i++ {
		f, okF := fastEMA.At(i)
		s, okS := slowEMA.At(i)
		if okF && okS {
			line.set(i, f-s)
		}
	}

	sig = EMA(line.Values, signal)
	for i := 0; i < n; i++ {
		l, okL := line.At(i)
		s, okS := sig.At(i)
		if okL && okS {
			hist.set(i, l-s)
		}
	}

	return line, sig, hist
}

// Bollinger returns upper/middle/lower bands of width k standard deviations
// around the period SMA.
func Bollinger(prices []float64, period int, k float64) (upper, middle, lower Series) {
	n := len(prices)
	upper = newSeries(n)
	lower = newSeries(n)
	middle = SMA(prices, period)
	std := RollingStd(prices, period)

	for i := 0; i < n; i++ {
		m, okM := middle.At(i)
		s, okS := std.At(i)
		if !okM || !okS {
			continue
		}
		upper.set(i, m+k*s)
		lower.set(i, m-k*s)
	}

	return upper, middle, lower
}

// bandEpsilon absorbs the rounding residue a flat window leaves in the
// standard deviation.
const bandEpsilon = 1e-9

// BandPosition returns (close - lower) / (upper - lower); collapsed bands
// are missing.
func BandPosition(closes []float64, upper, lower Series) Series {
	out := newSeries(len(closes))
	for i, c := range closes {
		u, okU := upper.At(i)
		l, okL := lower.At(i)
		if !okU || !okL {
			continue
		}
		width := u - l
		if width <= bandEpsilon*math.Max(1, math.Abs(u)) {
			continue
		}
		out.set(i, (c-l)/width)
	}
	return out
}
