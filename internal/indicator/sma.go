package indicator

import "math"

// SMA calculates Simple Moving Average over a strictly trailing window.
// Positions before period-1 are missing.
func SMA(prices []float64, period int) Series {
	out := newSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	out.set(period-1, sum/float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		out.set(i, sum/float64(period))
	}

	return out
}

// EMA calculates Exponential Moving Average with smoothing 2/(span+1).
// The recursion is seeded with the first price, so every position is defined.
func EMA(prices []float64, span int) Series {
	out := newSeries(len(prices))
	if span <= 0 || len(prices) == 0 {
		return out
	}

	alpha := 2.0 / float64(span+1)
	ema := prices[0]
	out.set(0, ema)

	for i := 1; i < len(prices); i++ {
		ema = alpha*prices[i] + (1-alpha)*ema
		out.set(i, ema)
	}

	return out
}

// RollingStd calculates the sample standard deviation (n-1) over a trailing window.
func RollingStd(prices []float64, period int) Series {
	out := newSeries(len(prices))
	if period < 2 || len(prices) < period {
		return out
	}

	for i := period - 1; i < len(prices); i++ {
		window := prices[i-period+1 : i+1]
		var mean float64
		for _, p := range window {
			mean += p
		}
		mean /= float64(period)

		var ss float64
		for _, p := range window {
			ss += (p - mean) * (p - mean)
		}
		out.set(i, math.Sqrt(ss/float64(period-1)))
	}

	return out
}

// RollingMax returns the trailing-window maximum
func RollingMax(values []float64, period int) Series {
	return rollingExtreme(values, period, func(a, b float64) bool { return a > b })
}

// RollingMin returns the trailing-window minimum
func RollingMin(values []float64, period int) Series {
	return rollingExtreme(values, period, func(a, b float64) bool { return a < b })
}

func rollingExtreme(values []float64, period int, better func(a, b float64) bool) Series {
	out := newSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		best := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			if better(v, best) {
				best = v
			}
		}
		out.set(i, best)
	}

	return out
}

// PctChange returns the fractional change over n periods. A zero base price
// leaves the position missing.
func PctChange(prices []float64, n int) Series {
	out := newSeries(len(prices))
	if n <= 0 {
		return out
	}

	for i := n; i < len(prices); i++ {
		if r, ok := ratio(prices[i]-prices[i-n], prices[i-n]); ok {
			out.set(i, r)
		}
	}

	return out
}
