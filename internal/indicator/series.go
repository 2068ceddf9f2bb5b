package indicator

import "math"

// Series is an indicator aligned index-for-index with its input prices.
// Valid[i] is false where the trailing window was not yet full or the value
// was undefined (degenerate division). Values at invalid positions are zero
// and must not be read.
type Series struct {
	Values []float64
	Valid  []bool
}

func newSeries(n int) Series {
	return Series{
		Values: make([]float64, n),
		Valid:  make([]bool, n),
	}
}

// Len returns the series length
func (s Series) Len() int {
	return len(s.Values)
}

// At returns the value at i and whether it is defined
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.Values) || !s.Valid[i] {
		return 0, false
	}
	return s.Values[i], true
}

// Last returns the most recent value
func (s Series) Last() (float64, bool) {
	return s.At(len(s.Values) - 1)
}

// set stores v only when it is finite; NaN and Inf stay missing.
func (s Series) set(i int, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	s.Values[i] = v
	s.Valid[i] = true
}

// ratio returns num/den, or false when den is zero.
func ratio(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}
