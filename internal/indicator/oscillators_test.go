package indicator

import (
	"math"
	"testing"
)

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestRSI_NoLossesReportsOverbought(t *testing.T) {
	rsi := RSI(rising(20), 14)

	for i := 0; i < 14; i++ {
		if _, ok := rsi.At(i); ok {
			t.Errorf("rsi[%d] should be missing before the window fills", i)
		}
	}
	for i := 14; i < 20; i++ {
		v, ok := rsi.At(i)
		if !ok {
			t.Fatalf("rsi[%d] should be defined", i)
		}
		if v != RSIOverbought {
			t.Errorf("rsi[%d] = %f, want overbought sentinel", i, v)
		}
	}
}

func TestRSI_FlatSeriesMissing(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	rsi := RSI(flat, 14)
	for i := range flat {
		if v, ok := rsi.At(i); ok {
			t.Errorf("rsi[%d] = %f, want missing on a flat series", i, v)
		}
	}

	// movement resumes once a change enters the window
	flat[29] = 101
	if v, ok := RSI(flat, 14).Last(); !ok || v != RSIOverbought {
		t.Errorf("rsi = %f (defined %v), want overbought sentinel", v, ok)
	}
}

func TestRSI_AllLosses(t *testing.T) {
	prices := []float64{20, 19, 18, 17, 16}
	rsi := RSI(prices, 3)

	v, ok := rsi.Last()
	if !ok {
		t.Fatal("expected defined RSI")
	}
	if v != 0 {
		t.Errorf("rsi = %f, want 0", v)
	}
}

func TestRSI_Balanced(t *testing.T) {
	rsi := RSI([]float64{1, 2, 1}, 2)

	v, ok := rsi.At(2)
	if !ok {
		t.Fatal("expected defined RSI")
	}
	if !almostEqual(v, 50, 1e-9) {
		t.Errorf("rsi = %f, want 50", v)
	}
}

func TestRSI_Bounded(t *testing.T) {
	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)
	}
	rsi := RSI(prices, 14)

	for i := range prices {
		v, ok := rsi.At(i)
		if !ok {
			continue
		}
		if v < 0 || v > 100 {
			t.Fatalf("rsi[%d] = %f out of [0,100]", i, v)
		}
	}
}

func TestMACD_ConstantSeries(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 50
	}
	line, sig, hist := MACD(prices, 12, 26, 9)

	for _, s := range []Series{line, sig, hist} {
		v, ok := s.Last()
		if !ok {
			t.Fatal("MACD outputs should be defined from the first point")
		}
		if !almostEqual(v, 0, 1e-12) {
			t.Errorf("expected 0 on constant series, got %f", v)
		}
	}
}

func TestBandPosition_CollapsedBands(t *testing.T) {
	prices := make([]float64, 25)
	for i := range prices {
		prices[i] = 0.1
	}
	upper, _, lower := Bollinger(prices, 20, 2)
	pos := BandPosition(prices, upper, lower)

	for i := range prices {
		v, ok := pos.At(i)
		if ok {
			t.Fatalf("bb_position[%d] = %f, want missing for collapsed bands", i, v)
		}
	}
}

func TestBandPosition_MidBand(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 3}
	upper, middle, lower := Bollinger(prices, 5, 2)
	pos := BandPosition(prices, upper, lower)

	m, _ := middle.At(5)
	if !almostEqual(m, 3.4, 1e-9) {
		t.Fatalf("middle = %f, want 3.4", m)
	}
	v, ok := pos.At(5)
	if !ok {
		t.Fatal("expected defined band position")
	}
	if v <= 0 || v >= 0.5 {
		t.Errorf("close below the mean should sit in the lower half, got %f", v)
	}
}
