package indicator

import (
	"math"
	"testing"
)

func TestSMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	sma := SMA(prices, 3)

	// SMA(3) for [10,11,12,13,14,15]:
	// [2] = (10+11+12)/3 = 11
	// [3] = (11+12+13)/3 = 12
	// [4] = (12+13+14)/3 = 13
	// [5] = (13+14+15)/3 = 14
	expected := map[int]float64{2: 11, 3: 12, 4: 13, 5: 14}

	if sma.Len() != len(prices) {
		t.Fatalf("expected aligned length %d, got %d", len(prices), sma.Len())
	}

	for i := 0; i < sma.Len(); i++ {
		v, ok := sma.At(i)
		want, defined := expected[i]
		if ok != defined {
			t.Fatalf("sma[%d] defined = %v, want %v", i, ok, defined)
		}
		if ok && !almostEqual(v, want, 1e-9) {
			t.Errorf("sma[%d] = %f, want %f", i, v, want)
		}
	}
}

func TestSMA_NotEnoughData(t *testing.T) {
	prices := []float64{10, 11}
	sma := SMA(prices, 5)

	for i := range prices {
		if _, ok := sma.At(i); ok {
			t.Errorf("sma[%d] should be missing", i)
		}
	}
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	prices := []float64{10, 11, 12}
	ema := EMA(prices, 3) // alpha = 0.5

	expected := []float64{10, 10.5, 11.25}
	for i, want := range expected {
		v, ok := ema.At(i)
		if !ok {
			t.Fatalf("ema[%d] should be defined", i)
		}
		if !almostEqual(v, want, 1e-9) {
			t.Errorf("ema[%d] = %f, want %f", i, v, want)
		}
	}
}

func TestEMA_Trending(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}
	ema := EMA(prices, 3)

	for i := 1; i < ema.Len(); i++ {
		if ema.Values[i] <= ema.Values[i-1] {
			t.Errorf("EMA should be increasing, ema[%d]=%f <= ema[%d]=%f", i, ema.Values[i], i-1, ema.Values[i-1])
		}
	}
}

func TestRollingStd_Sample(t *testing.T) {
	prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	std := RollingStd(prices, 8)

	v, ok := std.Last()
	if !ok {
		t.Fatal("expected defined std")
	}
	if !almostEqual(v, math.Sqrt(32.0/7.0), 1e-9) {
		t.Errorf("std = %f, want %f", v, math.Sqrt(32.0/7.0))
	}
	if _, ok := std.At(6); ok {
		t.Error("std before full window should be missing")
	}
}

func TestRollingExtremes(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5, 9, 2}
	hi := RollingMax(values, 3)
	lo := RollingMin(values, 3)

	if v, _ := hi.At(5); v != 9 {
		t.Errorf("max at 5 = %v, want 9", v)
	}
	if v, _ := lo.At(3); v != 1 {
		t.Errorf("min at 3 = %v, want 1", v)
	}
	if _, ok := hi.At(1); ok {
		t.Error("max before full window should be missing")
	}
}

func TestPctChange(t *testing.T) {
	prices := []float64{0, 10, 11, 12}
	pc := PctChange(prices, 1)

	if _, ok := pc.At(0); ok {
		t.Error("first change should be missing")
	}
	if _, ok := pc.At(1); ok {
		t.Error("change from zero base should be missing, not Inf")
	}
	if v, _ := pc.At(2); !almostEqual(v, 0.1, 1e-9) {
		t.Errorf("change at 2 = %f, want 0.1", v)
	}
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
