package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
)

func makePoints(closes []float64) []core.PricePoint {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]core.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = core.PricePoint{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000 + float64(i%5)*100,
		}
	}
	return points
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 5*math.Sin(float64(i)/4) + float64(i)*0.1
	}
	return out
}

func TestCompute_RejectsUnorderedSeries(t *testing.T) {
	points := makePoints([]float64{1, 2, 3})
	points[2].Time = points[1].Time

	_, err := Compute(points)
	if !errors.Is(err, core.ErrInvalidSeries) {
		t.Fatalf("expected ErrInvalidSeries, got %v", err)
	}
}

func TestCompute_Empty(t *testing.T) {
	f, err := Compute(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Rows()) != 0 {
		t.Error("expected no rows")
	}
	if _, ok := f.Latest(FeatureRSI); ok {
		t.Error("expected missing RSI on empty frame")
	}
	if _, ok := f.LatestRow(); ok {
		t.Error("expected no latest row on empty frame")
	}
}

func TestCompute_RowsStartAfterLongestWindow(t *testing.T) {
	f, err := Compute(makePoints(wave(80)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := f.Rows()
	if len(rows) != 31 {
		t.Fatalf("expected 31 complete rows (49..79), got %d", len(rows))
	}
	if rows[0].Index != 49 {
		t.Errorf("first complete row at %d, want 49", rows[0].Index)
	}
	for _, r := range rows {
		if len(r.Values) != len(FeatureNames) {
			t.Fatalf("row %d has %d features", r.Index, len(r.Values))
		}
		for name, v := range r.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("row %d feature %s not finite", r.Index, name)
			}
		}
	}
}

func TestCompute_ShortSeriesReportsMissing(t *testing.T) {
	f, err := Compute(makePoints(wave(15)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{FeatureSMA20, FeatureSMA50, FeatureBBPosition, FeatureVolumeRatio, FeaturePositionInRange} {
		if v, ok := f.Latest(name); ok {
			t.Errorf("%s = %f on 15 points, want missing", name, v)
		}
	}
	if _, ok := f.Latest(FeatureRSI); !ok {
		t.Error("RSI(14) should be defined on 15 points")
	}
	if _, ok := f.Latest(FeatureMACD); !ok {
		t.Error("MACD should be defined from the first point")
	}
	if len(f.Rows()) != 0 {
		t.Error("no row can be complete before the 50-point window")
	}
}

func TestCompute_SubsetRows(t *testing.T) {
	f, err := Compute(makePoints(wave(30)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := f.Rows(FeatureRSI, FeatureMACD)
	if len(rows) != 16 {
		t.Fatalf("expected 16 rows with RSI defined (14..29), got %d", len(rows))
	}
	if _, err := rows[0].Vector([]string{FeatureRSI, FeatureMACD}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := rows[0].Vector([]string{FeatureSMA50}); !errors.Is(err, core.ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestCompute_ZeroVolumeIsMissing(t *testing.T) {
	points := makePoints(wave(60))
	for i := range points {
		points[i].Volume = 0
	}
	f, err := Compute(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.Latest(FeatureVolumeRatio); ok {
		t.Error("volume ratio over zero mean volume should be missing")
	}
	if len(f.Rows()) != 0 {
		t.Error("rows with missing volume ratio should be dropped")
	}
}

func TestCompute_RangePosition(t *testing.T) {
	f, err := Compute(makePoints(rising(30)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := f.Latest(FeaturePositionInRange)
	if !ok {
		t.Fatal("expected defined range position")
	}
	if v <= 0.9 || v > 1 {
		t.Errorf("close near the 20-period high should be near 1, got %f", v)
	}
}
