// Package classifier trains and serves the direction classifier used by the
// technical strategy: a class-balanced random forest over indicator features.
package classifier

import (
	"time"

	"github.com/newthinker/sigfuse/internal/indicator"
)

// Label is the direction of the next bar
type Label string

const (
	LabelDown Label = "DOWN"
	LabelFlat Label = "FLAT"
	LabelUp   Label = "UP"
)

// Classes is the fixed class order used for probabilities and tie-breaks.
var Classes = []Label{LabelDown, LabelFlat, LabelUp}

// FlatBand is the forward return magnitude below which a bar is FLAT.
const FlatBand = 0.005

// FeatureNames is the ordered feature schema the model is trained on.
var FeatureNames = []string{
	indicator.FeatureRSI,
	indicator.FeatureMACD,
	indicator.FeatureMACDHistogram,
	indicator.FeatureBBPosition,
	indicator.FeaturePriceVsSMA20,
	indicator.FeaturePriceVsSMA50,
	indicator.FeatureVolatility,
	indicator.FeatureVolumeRatio,
	indicator.FeaturePositionInRange,
	indicator.FeaturePriceChange5d,
}

// LabelFor classifies a forward return.
func LabelFor(forwardReturn float64) Label {
	switch {
	case forwardReturn > FlatBand:
		return LabelUp
	case forwardReturn < -FlatBand:
		return LabelDown
	default:
		return LabelFlat
	}
}

func classIndex(l Label) int {
	for i, c := range Classes {
		if c == l {
			return i
		}
	}
	return -1
}

// Dataset is a labeled feature matrix
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []Label
	Times    []time.Time
}

// Len returns the number of labeled rows
func (d Dataset) Len() int {
	return len(d.Y)
}

// ClassCounts returns the number of rows per label
func (d Dataset) ClassCounts() map[Label]int {
	counts := make(map[Label]int, len(Classes))
	for _, y := range d.Y {
		counts[y]++
	}
	return counts
}

// BuildDataset pairs every complete feature row with the label of the next
// point's return. The final point has no successor and is never labeled.
func BuildDataset(f *indicator.Frame, names []string) Dataset {
	ds := Dataset{Features: append([]string(nil), names...)}
	points := f.Points()

	for _, row := range f.Rows(names...) {
		next := row.Index + 1
		if next >= len(points) || row.Close == 0 {
			continue
		}
		x, err := row.Vector(names)
		if err != nil {
			continue
		}
		ret := points[next].Close/row.Close - 1

		ds.X = append(ds.X, x)
		ds.Y = append(ds.Y, LabelFor(ret))
		ds.Times = append(ds.Times, row.Time)
	}

	return ds
}
