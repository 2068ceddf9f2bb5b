package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/indicator"
)

// Config holds forest training parameters
type Config struct {
	Trees           int     `mapstructure:"trees"`
	MaxDepth        int     `mapstructure:"max_depth"`
	MinRows         int     `mapstructure:"min_rows"`
	MinSamplesSplit int     `mapstructure:"min_samples_split"`
	TestFraction    float64 `mapstructure:"test_fraction"`
	Seed            uint64  `mapstructure:"seed"`
}

// DefaultConfig returns the standard forest settings
func DefaultConfig() Config {
	return Config{
		Trees:           100,
		MaxDepth:        10,
		MinRows:         50,
		MinSamplesSplit: 2,
		TestFraction:    0.2,
		Seed:            42,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Trees <= 0 {
		c.Trees = d.Trees
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.MinRows <= 0 {
		c.MinRows = d.MinRows
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = d.MinSamplesSplit
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		c.TestFraction = d.TestFraction
	}
	return c
}

// FeatureImportance is the normalized impurity decrease attributed to a feature
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Report summarizes a training run. Accuracy is held-out accuracy and is
// informational only.
type Report struct {
	Rows        int                 `json:"rows"`
	TrainRows   int                 `json:"train_rows"`
	TestRows    int                 `json:"test_rows"`
	Accuracy    float64             `json:"accuracy"`
	ClassCounts map[Label]int       `json:"class_counts"`
	Importances []FeatureImportance `json:"importances"`
}

// Model is a trained forest. It is never mutated after Train returns and is
// safe for concurrent use.
type Model struct {
	features  []string
	trees     []*tree
	trainedAt time.Time
}

// Prediction is the model output for one feature vector
type Prediction struct {
	Label         Label
	Probabilities map[Label]float64
}

// Confidence is the predicted class probability on a 0-100 scale.
func (p Prediction) Confidence() float64 {
	return core.ClampConfidence(p.Probabilities[p.Label] * 100)
}

// Train fits a forest on ds. It fails with ErrInsufficientData when ds has
// fewer than cfg.MinRows rows; no partial model is returned.
func Train(ds Dataset, cfg Config) (*Model, Report, error) {
	cfg = cfg.withDefaults()

	if ds.Len() < cfg.MinRows {
		return nil, Report{}, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%d labeled rows, need %d", ds.Len(), cfg.MinRows))
	}
	if len(ds.Features) == 0 || len(ds.X) != len(ds.Y) {
		return nil, Report{}, core.WrapError(core.ErrSchemaMismatch,
			fmt.Errorf("dataset has %d features, %d rows and %d labels", len(ds.Features), len(ds.X), len(ds.Y)))
	}

	y := make([]int, ds.Len())
	for i, l := range ds.Y {
		if len(ds.X[i]) != len(ds.Features) {
			return nil, Report{}, core.WrapError(core.ErrSchemaMismatch,
				fmt.Errorf("row %d has %d features, want %d", i, len(ds.X[i]), len(ds.Features)))
		}
		y[i] = classIndex(l)
		if y[i] < 0 {
			return nil, Report{}, core.WrapError(core.ErrSchemaMismatch,
				fmt.Errorf("row %d: unknown label %q", i, l))
		}
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0x5eed))
	trainIdx, testIdx := stratifiedSplit(y, cfg.TestFraction, rng)
	classWeight := balancedWeights(y, trainIdx)

	w := make([]float64, len(y))
	for i := range y {
		w[i] = classWeight[y[i]]
	}

	nFeatures := len(ds.Features)
	maxFeatures := int(math.Sqrt(float64(nFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	m := &Model{
		features:  append([]string(nil), ds.Features...),
		trees:     make([]*tree, 0, cfg.Trees),
		trainedAt: time.Now(),
	}
	importance := make([]float64, nFeatures)

	for t := 0; t < cfg.Trees; t++ {
		treeRng := rand.New(rand.NewPCG(cfg.Seed, uint64(t+1)))

		sample := make([]int, len(trainIdx))
		for i := range sample {
			sample[i] = trainIdx[treeRng.IntN(len(trainIdx))]
		}

		b := &treeBuilder{
			x:           ds.X,
			y:           y,
			w:           w,
			nClasses:    len(Classes),
			maxDepth:    cfg.MaxDepth,
			minSplit:    cfg.MinSamplesSplit,
			maxFeatures: maxFeatures,
			rng:         treeRng,
		}
		m.trees = append(m.trees, b.build(sample))
		addNormalized(importance, b.importance)
	}

	report := Report{
		Rows:        ds.Len(),
		TrainRows:   len(trainIdx),
		TestRows:    len(testIdx),
		ClassCounts: ds.ClassCounts(),
		Importances: rankImportances(ds.Features, importance),
	}
	if len(testIdx) > 0 {
		correct := 0
		for _, i := range testIdx {
			if p := m.predictIndex(ds.X[i]); p == y[i] {
				correct++
			}
		}
		report.Accuracy = float64(correct) / float64(len(testIdx))
	}

	return m, report, nil
}

// Features returns the ordered feature schema
func (m *Model) Features() []string {
	return append([]string(nil), m.features...)
}

// TrainedAt returns when the model was fitted
func (m *Model) TrainedAt() time.Time {
	return m.trainedAt
}

// Predict classifies one vector laid out in Features() order.
func (m *Model) Predict(x []float64) (Prediction, error) {
	if len(x) != len(m.features) {
		return Prediction{}, core.WrapError(core.ErrSchemaMismatch,
			fmt.Errorf("got %d values, model expects %d", len(x), len(m.features)))
	}

	probs := m.probabilities(x)
	best := argmax(probs)

	out := Prediction{
		Label:         Classes[best],
		Probabilities: make(map[Label]float64, len(Classes)),
	}
	for i, c := range Classes {
		out.Probabilities[c] = probs[i]
	}
	return out, nil
}

// PredictRow classifies a feature vector by name.
func (m *Model) PredictRow(fv indicator.FeatureVector) (Prediction, error) {
	x, err := fv.Vector(m.features)
	if err != nil {
		return Prediction{}, err
	}
	return m.Predict(x)
}

func (m *Model) probabilities(x []float64) []float64 {
	probs := make([]float64, len(Classes))
	for _, t := range m.trees {
		for i, p := range t.predict(x) {
			probs[i] += p
		}
	}
	for i := range probs {
		probs[i] /= float64(len(m.trees))
	}
	return probs
}

func (m *Model) predictIndex(x []float64) int {
	return argmax(m.probabilities(x))
}

// argmax returns the first index holding the maximum.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// stratifiedSplit holds out frac of each class. Classes with a single row
// stay entirely in training.
func stratifiedSplit(y []int, frac float64, rng *rand.Rand) (train, test []int) {
	byClass := make(map[int][]int)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}

	for c := range Classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := 0
		if len(idx) >= 2 {
			nTest = int(math.Round(frac * float64(len(idx))))
			if nTest >= len(idx) {
				nTest = len(idx) - 1
			}
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// balancedWeights gives each class weight n / (k * n_c) over the training rows.
func balancedWeights(y []int, train []int) []float64 {
	counts := make([]float64, len(Classes))
	for _, i := range train {
		counts[y[i]]++
	}

	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}

	weights := make([]float64, len(Classes))
	for c, n := range counts {
		if n > 0 {
			weights[c] = float64(len(train)) / (float64(present) * n)
		}
	}
	return weights
}

func addNormalized(dst, src []float64) {
	var sum float64
	for _, v := range src {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i, v := range src {
		dst[i] += v / sum
	}
}

func rankImportances(features []string, raw []float64) []FeatureImportance {
	var sum float64
	for _, v := range raw {
		sum += v
	}

	out := make([]FeatureImportance, len(features))
	for i, f := range features {
		imp := 0.0
		if sum > 0 {
			imp = raw[i] / sum
		}
		out[i] = FeatureImportance{Feature: f, Importance: imp}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Importance > out[b].Importance
	})
	return out
}
