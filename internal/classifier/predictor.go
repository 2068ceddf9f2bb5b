package classifier

import (
	"fmt"
	"sync"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/indicator"
)

// SignalSource names sub-signals produced by the classifier.
const SignalSource = "ml"

// NoModelConfidence is the confidence of the stand-in signal returned when
// no model is available.
const NoModelConfidence = 50.0

// SignalFor turns a prediction into a sub-signal. A nil model or a failed
// prediction yields HOLD at NoModelConfidence, never an error.
func SignalFor(m *Model, fv indicator.FeatureVector) core.SubSignal {
	if m == nil {
		return core.HoldSignal(SignalSource, NoModelConfidence, "No ML model")
	}

	p, err := m.PredictRow(fv)
	if err != nil {
		return core.HoldSignal(SignalSource, NoModelConfidence, "ML prediction unavailable")
	}

	action, reason := core.ActionHold, "ML predicts sideways movement"
	switch p.Label {
	case LabelUp:
		action, reason = core.ActionBuy, "ML predicts price increase"
	case LabelDown:
		action, reason = core.ActionSell, "ML predicts price decrease"
	}

	return core.SubSignal{
		Source:     SignalSource,
		Action:     action,
		Confidence: p.Confidence(),
		Reason:     reason,
		Metadata: map[string]any{
			"prediction":    string(p.Label),
			"probabilities": p.Probabilities,
		},
	}
}

// Session holds at most one model per symbol for the life of the process.
// Models are immutable, so readers share them without copying.
type Session struct {
	mu      sync.RWMutex
	cfg     Config
	models  map[string]*Model
	reports map[string]Report
}

// NewSession creates an empty session training with cfg
func NewSession(cfg Config) *Session {
	return &Session{
		cfg:     cfg.withDefaults(),
		models:  make(map[string]*Model),
		reports: make(map[string]Report),
	}
}

// Train fits a model for symbol from frame and replaces any previous one.
// On failure the previous model, if any, is kept.
func (s *Session) Train(symbol string, frame *indicator.Frame) (*Model, Report, error) {
	if frame == nil || frame.Len() == 0 {
		return nil, Report{}, core.WrapError(core.ErrInsufficientData, fmt.Errorf("no price data for %s", symbol))
	}

	ds := BuildDataset(frame, FeatureNames)
	m, report, err := Train(ds, s.cfg)
	if err != nil {
		return nil, report, fmt.Errorf("training %s: %w", symbol, err)
	}

	s.mu.Lock()
	s.models[symbol] = m
	s.reports[symbol] = report
	s.mu.Unlock()

	return m, report, nil
}

// Ensure returns the symbol's model, training it first if none exists.
func (s *Session) Ensure(symbol string, frame *indicator.Frame) (*Model, error) {
	if m, ok := s.Model(symbol); ok {
		return m, nil
	}
	m, _, err := s.Train(symbol, frame)
	return m, err
}

// Model returns the trained model for symbol
func (s *Session) Model(symbol string) (*Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[symbol]
	return m, ok
}

// Report returns the last successful training report for symbol
func (s *Session) Report(symbol string) (Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[symbol]
	return r, ok
}

// Symbols returns every symbol with a trained model
func (s *Session) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.models))
	for sym := range s.models {
		out = append(out, sym)
	}
	return out
}

// Forget discards the model for symbol
func (s *Session) Forget(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.models, symbol)
	delete(s.reports, symbol)
}
