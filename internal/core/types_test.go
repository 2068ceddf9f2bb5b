package core

import (
	"testing"
	"time"
)

func TestQuote_IsValid(t *testing.T) {
	q := Quote{
		Symbol:    "AAPL",
		Price:     189.5,
		ChangePct: 1.2,
		Time:      time.Now(),
	}

	if !q.IsValid() {
		t.Error("expected valid quote")
	}

	invalid := Quote{Symbol: "", Price: 0}
	if invalid.IsValid() {
		t.Error("expected invalid quote")
	}
}

func TestAction_Constants(t *testing.T) {
	expected := []string{"STRONG_BUY", "BUY", "WEAK_BUY", "HOLD", "WEAK_SELL", "SELL", "STRONG_SELL"}

	if len(Actions) != len(expected) {
		t.Fatalf("expected %d actions, got %d", len(expected), len(Actions))
	}
	for i, a := range Actions {
		if string(a) != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], a)
		}
		if !a.IsValid() {
			t.Errorf("%s should be valid", a)
		}
	}

	if Action("BULLISH").IsValid() {
		t.Error("BULLISH is not an action level")
	}
}

func TestAction_Score(t *testing.T) {
	want := []float64{100, 70, 40, 0, -40, -70, -100}
	for i, a := range Actions {
		if got := a.Score(); got != want[i] {
			t.Errorf("%s.Score() = %v, want %v", a, got, want[i])
		}
	}
	if Action("UNKNOWN").Score() != 0 {
		t.Error("unknown action should score 0")
	}
}

func TestHoldSignal_ClampsConfidence(t *testing.T) {
	s := HoldSignal("ml", 140, "no model")
	if s.Action != ActionHold {
		t.Errorf("expected HOLD, got %s", s.Action)
	}
	if s.Confidence != 100 {
		t.Errorf("expected clamp to 100, got %v", s.Confidence)
	}
}

func TestNewsItem_Text(t *testing.T) {
	n := NewsItem{Title: "Apple beats", Body: "record high"}
	if n.Text() != "Apple beats record high" {
		t.Errorf("unexpected text %q", n.Text())
	}
	if (NewsItem{Title: "only"}).Text() != "only" {
		t.Error("title-only item should not gain trailing space")
	}
}

func TestFusedSignal_Component(t *testing.T) {
	f := FusedSignal{Components: []Component{{Name: "technical"}, {Name: "sentiment"}}}
	if _, ok := f.Component("sentiment"); !ok {
		t.Error("expected sentiment component")
	}
	if _, ok := f.Component("macro"); ok {
		t.Error("unexpected component")
	}
}
