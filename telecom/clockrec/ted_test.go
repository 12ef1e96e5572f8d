package clockrec

import (
	"math"
	"testing"
)

func TestDecisionGardner(t *testing.T) {
	if _, ok := DecisionGardner(1, 0.3, 1); ok {
		t.Fatal("equal decisions produced an error value")
	}

	// Late sampling of a -1 -> +1 transition lands past the zero crossing.
	e, ok := DecisionGardner(-1, 0.2, 1)
	if !ok || math.Abs(e-0.2) > 1e-12 {
		t.Fatalf("DecisionGardner(-1, 0.2, 1) = %v, %v, want 0.2, true", e, ok)
	}
	e, _ = DecisionGardner(1, 0.2, -1)
	if math.Abs(e+0.2) > 1e-12 {
		t.Fatalf("DecisionGardner(1, 0.2, -1) = %v, want -0.2", e)
	}

	// Only the component along the transition counts.
	e, _ = DecisionGardner(complex(-1, -1), complex(0.1, 0.3), complex(1, -1))
	if math.Abs(e-0.1) > 1e-12 {
		t.Fatalf("DecisionGardner on I transition = %v, want 0.1", e)
	}
}

func TestGardner(t *testing.T) {
	if got := Gardner(-0.9, 0.25, 1.1); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("Gardner() = %v, want 0.5", got)
	}
	if e, ok := TEDGardner.Error(1, 0.3, 1); !ok || e != 0 {
		t.Fatalf("TEDGardner.Error on equal symbols = %v, %v, want 0, true", e, ok)
	}
}

func TestParseTED(t *testing.T) {
	for _, ted := range []TED{TEDDecision, TEDGardner} {
		text, err := ted.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back TED
		if err := back.UnmarshalText(text); err != nil || back != ted {
			t.Fatalf("round trip of %v = %v, %v", ted, back, err)
		}
	}
	if _, err := ParseTED("early-late"); err == nil {
		t.Fatal("ParseTED accepted an unknown detector")
	}
}
