package window

import (
	"errors"
	"math"
	"testing"
)

func TestGenerateSymmetric(t *testing.T) {
	for _, typ := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman, TypeKaiser} {
		t.Run(typ.String(), func(t *testing.T) {
			w := Generate(typ, 33)
			if len(w) != 33 {
				t.Fatalf("len = %d, want 33", len(w))
			}
			for i := range w {
				if math.Abs(w[i]-w[len(w)-1-i]) > 1e-12 {
					t.Fatalf("w[%d] = %v, w[%d] = %v, want symmetric", i, w[i], len(w)-1-i, w[len(w)-1-i])
				}
			}
			if math.Abs(w[16]-1) > 1e-12 {
				t.Fatalf("centre = %v, want 1", w[16])
			}
		})
	}
}

func TestHannEndpoints(t *testing.T) {
	w := Generate(TypeHann, 9)
	if w[0] != 0 || math.Abs(w[8]) > 1e-15 {
		t.Fatalf("endpoints = %v, %v, want 0", w[0], w[8])
	}
	if got := At(TypeHann, 0.25); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("At(hann, 0.25) = %v, want 0.5", got)
	}
	if got := At(TypeHann, 1.5); got != 0 {
		t.Fatalf("At(hann, 1.5) = %v, want 0", got)
	}
}

func TestApply(t *testing.T) {
	buf := []float64{2, 2, 2, 2, 2}
	Apply(TypeHann, buf)
	want := []float64{0, 1, 2, 1, 0}
	for i := range want {
		if math.Abs(buf[i]-want[i]) > 1e-12 {
			t.Fatalf("buf[%d] = %v, want %v", i, buf[i], want[i])
		}
	}
}

func TestParse(t *testing.T) {
	got, err := Parse(" Blackman ")
	if err != nil || got != TypeBlackman {
		t.Fatalf("Parse() = %v, %v, want blackman", got, err)
	}
	if _, err := Parse("bartlett"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("Parse(bartlett) error = %v, want ErrUnknownType", err)
	}

	var w Type
	if err := w.UnmarshalText([]byte("hann")); err != nil || w != TypeHann {
		t.Fatalf("UnmarshalText(hann) = %v, %v", w, err)
	}
	text, err := TypeKaiser.MarshalText()
	if err != nil || string(text) != "kaiser" {
		t.Fatalf("MarshalText() = %q, %v", text, err)
	}
	if _, err := Type(99).MarshalText(); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("MarshalText(99) error = %v, want ErrUnknownType", err)
	}
}

func TestOptions(t *testing.T) {
	w := Generate(TypeHann, 8, WithPeriodic())
	if w[0] != 0 || math.Abs(w[4]-1) > 1e-12 || math.Abs(w[1]-w[7]) > 1e-12 {
		t.Fatalf("periodic hann = %v", w)
	}

	for i, v := range Generate(TypeKaiser, 9, WithAlpha(0)) {
		if math.Abs(v-1) > 1e-12 {
			t.Fatalf("kaiser(beta=0)[%d] = %v, want 1", i, v)
		}
	}
}
