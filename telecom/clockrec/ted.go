package clockrec

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// ErrUnknownTED is returned by ParseTED for unknown detector names.
var ErrUnknownTED = errors.New("clockrec: unknown timing error detector")

// TED selects a timing error detector.
type TED int

const (
	// TEDDecision is the decision-aided Gardner detector. prev and cur are
	// the decided symbols around the mid-symbol interpolant.
	TEDDecision TED = iota
	// TEDGardner is the classic Gardner detector working on raw on-symbol
	// interpolants.
	TEDGardner
)

func (t TED) String() string {
	switch t {
	case TEDDecision:
		return "decision"
	case TEDGardner:
		return "gardner"
	default:
		return fmt.Sprintf("ted(%d)", int(t))
	}
}

// ParseTED maps "decision" or "gardner" to a TED.
func ParseTED(name string) (TED, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "decision", "dd":
		return TEDDecision, nil
	case "gardner":
		return TEDGardner, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTED, name)
}

// MarshalText implements encoding.TextMarshaler.
func (t TED) MarshalText() ([]byte, error) {
	if t != TEDDecision && t != TEDGardner {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTED, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TED) UnmarshalText(text []byte) error {
	v, err := ParseTED(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Error returns the timing error for the symbol pair prev, cur and the
// interpolant mid taken half-way between them. The error is positive when
// the loop samples late. ok is false when no error can be formed; the
// decision-aided detector needs a symbol transition.
func (t TED) Error(prev, mid, cur complex128) (float64, bool) {
	switch t {
	case TEDDecision:
		return DecisionGardner(prev, mid, cur)
	case TEDGardner:
		return Gardner(prev, mid, cur), true
	}
	return 0, false
}

// DecisionGardner is Re<(d1-d0) conj(mid - (d0+d1)/2)> / |d1-d0|.
func DecisionGardner(d0, mid, d1 complex128) (float64, bool) {
	diff := d1 - d0
	if diff == 0 {
		return 0, false
	}
	m := mid - (d0+d1)/2
	e := (real(diff)*real(m) + imag(diff)*imag(m)) / cmplx.Abs(diff)
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0, false
	}
	return e, true
}

// Gardner is Re<(y1-y0) conj(mid)>.
func Gardner(y0, mid, y1 complex128) float64 {
	diff := y1 - y0
	return real(diff)*real(mid) + imag(diff)*imag(mid)
}
