package demod

import (
	"errors"
	"fmt"
	"strings"
)

// ErrArchitecture is returned for unknown architectures.
var ErrArchitecture = errors.New("demod: unknown architecture")

// Architecture selects the demodulation chain.
type Architecture int

const (
	DecisionDirected Architecture = iota
	NonDecisionDirected
)

func (a Architecture) String() string {
	switch a {
	case DecisionDirected:
		return "decision-directed"
	case NonDecisionDirected:
		return "non-decision-directed"
	default:
		return fmt.Sprintf("architecture(%d)", int(a))
	}
}

// ParseArchitecture accepts the String forms and the short names "dd" and
// "ndd".
func ParseArchitecture(name string) (Architecture, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dd", "decision-directed":
		return DecisionDirected, nil
	case "ndd", "non-decision-directed":
		return NonDecisionDirected, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrArchitecture, name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Architecture) MarshalText() ([]byte, error) {
	if a != DecisionDirected && a != NonDecisionDirected {
		return nil, fmt.Errorf("%w: %d", ErrArchitecture, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Architecture) UnmarshalText(text []byte) error {
	v, err := ParseArchitecture(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
