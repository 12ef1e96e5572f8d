package waveform

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cwbudde/algo-modem/dsp/filter/design"
)

type entry struct {
	family Family
	m      int
	opts   []Option
}

var catalog = map[string]entry{
	"bpsk":   {family: PSK, m: 2},
	"qpsk":   {family: PSK, m: 4},
	"8psk":   {family: PSK, m: 8},
	"16psk":  {family: PSK, m: 16},
	"16qam":  {family: QAM, m: 16},
	"64qam":  {family: QAM, m: 64},
	"256qam": {family: QAM, m: 256},
	"2ask":   {family: ASK, m: 2},
	"4ask":   {family: ASK, m: 4},
	"8ask":   {family: ASK, m: 8},
	"ook":    {family: ASK, m: 2, opts: []Option{WithASKLevels(0, 1)}},
	"fsk":    {family: FSK, m: 2, opts: []Option{WithIndex(1)}},
	"4fsk":   {family: FSK, m: 4, opts: []Option{WithIndex(1)}},
	"msk":    {family: FSK, m: 2, opts: []Option{WithIndex(0.5)}},
	"gfsk":   {family: FSK, m: 2, opts: []Option{WithIndex(1), WithFilter(design.Spec{Type: design.TypeGaussian})}},
	"gmsk":   {family: FSK, m: 2, opts: []Option{WithIndex(0.5), WithFilter(design.Spec{Type: design.TypeGaussian})}},
}

// ByName returns a catalog waveform. Names are case insensitive; extra
// options are applied after the catalog defaults.
func ByName(name string, opts ...Option) (*Waveform, error) {
	e, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return New(e.family, e.m, append(slices.Clone(e.opts), opts...)...)
}

// Catalog returns the sorted waveform names accepted by ByName.
func Catalog() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
