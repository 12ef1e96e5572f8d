// Package frame describes burst layouts: a known header bit pattern
// followed by a fixed-length payload, with the waveforms and timing used to
// modulate them.
package frame

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/telecom/bits"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

// Errors reported by New and Validate.
var (
	ErrEmptyHeader   = errors.New("frame: header pattern is empty")
	ErrPayloadLength = errors.New("frame: invalid payload length")
	ErrWaveform      = errors.New("frame: incompatible waveforms")
	ErrBitCount      = errors.New("frame: payload bit count mismatch")
)

// Format is an immutable burst layout. The header is padded with zeros to a
// whole number of header symbols; the payload is padded to a whole number
// of payload symbols. The burst is shaped with the payload waveform's
// filter.
type Format struct {
	header      []byte
	payloadBits int
	wf          *waveform.Waveform
	headerWf    *waveform.Waveform
	timing      core.Timing
}

// New validates and returns a format. headerWf may be nil to modulate the
// header with wf.
func New(header []byte, payloadBits int, wf, headerWf *waveform.Waveform, timing core.Timing) (*Format, error) {
	if headerWf == nil {
		headerWf = wf
	}
	f := &Format{
		header:      append([]byte(nil), header...),
		payloadBits: payloadBits,
		wf:          wf,
		headerWf:    headerWf,
		timing:      timing,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.header = bits.PadTo(f.header, headerWf.BitsPerSymbol())
	return f, nil
}

// Validate checks the invariants of f.
func (f *Format) Validate() error {
	if len(f.header) == 0 {
		return ErrEmptyHeader
	}
	if f.payloadBits < 0 {
		return fmt.Errorf("%w: %d", ErrPayloadLength, f.payloadBits)
	}
	if f.wf == nil || f.headerWf == nil {
		return fmt.Errorf("%w: missing waveform", ErrWaveform)
	}
	if f.wf.IsLinear() != f.headerWf.IsLinear() {
		return fmt.Errorf("%w: header %s and payload %s", ErrWaveform, f.headerWf.Name(), f.wf.Name())
	}
	if !f.wf.IsLinear() && f.wf.Index() != f.headerWf.Index() {
		return fmt.Errorf("%w: FSK indices %g and %g differ", ErrWaveform, f.headerWf.Index(), f.wf.Index())
	}
	return f.timing.Validate()
}

// Header returns a copy of the padded header bits.
func (f *Format) Header() []byte { return append([]byte(nil), f.header...) }

// PayloadBits returns the payload length in bits.
func (f *Format) PayloadBits() int { return f.payloadBits }

// Waveform returns the payload waveform.
func (f *Format) Waveform() *waveform.Waveform { return f.wf }

// HeaderWaveform returns the header waveform.
func (f *Format) HeaderWaveform() *waveform.Waveform { return f.headerWf }

// Timing returns the modulation timing.
func (f *Format) Timing() core.Timing { return f.timing }

// OSF returns the oversampling factor.
func (f *Format) OSF() int { return f.timing.OSF() }

// HeaderSymbols returns the number of header symbols.
func (f *Format) HeaderSymbols() int {
	return len(f.header) / f.headerWf.BitsPerSymbol()
}

// PayloadSymbols returns the number of payload symbols.
func (f *Format) PayloadSymbols() int {
	return bits.SymbolCount(f.payloadBits, f.wf.BitsPerSymbol())
}

// Symbols returns the number of symbols in a burst.
func (f *Format) Symbols() int { return f.HeaderSymbols() + f.PayloadSymbols() }

// PatternLen returns the header duration in samples.
func (f *Format) PatternLen() int { return f.HeaderSymbols() * f.OSF() }

// HeaderSymbolValues returns the modulated header symbols.
func (f *Format) HeaderSymbolValues() []complex128 {
	s, _ := f.headerWf.Map(f.header)
	return s
}

// BurstSymbols maps the header and payload bits to the symbol sequence of
// one burst.
func (f *Format) BurstSymbols(payload []byte) ([]complex128, error) {
	if len(payload) != f.payloadBits {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBitCount, len(payload), f.payloadBits)
	}
	p, err := f.wf.Map(payload)
	if err != nil {
		return nil, err
	}
	return append(f.HeaderSymbolValues(), p...), nil
}

// String summarises the format.
func (f *Format) String() string {
	return fmt.Sprintf("header=%d bits (%s), payload=%d bits (%s), osf=%d",
		len(f.header), f.headerWf.Name(), f.payloadBits, f.wf.Name(), f.OSF())
}
