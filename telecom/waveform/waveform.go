package waveform

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"
	"strings"

	"github.com/cwbudde/algo-modem/dsp/filter/design"
	bitutil "github.com/cwbudde/algo-modem/telecom/bits"
)

// Errors returned by the constructors.
var (
	ErrUnknownFamily = errors.New("waveform: unknown modulation family")
	ErrOrder         = errors.New("waveform: invalid constellation size")
	ErrIndex         = errors.New("waveform: invalid modulation index")
	ErrUnknownName   = errors.New("waveform: unknown waveform name")
)

// Family is a modulation family.
type Family int

const (
	PSK Family = iota
	QAM
	ASK
	FSK
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case PSK:
		return "PSK"
	case QAM:
		return "QAM"
	case ASK:
		return "ASK"
	case FSK:
		return "FSK"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// ParseFamily maps "psk", "qam", "ask" or "fsk" to a Family.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "psk":
		return PSK, nil
	case "qam":
		return QAM, nil
	case "ask", "pam":
		return ASK, nil
	case "fsk":
		return FSK, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
}

// Option customises a Waveform under construction.
type Option func(*Waveform)

// WithFilter sets the shaping filter. Linear waveforms default to a root
// raised cosine, FSK to NRZ frequency pulses.
func WithFilter(spec design.Spec) Option {
	return func(w *Waveform) {
		w.filter = spec
		w.filterSet = true
	}
}

// WithIndex sets the FSK modulation index h (default 0.5, MSK).
func WithIndex(h float64) Option {
	return func(w *Waveform) { w.index = h }
}

// WithASKLevels sets the raw ASK levels to k1 + k2*i/(M-1) before energy
// normalisation (default -1, 2: bipolar).
func WithASKLevels(k1, k2 float64) Option {
	return func(w *Waveform) {
		w.askOffset = k1
		w.askSpan = k2
	}
}

// Waveform is an immutable modulation descriptor.
type Waveform struct {
	family Family
	m, k   int

	index     float64
	askOffset float64
	askSpan   float64
	filter    design.Spec
	filterSet bool

	// points[label] is the constellation point for a Gray label.
	points []complex128
	// scale maps normalised QAM/ASK values back to the integer grid.
	scale float64
	// rotation is the angle of PSK position 0.
	rotation float64
}

// New returns a waveform of the given family and order m.
func New(family Family, m int, opts ...Option) (*Waveform, error) {
	if m < 2 || m&(m-1) != 0 || m > 1<<16 {
		return nil, fmt.Errorf("%w: %d is not a power of two >= 2", ErrOrder, m)
	}

	w := &Waveform{
		family:    family,
		m:         m,
		k:         bits.TrailingZeros(uint(m)),
		index:     0.5,
		askOffset: -1,
		askSpan:   2,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if !w.filterSet {
		if family == FSK {
			w.filter = design.Spec{Type: design.TypeNRZ}
		} else {
			w.filter = design.Spec{Type: design.TypeRRC}
		}
	}

	switch family {
	case PSK:
		w.buildPSK()
	case QAM:
		if w.k%2 != 0 {
			return nil, fmt.Errorf("%w: QAM needs a square constellation, got %d", ErrOrder, m)
		}
		w.buildQAM()
	case ASK:
		if w.askSpan == 0 || !isFinite(w.askOffset) || !isFinite(w.askSpan) {
			return nil, fmt.Errorf("%w: ASK levels %v, %v", ErrOrder, w.askOffset, w.askSpan)
		}
		w.buildASK()
	case FSK:
		if w.index <= 0 || !isFinite(w.index) {
			return nil, fmt.Errorf("%w: %v", ErrIndex, w.index)
		}
		w.buildFSK()
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFamily, family)
	}

	return w, nil
}

func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func gray(pos int) int { return pos ^ pos>>1 }

func invGray(label int) int {
	pos := label
	for s := label >> 1; s != 0; s >>= 1 {
		pos ^= s
	}
	return pos
}

func (w *Waveform) buildPSK() {
	switch w.m {
	case 2:
		w.rotation = math.Pi
	case 4:
		w.rotation = math.Pi / 4
	}
	w.points = make([]complex128, w.m)
	for pos := range w.m {
		w.points[gray(pos)] = cmplx.Rect(1, w.rotation+2*math.Pi*float64(pos)/float64(w.m))
	}
}

func (w *Waveform) buildQAM() {
	half := w.k / 2
	side := 1 << half
	w.scale = math.Sqrt(2 * float64(w.m-1) / 3)
	w.points = make([]complex128, w.m)
	for label := range w.m {
		iPos := invGray(label & (side - 1))
		qPos := invGray(label >> half)
		re := float64(2*iPos - (side - 1))
		im := float64(2*qPos - (side - 1))
		w.points[label] = complex(re/w.scale, im/w.scale)
	}
}

func (w *Waveform) buildASK() {
	levels := make([]float64, w.m)
	var energy float64
	for pos := range w.m {
		v := w.askOffset + w.askSpan*float64(pos)/float64(w.m-1)
		levels[pos] = v
		energy += v * v
	}
	w.scale = math.Sqrt(energy / float64(w.m))
	if w.scale == 0 {
		w.scale = 1
	}
	w.points = make([]complex128, w.m)
	for pos, v := range levels {
		w.points[gray(pos)] = complex(v/w.scale, 0)
	}
}

func (w *Waveform) buildFSK() {
	w.scale = 1
	w.points = make([]complex128, w.m)
	for pos := range w.m {
		w.points[gray(pos)] = complex(2*float64(pos)/float64(w.m-1)-1, 0)
	}
}

// Family returns the modulation family.
func (w *Waveform) Family() Family { return w.family }

// M returns the constellation size.
func (w *Waveform) M() int { return w.m }

// BitsPerSymbol returns log2(M).
func (w *Waveform) BitsPerSymbol() int { return w.k }

// Index returns the FSK modulation index (0 for linear waveforms).
func (w *Waveform) Index() float64 {
	if w.family != FSK {
		return 0
	}
	return w.index
}

// Filter returns the shaping filter specification.
func (w *Waveform) Filter() design.Spec { return w.filter }

// IsLinear reports whether symbols are amplitude/phase points (as opposed to
// frequency deviations).
func (w *Waveform) IsLinear() bool { return w.family != FSK }

// Constellation returns a copy of the points indexed by symbol label. For
// FSK the values are normalised frequency deviations in [-1, 1].
func (w *Waveform) Constellation() []complex128 {
	out := make([]complex128, len(w.points))
	copy(out, w.points)
	return out
}

// SymbolValue returns the point for a symbol label.
func (w *Waveform) SymbolValue(index int) complex128 {
	return w.points[index]
}

// NearestSymbol returns the label of the constellation point closest to z.
// FSK and ASK decisions use the real part only.
func (w *Waveform) NearestSymbol(z complex128) int {
	switch w.family {
	case PSK:
		if w.m == 2 {
			if real(z) > 0 {
				return 1
			}
			return 0
		}
		a := cmplx.Phase(z) - w.rotation
		pos := int(math.Round(a*float64(w.m)/(2*math.Pi))) % w.m
		if pos < 0 {
			pos += w.m
		}
		return gray(pos)
	case QAM:
		half := w.k / 2
		side := 1 << half
		iPos := axisPosition(real(z)*w.scale, side)
		qPos := axisPosition(imag(z)*w.scale, side)
		return gray(iPos) | gray(qPos)<<half
	default:
		best, bestD := 0, math.Inf(1)
		x := real(z)
		for label, p := range w.points {
			if d := math.Abs(x - real(p)); d < bestD {
				best, bestD = label, d
			}
		}
		return best
	}
}

// axisPosition returns the grid position of v on an axis with side levels
// at -(side-1), ..., side-1.
func axisPosition(v float64, side int) int {
	pos := int(math.Round((v + float64(side-1)) / 2))
	return min(max(pos, 0), side-1)
}

// Decide returns the constellation point nearest to z.
func (w *Waveform) Decide(z complex128) complex128 {
	return w.points[w.NearestSymbol(z)]
}

// Map converts bits into symbols. The last symbol is zero padded.
func (w *Waveform) Map(b []byte) ([]complex128, error) {
	labels, err := bitutil.Pack(b, w.k)
	if err != nil {
		return nil, err
	}
	out := make([]complex128, len(labels))
	for i, l := range labels {
		out[i] = w.points[l]
	}
	return out, nil
}

// Labels converts bits into symbol labels.
func (w *Waveform) Labels(b []byte) ([]int, error) {
	return bitutil.Pack(b, w.k)
}

// Demap converts received symbols to bits by hard decision.
func (w *Waveform) Demap(symbols []complex128) []byte {
	labels := make([]int, len(symbols))
	for i, z := range symbols {
		labels[i] = w.NearestSymbol(z)
	}
	// k was checked by New.
	out, _ := bitutil.Unpack(labels, w.k)
	return out
}

// TheoreticalBER returns the bit error rate expected on an AWGN channel at
// the given Eb/N0 in dB. FSK assumes non-coherent orthogonal detection.
func (w *Waveform) TheoreticalBER(ebn0dB float64) float64 {
	ebn0 := math.Pow(10, ebn0dB/10)
	m := float64(w.m)
	k := float64(w.k)

	switch w.family {
	case PSK:
		ber := math.Erfc(math.Sqrt(k*ebn0)*math.Sin(math.Pi/m)) / k
		if w.m == 2 {
			ber /= 2
		}
		return ber
	case QAM:
		return (2 / k) * (1 - 1/math.Sqrt(m)) * math.Erfc(math.Sqrt(3*k*ebn0/(2*(m-1))))
	case ASK:
		return ((m - 1) / m) * math.Erfc(math.Sqrt(3*k*ebn0/(m*m-1))) / k
	default:
		var ps float64
		binom := 1.0
		for n := 1; n < w.m; n++ {
			binom *= float64(w.m-n) / float64(n)
			sign := 1.0
			if n%2 == 0 {
				sign = -1
			}
			fn := float64(n)
			ps += sign * binom / (fn + 1) * math.Exp(-fn*k*ebn0/(fn+1))
		}
		return ps * (m / 2) / (m - 1)
	}
}

// Name returns a short display name such as "BPSK", "16QAM" or "GMSK".
func (w *Waveform) Name() string {
	switch w.family {
	case PSK:
		switch w.m {
		case 2:
			return "BPSK"
		case 4:
			return "QPSK"
		}
		return fmt.Sprintf("%dPSK", w.m)
	case QAM:
		return fmt.Sprintf("%dQAM", w.m)
	case ASK:
		return fmt.Sprintf("%dASK", w.m)
	default:
		name := "FSK"
		if w.index == 0.5 {
			name = "MSK"
		}
		if w.filter.Type == design.TypeGaussian {
			name = "G" + name
		}
		if w.m != 2 {
			name = fmt.Sprintf("%d%s", w.m, name)
		}
		return name
	}
}

// String describes the waveform and its filter.
func (w *Waveform) String() string {
	s := fmt.Sprintf("%s, filter=%v", w.Name(), w.filter.Type)
	if w.family == FSK {
		s += fmt.Sprintf(", index=%g", w.index)
	}
	return s
}
