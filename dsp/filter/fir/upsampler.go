package fir

// Upsampler is a polyphase interpolating FIR: every input sample is followed
// by factor-1 zeros and the result is filtered by coeffs, without computing
// the products with the inserted zeros.
//
//	y[n] = sum_k x[k] * h[n - k*factor]
type Upsampler struct {
	phases [][]float64 // phases[j][m] = h[m*factor + j]
	delay  []complex128
	pos    int
	factor int
}

// NewUpsampler returns an upsampler by factor (>= 1) using coeffs.
func NewUpsampler(coeffs []float64, factor int) *Upsampler {
	if factor < 1 {
		factor = 1
	}
	depth := (len(coeffs) + factor - 1) / factor
	if depth < 1 {
		depth = 1
	}
	phases := make([][]float64, factor)
	for j := range phases {
		phases[j] = make([]float64, depth)
		for m := range depth {
			if k := m*factor + j; k < len(coeffs) {
				phases[j][m] = coeffs[k]
			}
		}
	}
	return &Upsampler{
		phases: phases,
		delay:  make([]complex128, depth),
		factor: factor,
	}
}

// Factor returns the upsampling factor.
func (u *Upsampler) Factor() int {
	return u.factor
}

// Depth returns the number of input samples each output depends on.
func (u *Upsampler) Depth() int {
	return len(u.delay)
}

// ProcessSample pushes one input sample and writes Factor() outputs to dst.
func (u *Upsampler) ProcessSample(dst []complex128, x complex128) {
	n := len(u.delay)
	u.delay[u.pos] = x
	for j, h := range u.phases {
		var re, im float64
		p := u.pos
		for m := range n {
			re += h[m] * real(u.delay[p])
			im += h[m] * imag(u.delay[p])
			p--
			if p < 0 {
				p = n - 1
			}
		}
		dst[j] = complex(re, im)
	}
	u.pos++
	if u.pos >= n {
		u.pos = 0
	}
}

// Process upsamples src and returns len(src)*Factor() samples.
func (u *Upsampler) Process(src []complex128) []complex128 {
	out := make([]complex128, len(src)*u.factor)
	for i, x := range src {
		u.ProcessSample(out[i*u.factor:(i+1)*u.factor], x)
	}
	return out
}

// Reset clears the delay line.
func (u *Upsampler) Reset() {
	for i := range u.delay {
		u.delay[i] = 0
	}
	u.pos = 0
}
