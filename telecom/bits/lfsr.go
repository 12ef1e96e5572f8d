package bits

import (
	"errors"
	"fmt"
	mathbits "math/bits"
)

// MaxOrder is the largest supported LFSR register length.
const MaxOrder = 16

// ErrInvalidOrder is returned for register lengths outside [2, MaxOrder].
var ErrInvalidOrder = errors.New("bits: LFSR order must be within [2, 16]")

// Feedback taps of primitive polynomials (Xilinx XAPP052 / Mitra 2007).
// Bit i stands for x^(n-i); the x^n term (bit 0) is added by Polynomial.
var primitiveTaps = [MaxOrder + 1]uint32{
	0,
	0,
	1 << 1,
	1 << 2,
	1 << 3,
	1 << 3,
	1 << 5,
	1 << 6,
	1<<6 | 1<<5 | 1<<4,
	1 << 5,
	1 << 7,
	1 << 9,
	1<<9 | 1<<8 | 1<<5,
	1<<9 | 1<<10 | 1<<12,
	1<<5 | 1<<3 | 1<<1,
	1 << 14,
	1<<5 | 1<<3 | 1<<2,
}

// Polynomial returns the feedback mask of a primitive polynomial of degree
// order.
func Polynomial(order int) (uint32, error) {
	if order < 2 || order > MaxOrder {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
	}
	return primitiveTaps[order] | 1, nil
}

// LFSR is a Fibonacci shift register producing a maximum-length sequence.
type LFSR struct {
	order int
	poly  uint32
	seed  uint32
	reg   uint32
}

// NewLFSR returns a register of the given order started from seed. A zero
// seed (the lock-up state) is replaced by 1.
func NewLFSR(order int, seed uint32) (*LFSR, error) {
	poly, err := Polynomial(order)
	if err != nil {
		return nil, err
	}
	seed &= 1<<order - 1
	if seed == 0 {
		seed = 1
	}
	return &LFSR{order: order, poly: poly, seed: seed, reg: seed}, nil
}

// Order returns the register length.
func (l *LFSR) Order() int { return l.order }

// Period returns the sequence period, 2^order - 1.
func (l *LFSR) Period() int { return 1<<l.order - 1 }

// Next returns the next output bit.
func (l *LFSR) Next() byte {
	fb := uint32(mathbits.OnesCount32(l.reg&l.poly) & 1)
	out := byte(l.reg & 1)
	l.reg = l.reg>>1 | fb<<(l.order-1)
	return out
}

// Fill writes the next len(dst) bits into dst.
func (l *LFSR) Fill(dst []byte) {
	for i := range dst {
		dst[i] = l.Next()
	}
}

// Reset restarts the sequence from the seed.
func (l *LFSR) Reset() { l.reg = l.seed }

// MLS returns one period of the maximum-length sequence of the given order,
// 2^order - 1 bits long.
func MLS(order int) ([]byte, error) {
	l, err := NewLFSR(order, 1)
	if err != nil {
		return nil, err
	}
	out := make([]byte, l.Period())
	l.Fill(out)
	return out, nil
}
