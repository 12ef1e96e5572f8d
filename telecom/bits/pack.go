package bits

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrBitsPerSymbol is returned for symbol widths outside [1, 16].
var ErrBitsPerSymbol = errors.New("bits: bits per symbol must be within [1, 16]")

// SymbolCount returns the number of k-bit symbols needed for n bits.
func SymbolCount(n, k int) int {
	if k <= 0 {
		return 0
	}
	return (n + k - 1) / k
}

// PadTo returns b extended with zeros to a multiple of k bits. b is returned
// unchanged when no padding is needed.
func PadTo(b []byte, k int) []byte {
	n := SymbolCount(len(b), k) * k
	if n == len(b) {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Pack groups bits into symbol indices of k bits, least significant bit
// first. The last symbol is zero padded.
func Pack(b []byte, k int) ([]int, error) {
	if k < 1 || k > 16 {
		return nil, fmt.Errorf("%w: %d", ErrBitsPerSymbol, k)
	}
	out := make([]int, SymbolCount(len(b), k))
	for i, v := range b {
		out[i/k] |= int(v&1) << (i % k)
	}
	return out, nil
}

// Unpack expands symbol indices into k bits each, least significant bit
// first.
func Unpack(symbols []int, k int) ([]byte, error) {
	if k < 1 || k > 16 {
		return nil, fmt.Errorf("%w: %d", ErrBitsPerSymbol, k)
	}
	out := make([]byte, len(symbols)*k)
	for i, s := range symbols {
		for j := range k {
			out[i*k+j] = byte(s>>j) & 1
		}
	}
	return out, nil
}

// Errors returns the number of differing bits over the common length of a
// and b.
func Errors(a, b []byte) int {
	n := 0
	for i := range min(len(a), len(b)) {
		if (a[i]^b[i])&1 != 0 {
			n++
		}
	}
	return n
}

// Random returns n uniformly distributed bits drawn from r.
func Random(r *rand.Rand, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.Uint32() & 1)
	}
	return out
}
