package conv

import (
	"fmt"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/transform"
)

// StreamingOverlapAdd implements streaming FFT-based convolution using
// overlap-add. It keeps the kernel spectrum and the convolution tail so that
// consecutive fixed-size blocks produce the same output as one long
// convolution, with no added latency.
type StreamingOverlapAdd struct {
	// Kernel in frequency domain
	kernelFFT []complex128

	kernelLen int
	blockSize int
	fftSize   int

	tr transform.Transform

	// Reusable buffers
	padded     []complex128
	convResult []complex128 // blockSize + kernelLen - 1

	// Overlap state (kernelLen-1 samples owed to the following blocks)
	tail []complex128

	blocks int64
}

// NewStreamingOverlapAdd creates a streaming overlap-add convolver.
// blockSize is the fixed size of input and output blocks. A nil factory
// selects transform.Default.
func NewStreamingOverlapAdd(kernel []complex128, blockSize int, factory transform.Factory) (*StreamingOverlapAdd, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}
	if factory == nil {
		factory = transform.Default
	}

	kernelLen := len(kernel)
	fftSize := core.NextPowerOf2(blockSize + kernelLen - 1)

	tr, err := factory(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create transform: %w", err)
	}

	soa := &StreamingOverlapAdd{
		kernelFFT:  make([]complex128, fftSize),
		kernelLen:  kernelLen,
		blockSize:  blockSize,
		fftSize:    fftSize,
		tr:         tr,
		padded:     make([]complex128, fftSize),
		convResult: make([]complex128, blockSize+kernelLen-1),
		tail:       make([]complex128, kernelLen-1),
	}

	copy(soa.padded, kernel)
	if err := tr.Forward(soa.kernelFFT, soa.padded); err != nil {
		return nil, fmt.Errorf("conv: failed to compute kernel spectrum: %w", err)
	}

	return soa, nil
}

// ProcessBlock convolves a single block and returns a new output block.
func (soa *StreamingOverlapAdd) ProcessBlock(input []complex128) ([]complex128, error) {
	output := make([]complex128, soa.blockSize)
	if err := soa.ProcessBlockTo(output, input); err != nil {
		return nil, err
	}
	return output, nil
}

// ProcessBlockTo convolves input and writes blockSize samples to output.
func (soa *StreamingOverlapAdd) ProcessBlockTo(output, input []complex128) error {
	if len(input) != soa.blockSize {
		return fmt.Errorf("%w: expected %d input samples, got %d", ErrLengthMismatch, soa.blockSize, len(input))
	}
	if len(output) != soa.blockSize {
		return fmt.Errorf("%w: expected %d output samples, got %d", ErrLengthMismatch, soa.blockSize, len(output))
	}

	copy(soa.padded, input)
	core.ZeroComplex(soa.padded[soa.blockSize:])

	if err := soa.tr.Forward(soa.padded, soa.padded); err != nil {
		return fmt.Errorf("conv: forward transform failed: %w", err)
	}
	for i := range soa.padded {
		soa.padded[i] *= soa.kernelFFT[i]
	}
	if err := soa.tr.Inverse(soa.padded, soa.padded); err != nil {
		return fmt.Errorf("conv: inverse transform failed: %w", err)
	}

	resultLen := len(soa.convResult)
	copy(soa.convResult, soa.padded[:resultLen])

	// The tail may be longer than a block: everything past blockSize moves
	// on to the next tail.
	for i, v := range soa.tail {
		soa.convResult[i] += v
	}

	copy(output, soa.convResult[:soa.blockSize])
	copy(soa.tail, soa.convResult[soa.blockSize:])
	soa.blocks++

	return nil
}

// Reset clears the overlap state and the block counter.
func (soa *StreamingOverlapAdd) Reset() {
	core.ZeroComplex(soa.tail)
	soa.blocks = 0
}

// BlockSize returns the block size.
func (soa *StreamingOverlapAdd) BlockSize() int {
	return soa.blockSize
}

// KernelLen returns the kernel length.
func (soa *StreamingOverlapAdd) KernelLen() int {
	return soa.kernelLen
}

// FFTSize returns the transform size.
func (soa *StreamingOverlapAdd) FFTSize() int {
	return soa.fftSize
}

// Blocks returns the number of blocks processed since construction or Reset.
func (soa *StreamingOverlapAdd) Blocks() int64 {
	return soa.blocks
}
