// Package conv provides complex convolution and correlation for the
// receiver and emitter.
//
//   - Direct convolution: O(N*M) time-domain convolution, used for short kernels
//   - FFT convolution: one-shot linear convolution through a transform.Factory
//   - Streaming overlap-add (OLA): block-by-block FFT convolution with a fixed
//     kernel, carrying the M-1 sample tail across blocks
//
// A correlation against a pattern p is a convolution with CorrelationKernel(p),
// the conjugated and time-reversed pattern. Output n then holds
// sum_m conj(p[m]) * x[n-M+1+m], the match of the window ending at n.
//
// # Usage
//
//	k := conv.CorrelationKernel(pattern)
//	ola, err := conv.NewStreamingOverlapAdd(k, 256, nil)
//	if err != nil {
//		return err
//	}
//	corr, err := ola.ProcessBlock(block) // len(block) == 256
//
// The kernel may be longer than the block size; the tail then spans several
// blocks and results stay exact.
package conv
