// Package conv provides linear convolution of real-valued signals.
//
// Two strategies are available:
//
//   - Direct convolution: simple O(N*M) time-domain convolution, best for short kernels
//   - Overlap-add (OLA): FFT-based block convolution for long signals and long kernels
//
// # Usage
//
// For one-shot convolution, use the simple functions:
//
//	result, err := conv.Convolve(signal, kernel)       // Auto-selects the algorithm
//	image, err := conv.Truncated(dry, rir, len(dry))  // Full convolution cut to len(dry)
//
// For repeated convolution with the same kernel, create a reusable convolver:
//
//	c, err := conv.NewOverlapAdd(kernel, blockSize)
//	result, err := c.Process(signal)
//
// # Algorithm Selection
//
// [Convolve] uses direct convolution for kernels of at most 64 samples and
// overlap-add otherwise. Room impulse responses (a few thousand taps) always
// take the FFT path.
package conv
