// Package stft implements the short-time Fourier transform and its
// overlap-add inverse.
//
// Framing follows the common offline convention: the signal is padded with
// FFTSize/2 zeros at both ends so every sample is covered by full frames,
// the tail is padded to a whole number of hops, and spectra are scaled by
// the reciprocal window sum. Inverse undoes all three steps so that
// Inverse(Forward(x), len(x)) reproduces x for windows satisfying the
// nonzero overlap-add condition.
package stft
