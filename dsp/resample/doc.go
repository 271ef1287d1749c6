// Package resample provides offline rational sample-rate conversion using
// polyphase FIR filtering.
//
// [Poly] upsamples by up, applies a Kaiser-windowed sinc low-pass filter and
// downsamples by down. The filter delay is compensated, so the output stays
// time-aligned with the input and has length ceil(len(x)*up/down).
//
// Default design:
//
//	window        Kaiser, beta 5.0
//	half length   10 * max(up, down) taps at the upsampled rate
//	cutoff        1 / max(up, down) of Nyquist
//
// A 48 kHz impulse response is brought to 16 kHz with:
//
//	out, err := resample.Poly(ir, 16000, 48000)
package resample
