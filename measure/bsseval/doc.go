// Package bsseval computes the BSS Eval source separation metrics.
//
// Each estimate is decomposed against the reference sources using
// time-invariant FIR distortion filters:
//
//	estimate = s_target + e_interf + e_artif
//
// where s_target is the projection onto the matching reference (allowing
// filtering by the target filter), e_interf the additional part explained
// by the other references and e_artif the remainder. From these the
// package derives:
//
//   - SDR: signal to distortion ratio
//   - SIR: signal to interference ratio
//   - SAR: signal to artifacts ratio
//
// By default the estimate-to-reference assignment is the permutation that
// maximizes the mean SIR.
package bsseval
