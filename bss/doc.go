// Package bss holds the frequency-domain helpers shared by separation
// methods and their evaluation: applying a demixing filter to a mixture
// spectrogram and restoring the scale of separated sources by projection
// back onto a reference microphone.
//
// Spectrograms use the stft.Spectrogram layout [channel][bin][frame]; a
// separated spectrogram has one "channel" per source.
package bss
