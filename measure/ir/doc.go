// Package ir summarizes room impulse responses with ISO 3382 style decay
// and energy-ratio parameters.
//
// It is used to sanity-check measured or resampled RIRs before they are
// convolved into mixtures: a resampled response should keep its
// reverberation time, and every channel of a multichannel set should show
// a plausible direct-sound peak.
//
//	analyzer := ir.NewAnalyzer(16000)
//	metrics, err := analyzer.AnalyzeChannels(rir) // rir[channel][tap]
package ir
