// Package level summarizes waveform levels of microphone signals and
// source images: RMS, peak, crest factor and clipping in dBFS, and the
// input signal-to-interference ratio of each source in a mixture.
package level
