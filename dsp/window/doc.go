// Package window generates the analysis windows used for STFT framing.
//
// Windows are produced in symmetric form by default; WithPeriodic selects
// the periodic (DFT-even) form expected by overlap-add synthesis.
package window
