// Package reporter scores an iterative separation algorithm while it runs.
//
// An SDRiReporter is called once per iteration of the algorithm. Every Nth
// call it turns the current estimate back into waveforms, scores it with
// BSS Eval against the reference source images and appends the SDR
// improvement over the unprocessed mixture to the algorithm's Record,
// together with the elapsed time spent in the algorithm itself.
package reporter
