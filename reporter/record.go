package reporter

import "time"

// Entry is one scored iteration.
type Entry struct {
	Iteration int           `msgpack:"iteration"`
	Elapsed   time.Duration `msgpack:"elapsed"`
	SDRi      float64       `msgpack:"sdri"`
}

// Record accumulates the entries of one run.
type Record struct {
	Entries []Entry `msgpack:"entries"`
}

// Append adds an entry.
func (r *Record) Append(e Entry) {
	r.Entries = append(r.Entries, e)
}

// Len returns the number of entries.
func (r *Record) Len() int {
	return len(r.Entries)
}

// SDRi returns the improvement column.
func (r *Record) SDRi() []float64 {
	out := make([]float64, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.SDRi
	}
	return out
}

// Times returns the elapsed column in seconds.
func (r *Record) Times() []float64 {
	out := make([]float64, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Elapsed.Seconds()
	}
	return out
}

// Last returns the most recent entry.
func (r *Record) Last() (Entry, bool) {
	if len(r.Entries) == 0 {
		return Entry{}, false
	}
	return r.Entries[len(r.Entries)-1], true
}
