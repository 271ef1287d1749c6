package runstore

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/cwbudde/algo-bss/reporter"
)

// yamlRun is the exchange form of a Run. Elapsed times are seconds.
type yamlRun struct {
	ID        string      `yaml:"id,omitempty"`
	Method    string      `yaml:"method"`
	Dataset   string      `yaml:"dataset,omitempty"`
	CreatedAt string      `yaml:"created_at,omitempty"`
	Entries   []yamlEntry `yaml:"entries"`
}

type yamlEntry struct {
	Iteration int     `yaml:"iteration"`
	Elapsed   float64 `yaml:"elapsed"`
	SDRi      float64 `yaml:"sdri"`
}

// DecodeYAML reads a YAML sequence of runs.
func DecodeYAML(r io.Reader) ([]Run, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var docs []yamlRun
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("runstore: yaml: %w", err)
	}

	runs := make([]Run, len(docs))
	for i, d := range docs {
		if d.Method == "" {
			return nil, fmt.Errorf("runstore: yaml run %d: method is required", i)
		}

		run := Run{ID: d.ID, Method: d.Method, Dataset: d.Dataset}
		if d.CreatedAt != "" {
			run.CreatedAt, err = time.Parse(time.RFC3339, d.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("runstore: yaml run %d: %w", i, err)
			}
		}

		for _, e := range d.Entries {
			run.Entries = append(run.Entries, reporter.Entry{
				Iteration: e.Iteration,
				Elapsed:   time.Duration(e.Elapsed * float64(time.Second)),
				SDRi:      e.SDRi,
			})
		}

		runs[i] = run
	}

	return runs, nil
}

// EncodeYAML writes runs in the form DecodeYAML reads.
func EncodeYAML(w io.Writer, runs []Run) error {
	docs := make([]yamlRun, len(runs))
	for i, run := range runs {
		d := yamlRun{ID: run.ID, Method: run.Method, Dataset: run.Dataset}
		if !run.CreatedAt.IsZero() {
			d.CreatedAt = run.CreatedAt.Format(time.RFC3339)
		}

		d.Entries = make([]yamlEntry, len(run.Entries))
		for k, e := range run.Entries {
			d.Entries[k] = yamlEntry{Iteration: e.Iteration, Elapsed: e.Elapsed.Seconds(), SDRi: e.SDRi}
		}

		docs[i] = d
	}

	data, err := yaml.Marshal(docs)
	if err != nil {
		return fmt.Errorf("runstore: yaml: %w", err)
	}

	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}
