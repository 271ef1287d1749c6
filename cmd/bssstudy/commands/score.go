package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-bss/bss"
	"github.com/cwbudde/algo-bss/dataset"
	"github.com/cwbudde/algo-bss/dsp/stft"
	"github.com/cwbudde/algo-bss/measure/bsseval"
	"github.com/cwbudde/algo-bss/reporter"
	"github.com/cwbudde/algo-bss/runstore"
)

var (
	scoreFilterLength int
	scoreOracleSteps  int
	scoreStore        bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "BSS Eval of the unprocessed mixture",
	Long: `Score every microphone of the mixture against the reference source
images with BSS Eval.

With --oracle-steps N the command also runs N iterations of a synthetic
separator whose demixing filter moves from identity to the least-squares
oracle filter, scoring it with the SDRi reporter exactly as a real method
would be scored. --store saves that run to the run database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		im, _, err := dataset.PrepareMixture(cmd.Context(), study.MixtureOptions(), datasetOptions(cmd)...)
		if err != nil {
			return err
		}

		refs, err := im.ReferenceImages(study.Reporter.ReferenceID)
		if err != nil {
			return err
		}

		res, err := bsseval.EvalSources(refs, im.Mixture(), bsseval.WithFilterLength(scoreFilterLength))
		if err != nil {
			return err
		}

		heading(out, fmt.Sprintf("Unprocessed mixture, reference microphone %d", study.Reporter.ReferenceID))
		t := newTable(out, "Source", "Channel", "SDR [dB]", "SIR [dB]", "SAR [dB]")
		for k := range res.SDR {
			t.row(k, res.Perm[k], dB(res.SDR[k]), dB(res.SIR[k]), dB(res.SAR[k]))
		}
		if err := t.flush(); err != nil {
			return err
		}

		if scoreOracleSteps <= 0 {
			return nil
		}

		rec, err := runOracle(im, scoreOracleSteps)
		if err != nil {
			return err
		}

		fmt.Fprintln(out)
		heading(out, "Oracle run")
		t = newTable(out, "Iteration", "Time [s]", "SDRi [dB]")
		for _, e := range rec.Entries {
			t.row(e.Iteration, fmt.Sprintf("%.3f", e.Elapsed.Seconds()), dB(e.SDRi))
		}
		if err := t.flush(); err != nil {
			return err
		}

		if !scoreStore {
			return nil
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run := &runstore.Run{Method: "oracle", Dataset: study.SiSEC2010.Tag, Entries: rec.Entries}
		if err := store.Put(cmd.Context(), run); err != nil {
			return err
		}
		note(out, "stored run %s", run.ID)

		return nil
	},
}

// oracleMethod walks its demixing filter from identity to the oracle.
type oracleMethod struct {
	input  stft.Spectrogram
	filter bss.DemixFilter
	record reporter.Record
}

func (m *oracleMethod) SpatialAlgorithm() string     { return bss.AlgorithmIP }
func (m *oracleMethod) Input() stft.Spectrogram      { return m.input }
func (m *oracleMethod) Output() stft.Spectrogram     { return nil }
func (m *oracleMethod) DemixFilter() bss.DemixFilter { return m.filter }
func (m *oracleMethod) Record() *reporter.Record     { return &m.record }

func runOracle(im *dataset.Image, steps int) (*reporter.Record, error) {
	cfg, err := study.STFTConfig()
	if err != nil {
		return nil, err
	}

	tr, err := stft.New(cfg)
	if err != nil {
		return nil, err
	}

	mix, err := tr.ForwardMulti(im.Mixture())
	if err != nil {
		return nil, err
	}

	refs, err := im.ReferenceImages(study.Reporter.ReferenceID)
	if err != nil {
		return nil, err
	}

	target, err := tr.ForwardMulti(refs)
	if err != nil {
		return nil, err
	}

	oracle, err := bss.OracleFilter(mix, target)
	if err != nil {
		return nil, err
	}

	opts, err := study.ReporterOptions()
	if err != nil {
		return nil, err
	}

	r, err := reporter.New(im.Data, append(opts, reporter.WithLogger(logger))...)
	if err != nil {
		return nil, err
	}

	nsrc, _, _ := im.Shape()
	identity := bss.NewIdentityFilter(tr.Bins(), nsrc)
	m := &oracleMethod{input: mix}

	for k := range steps {
		alpha := 1.0
		if steps > 1 {
			alpha = float64(k) / float64(steps-1)
		}

		m.filter, err = identity.Interpolate(oracle, alpha)
		if err != nil {
			return nil, err
		}

		if err := r.Report(m); err != nil {
			return nil, err
		}
	}

	return &m.record, nil
}

func init() {
	scoreCmd.Flags().IntVar(&scoreFilterLength, "filter-length", bsseval.DefaultFilterLength, "BSS Eval distortion filter length")
	scoreCmd.Flags().IntVar(&scoreOracleSteps, "oracle-steps", 0, "iterations of the oracle separator to score")
	scoreCmd.Flags().BoolVar(&scoreStore, "store", false, "store the oracle run")
	rootCmd.AddCommand(scoreCmd)
}
