package commands

import (
	"fmt"
	"image/color"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-bss/dataset"
	"github.com/cwbudde/algo-bss/measure/ir"
	"github.com/cwbudde/algo-bss/plot"
)

var rirPlot string

var rirCmd = &cobra.Command{
	Use:   "rir",
	Short: "Reverberation metrics of the selected MIRD responses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		mo := study.MixtureOptions()

		path, err := dataset.PrepareMIRD(cmd.Context(), mo.MIRD, datasetOptions(cmd)...)
		if err != nil {
			return err
		}

		c, err := dataset.LoadCache(path)
		if err != nil {
			return err
		}

		analyzer := ir.NewAnalyzer(float64(c.SampleRate))
		colors, err := plot.Colors("deep", c.NSources)
		if err != nil {
			return err
		}

		var fig *plot.Figure
		if rirPlot != "" {
			fig = plot.NewFigure("Energy decay", "Time [s]", "Level [dB]")
		}

		heading(out, "Room impulse responses")
		note(out, "%s", path)

		t := newTable(out, "Source", "Degree", "Channel", "RT60 [s]", "EDT [s]", "C50 [dB]", "D50", "Delay [ms]")
		for i := range c.NSources {
			rir, err := c.Matrix(dataset.SourceKey(i))
			if err != nil {
				return err
			}

			ms, err := analyzer.AnalyzeChannels(rir)
			if err != nil {
				return fmt.Errorf("source %d: %w", i, err)
			}

			for k, m := range ms {
				t.row(i, mo.MIRD.Degrees[i], mo.MIRD.Channels[k],
					fmt.Sprintf("%.3f", m.RT60), fmt.Sprintf("%.3f", m.EDT),
					dB(m.C50), fmt.Sprintf("%.2f", m.D50),
					fmt.Sprintf("%.2f", m.Delay*1e3))
			}

			if fig != nil {
				if err := addDecay(fig, analyzer, rir[study.Reporter.ReferenceID], mo.MIRD.Degrees[i], c.SampleRate, colors[i]); err != nil {
					return err
				}
			}
		}
		if err := t.flush(); err != nil {
			return err
		}

		if fig == nil {
			return nil
		}
		if err := fig.Save(rirPlot); err != nil {
			return err
		}
		note(out, "wrote %s", rirPlot)

		return nil
	},
}

func init() {
	rirCmd.Flags().StringVar(&rirPlot, "plot", "", "save the decay curves at the reference microphone")
	rootCmd.AddCommand(rirCmd)
}

// addDecay draws the Schroeder decay of rir, truncated at -60 dB.
func addDecay(fig *plot.Figure, a *ir.Analyzer, rir []float64, degree, sampleRate int, c color.Color) error {
	decay, err := a.DecayCurve(rir)
	if err != nil {
		return err
	}

	n := len(decay)
	for i, v := range decay {
		if v < -60 {
			n = i
			break
		}
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i) / float64(sampleRate)
	}

	return fig.AddLine(fmt.Sprintf("%d°", degree), x, decay[:n], c)
}
