package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-bss/dataset"
	"github.com/cwbudde/algo-bss/measure/level"
)

var mixtureWAVDir string

var mixtureCmd = &cobra.Command{
	Use:   "mixture",
	Short: "Synthesize the reverberant mixture and print its levels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		im, path, err := dataset.PrepareMixture(cmd.Context(), study.MixtureOptions(), datasetOptions(cmd)...)
		if err != nil {
			return err
		}

		nsrc, nch, n := im.Shape()
		heading(out, "Mixture")
		note(out, "%s: %d sources x %d channels x %d samples (%.2f s)",
			path, nsrc, nch, n, float64(n)/float64(im.SampleRate))

		mix := im.Mixture()
		t := newTable(out, "Channel", "RMS [dBFS]", "Peak [dBFS]", "Crest [dB]", "Clipped")
		for ch, st := range level.MeasureChannels(mix) {
			t.row(ch, dB(st.RMSdB), dB(st.PeakdB), dB(st.CrestdB), st.Clipped)
		}
		if err := t.flush(); err != nil {
			return err
		}

		ref := study.Reporter.ReferenceID
		images, err := im.ReferenceImages(ref)
		if err != nil {
			return err
		}

		sir, err := level.InputSIR(images)
		if err != nil {
			return err
		}

		fmt.Fprintln(out)
		heading(out, fmt.Sprintf("Input SIR at microphone %d", ref))
		t = newTable(out, "Source", "SIR [dB]")
		for i, v := range sir {
			t.row(i, dB(v))
		}
		if err := t.flush(); err != nil {
			return err
		}

		if mixtureWAVDir == "" {
			return nil
		}

		for ch, x := range mix {
			if err := dataset.WriteWAV(filepath.Join(mixtureWAVDir, fmt.Sprintf("mix_ch%d.wav", ch)), x, im.SampleRate); err != nil {
				return err
			}
		}
		for i, x := range images {
			if err := dataset.WriteWAV(filepath.Join(mixtureWAVDir, fmt.Sprintf("src%d_ch%d.wav", i, ref)), x, im.SampleRate); err != nil {
				return err
			}
		}
		note(out, "wrote %d files to %s", len(mix)+len(images), mixtureWAVDir)

		return nil
	},
}

func init() {
	mixtureCmd.Flags().StringVar(&mixtureWAVDir, "wav-dir", "", "write mixture channels and reference images as WAV")
	rootCmd.AddCommand(mixtureCmd)
}
