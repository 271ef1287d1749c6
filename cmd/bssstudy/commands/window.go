package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-bss/dsp/window"
)

var (
	windowSize     int
	windowPeriodic bool
)

var windowTypes = []window.Type{
	window.TypeRectangular,
	window.TypeHann,
	window.TypeHamming,
	window.TypeBlackman,
	window.TypeKaiser,
}

var windowCmd = &cobra.Command{
	Use:   "window [name...]",
	Short: "Print spectral properties of the STFT windows",
	Long: `Print tabulated and measured properties of the analysis windows.

Without arguments every supported window is listed. The configured STFT
window is marked with an asterisk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		types := windowTypes
		if len(args) > 0 {
			types = types[:0:0]
			for _, name := range args {
				t, err := window.Parse(name)
				if err != nil {
					return err
				}
				types = append(types, t)
			}
		}

		configured, _ := window.Parse(study.STFT.Window)

		var opts []window.Option
		if windowPeriodic {
			opts = append(opts, window.WithPeriodic())
		}

		heading(out, fmt.Sprintf("Windows, %d samples", windowSize))
		t := newTable(out, "Window", "ENBW [bins]", "ENBW (measured)", "Sidelobe [dB]", "Coherent gain", "Sum")
		for _, typ := range types {
			coeffs := window.Generate(typ, windowSize, opts...)

			enbw, err := window.EquivalentNoiseBandwidth(coeffs)
			if err != nil {
				return fmt.Errorf("%s: %w", typ, err)
			}

			info := window.Info(typ)
			name := typ.String()
			if typ == configured {
				name += " *"
			}

			t.row(name,
				fmt.Sprintf("%.3f", info.ENBW),
				fmt.Sprintf("%.3f", enbw),
				fmt.Sprintf("%.1f", info.HighestSidelobe),
				fmt.Sprintf("%.3f", info.CoherentGain),
				fmt.Sprintf("%.2f", window.Sum(coeffs)))
		}

		return t.flush()
	},
}

func init() {
	windowCmd.Flags().IntVar(&windowSize, "size", 1024, "window length in samples")
	windowCmd.Flags().BoolVar(&windowPeriodic, "periodic", false, "use the periodic form")
	rootCmd.AddCommand(windowCmd)
}
