package commands

import (
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-bss/dataset"
)

var fetchArctic bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and cache the study datasets",
	Long: `Download SiSEC 2010 and MIRD, unpack them and build the array caches.

Archives and caches that already exist are reused, so running fetch twice
downloads nothing the second time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		opts := datasetOptions(cmd)
		mo := study.MixtureOptions()

		sisec, err := dataset.PrepareSiSEC2010(ctx, mo.SiSEC2010, opts...)
		if err != nil {
			return err
		}

		mird, err := dataset.PrepareMIRD(ctx, mo.MIRD, opts...)
		if err != nil {
			return err
		}

		heading(out, "Caches")
		t := newTable(out, "Dataset", "Path")
		t.row("SiSEC2010", sisec)
		t.row("MIRD", mird)

		if fetchArctic {
			arctic, err := dataset.PrepareCMUArctic(ctx, study.ArcticOptions(), opts...)
			if err != nil {
				return err
			}
			t.row("CMU ARCTIC", arctic)
		}

		return t.flush()
	},
}

func datasetOptions(cmd *cobra.Command) []dataset.Option {
	return []dataset.Option{
		dataset.WithLogger(logger),
		dataset.WithProgress(cmd.ErrOrStderr()),
	}
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchArctic, "arctic", false, "also fetch the CMU ARCTIC speakers")
	rootCmd.AddCommand(fetchCmd)
}
