package commands

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-bss/plot"
	"github.com/cwbudde/algo-bss/runstore"
)

var (
	plotOut     string
	plotPalette string
	plotTitle   string
	plotMarkers bool
)

var plotCmd = &cobra.Command{
	Use:   "plot [id...]",
	Short: "Chart SDRi over time for stored runs",
	Long: `Render SDRi curves of the given runs, or of every stored run, to --out.

A second chart with the final SDRi per method is written next to it with
"-final" appended to the file stem.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var runs []runstore.Run
		if len(args) == 0 {
			runs, err = store.List(cmd.Context())
			if err != nil {
				return err
			}
		}
		for _, id := range args {
			run, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			runs = append(runs, *run)
		}

		charts, err := plot.RenderRuns(runs, plot.RenderOptions{
			Palette: plotPalette,
			Title:   plotTitle,
			Markers: plotMarkers,
		})
		if err != nil {
			return err
		}

		final := finalPath(plotOut)
		if err := charts.Curves.Save(plotOut); err != nil {
			return err
		}
		if err := charts.Final.Save(final); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		note(out, "wrote %s", plotOut)
		note(out, "wrote %s", final)

		return nil
	},
}

func finalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-final" + ext
}

func init() {
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "sdri.png", "output file, format from the extension")
	plotCmd.Flags().StringVar(&plotPalette, "palette", "deep", "palette name")
	plotCmd.Flags().StringVar(&plotTitle, "title", "", "chart title")
	plotCmd.Flags().BoolVar(&plotMarkers, "markers", false, "mark every recorded entry")
	rootCmd.AddCommand(plotCmd)
}
