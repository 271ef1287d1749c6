package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-bss/plot"
)

var paletteCmd = &cobra.Command{
	Use:   "palette <name> <n>",
	Short: "Print n colors of a named palette",
	Long: `Print n colors of a palette as rgb(r,g,b) strings.

Named palettes: ` + strings.Join(plot.Names(), ", ") + `.
"hls", "husl" and "blend:<hex>,<hex>,..." produce any number of colors.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid color count %q", args[1])
		}

		names, err := plot.Palette(args[0], n)
		if err != nil {
			return err
		}

		colors, err := plot.Colors(args[0], n)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, c := range colors {
			r, g, b, _ := c.RGBA()
			swatch := lipgloss.NewStyle().
				Background(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))).
				Render("    ")
			fmt.Fprintf(out, "%s %s\n", swatch, names[i])
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(paletteCmd)
}
