// Package commands implements the bssstudy subcommands.
package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-bss/internal/config"
)

var (
	// Global flags
	configPath string
	dataRoot   string
	verbose    bool

	// Loaded before every command runs.
	study  config.Study
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bssstudy",
	Short: "Datasets, scoring and charts for blind source separation studies",
	Long: `bssstudy - dataset preparation and evaluation for BSS studies.

Dry speech from SiSEC 2010 is convolved with multichannel room impulse
responses from the Bar-Ilan MIRD database to build a determined reverberant
mixture. Downloads and intermediate arrays are cached under the data root,
so every command can be re-run without network access.

A study is described by an optional YAML file (--config); every field
defaults to the standard setup (dev1_female3, 3 sources, 160 ms RT60,
STFT 4096/2048 Hann).

Examples:
  bssstudy fetch
  bssstudy mixture --wav-dir out/
  bssstudy score --oracle-steps 50 --store
  bssstudy runs import results.yaml
  bssstudy plot --out sdri.png`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

		s, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if dataRoot != "" {
			s.DataRoot = dataRoot
		}
		if err := s.Validate(); err != nil {
			return err
		}

		study = s
		return nil
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "study YAML file")
	rootCmd.PersistentFlags().StringVar(&dataRoot, "data", "", "data root (overrides data_root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
