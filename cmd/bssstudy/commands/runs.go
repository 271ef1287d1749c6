package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-bss/runstore"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage recorded SDRi runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			note(out, "no runs in %s", study.RunStoreDir())
			return nil
		}

		t := newTable(out, "ID", "Method", "Dataset", "Created", "Entries", "Final SDRi [dB]")
		for _, run := range runs {
			final := "-"
			if v, ok := run.Final(); ok {
				final = dB(v)
			}
			t.row(run.ID, run.Method, run.Dataset, run.CreatedAt.Format("2006-01-02 15:04:05"), len(run.Entries), final)
		}

		return t.flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the entries of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		heading(out, fmt.Sprintf("%s on %s", run.Method, run.Dataset))
		note(out, "%s, %s", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))

		t := newTable(out, "Iteration", "Time [s]", "SDRi [dB]")
		for _, e := range run.Entries {
			t.row(e.Iteration, fmt.Sprintf("%.3f", e.Elapsed.Seconds()), dB(e.SDRi))
		}

		return t.flush()
	},
}

var runsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import runs from a YAML document",
	Long: `Import runs recorded elsewhere. The document is a list of runs:

  - method: IP
    dataset: dev1_female3
    entries:
      - iteration: 0
        elapsed: 0.0
        sdri: 0.0
      - iteration: 10
        elapsed: 1.2
        sdri: 4.7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		runs, err := runstore.DecodeYAML(f)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		for i := range runs {
			if err := store.Put(cmd.Context(), &runs[i]); err != nil {
				return err
			}
			fmt.Fprintln(out, runs[i].ID)
		}

		return nil
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all runs as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		return runstore.EncodeYAML(cmd.OutOrStdout(), runs)
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
		}

		return nil
	},
}

func openStore() (*runstore.Store, error) {
	return runstore.Open(runstore.Options{Dir: study.RunStoreDir(), Logger: logger})
}

func init() {
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsImportCmd, runsExportCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}
