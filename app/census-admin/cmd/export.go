package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/external/export"
	"github.com/spf13/cobra"
)

func newExportCommand(opts *options) *cobra.Command {
	var output string
	exportCmd := &cobra.Command{
		Use:   "export <ledger>",
		Short: "Write the tally of the last checkpoint as json and csv.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			checkpoint, err := store.LoadCheckpoint(args[0])
			if err != nil {
				return errors.Wrapf(err, "loading checkpoint of [%s]", args[0])
			}

			sink, err := export.NewFileSink(output)
			if err != nil {
				return err
			}
			err = export.NewArtifacts(sink).WriteArtifacts(checkpoint.Ledger, checkpoint.Tally)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d producers to %s and %s\n", len(checkpoint.Tally),
				sink.Path(checkpoint.Ledger+".json"), sink.Path(checkpoint.Ledger+".csv"))
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "output", "Folder for the exported files.")
	return exportCmd
}
