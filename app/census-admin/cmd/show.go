package cmd

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/domain"
	"github.com/qubic/go-producer-census/external/export"
	"github.com/spf13/cobra"
)

func newShowCommand(opts *options) *cobra.Command {
	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show <ledger>",
		Short: "Print the report of the last checkpoint of a ledger.",
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
			buckets, err := opts.bucketRanges(checkpoint.Ledger)
			if err != nil {
				return err
			}
			report := domain.ReportFromCheckpoint(checkpoint, buckets, opts.threshold)

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(report)
			}
			return export.PrintReport(cmd.OutOrStdout(), report)
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as json.")
	return showCmd
}
