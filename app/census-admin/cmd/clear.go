package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newClearCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <ledger>",
		Short: "Delete the checkpoint of a ledger so the next scan starts fresh.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			err = store.DeleteCheckpoint(args[0])
			if err != nil {
				return errors.Wrapf(err, "deleting checkpoint of [%s]", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared checkpoint of %s\n", args[0])
			return nil
		},
	}
}
