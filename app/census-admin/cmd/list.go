package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the checkpoint of every ledger.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			checkpoints, err := store.ListCheckpoints()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LEDGER\tSCAN\tCURSOR\tBLOCKS\tPRODUCERS\tUNITS\tFAILED\tFINAL\tSAVED")
			for _, cp := range checkpoints {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%t\t%s\n", cp.Ledger, cp.ScanID, cp.Cursor.Kind,
					cp.TotalBlocks, len(cp.Tally), cp.ProcessedUnits, cp.FailedUnits, cp.Final, cp.Timestamp.Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}
