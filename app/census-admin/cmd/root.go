// Package cmd contains the census-admin commands.
package cmd

import (
	"io"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/domain"
	"github.com/qubic/go-producer-census/entities"
	"github.com/qubic/go-producer-census/external/provider"
	"github.com/qubic/go-producer-census/infrastructure/store/pebbledb"
	"github.com/spf13/cobra"
)

type options struct {
	storeFolder string
	threshold   float64
	buckets     []string
}

func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:          "census-admin",
		Short:        "Inspect and maintain producer census checkpoints",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&opts.storeFolder, "store", "s", "store", "Folder of the checkpoint store.")
	rootCmd.PersistentFlags().Float64VarP(&opts.threshold, "threshold", "t", domain.DefaultSuperminorityThreshold, "Superminority threshold in percent.")
	rootCmd.PersistentFlags().StringSliceVarP(&opts.buckets, "buckets", "b", nil, "Distribution ranges, defaults to the preset of the ledger.")

	rootCmd.AddCommand(
		newListCommand(opts),
		newShowCommand(opts),
		newExportCommand(opts),
		newClearCommand(opts),
	)
	return rootCmd
}

func (o *options) openStore() (*pebbledb.Store, error) {
	store, err := pebbledb.NewCheckpointStore(o.storeFolder)
	if err != nil {
		return nil, errors.Wrapf(err, "opening store [%s]", o.storeFolder)
	}
	return store, nil
}

// bucketRanges returns the --buckets ranges or the preset the scanner uses for the ledger.
func (o *options) bucketRanges(ledger string) ([]entities.BucketRange, error) {
	specs := o.buckets
	if len(specs) == 0 {
		specs = domain.DefaultBuckets
		if preset, err := provider.LookupLedger(ledger); err == nil {
			specs = preset.Buckets
		}
	}
	return domain.ParseBucketRanges(specs...)
}
