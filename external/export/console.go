package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

// PrintReport writes a human readable summary and the distribution table.
func PrintReport(out io.Writer, report *entities.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Ledger:\t%s\n", report.Ledger)
	fmt.Fprintf(w, "Scan:\t%s\n", report.ScanID)
	fmt.Fprintf(w, "Blocks:\t%d\n", report.TotalBlocks)
	fmt.Fprintf(w, "Unique producers:\t%d (%.2f%% of blocks)\n", report.UniqueProducers, report.UniqueProducerShare)
	fmt.Fprintf(w, "Processed units:\t%d\n", report.ProcessedUnits)
	fmt.Fprintf(w, "Failed units:\t%d\n", report.FailedUnits)
	if report.Superminority != nil {
		fmt.Fprintf(w, "Superminority (%.2f%%):\t%d\n", report.Threshold, *report.Superminority)
	} else {
		fmt.Fprintf(w, "Superminority (%.2f%%):\tn/a\n", report.Threshold)
	}
	if report.ActiveValidators > 0 {
		fmt.Fprintf(w, "Participation:\t%.2f%% of %d active validators\n", report.Participation, report.ActiveValidators)
	}
	if report.PersistenceError != "" {
		fmt.Fprintf(w, "Persistence error:\t%s\n", report.PersistenceError)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Range\tValidators\tBlocks\tShare")
	for _, bucket := range report.Distribution {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f%%\n", bucket.Label, bucket.Validators, bucket.Blocks, bucket.BlockShare)
	}

	err := w.Flush()
	if err != nil {
		return errors.Wrap(err, "flushing report table")
	}
	return nil
}
