// census-admin inspects and maintains the checkpoints of producer census scans.
package main

import (
	"os"

	"github.com/qubic/go-producer-census/app/census-admin/cmd"
)

func main() {
	if err := cmd.NewRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
