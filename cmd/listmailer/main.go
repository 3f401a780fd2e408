// Command listmailer ingests campaign templates from a mailbox and sends
// them to the address list in rate-limited daily batches.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFiles []string

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "listmailer",
		Short: "Batch mailer for the QTurkey address list",
		Long: `listmailer polls a mailbox for "[mail-list]" messages, stores them as
templates and sends each one to the subscribed address list in bounded
batches, one batch per day.

Configuration is read from the environment and from .env when present.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv file(s) to load (default .env)")

	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newDispatchCmd(),
		newMigrateCmd(),
		newAddressesCmd(),
		newJobsCmd(),
	)
	return root
}
