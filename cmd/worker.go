package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"pgblast/internal/worker"
)

// workerCmd hosts one child worker process. The parent re-execs the binary
// with this subcommand, writes a worker spec to stdin, and reads one
// result batch from stdout. Not for direct use.
var workerCmd = &cobra.Command{
	Use:    worker.ChildCommand,
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return worker.RunChild(cmd.Context(), os.Stdin, os.Stdout, worker.PgProvider)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
