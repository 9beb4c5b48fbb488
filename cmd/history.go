package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pgblast/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived benchmark runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := storage.DefaultPath()
		if err != nil {
			return err
		}
		store, err := storage.Open(path)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer store.Close()

		records, err := store.List(historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no archived runs")
			return nil
		}

		fmt.Printf("%-20s %-38s %10s %10s %8s %8s\n",
			"WHEN", "RUN ID", "TOTAL", "FAILED", "TPS", "P99MS")
		for _, rec := range records {
			fmt.Printf("%-20s %-38s %10d %10d %8.1f %8.2f\n",
				rec.Timestamp.Format("2006-01-02 15:04:05"),
				rec.ID,
				rec.Report.TotalTransactions,
				rec.Report.FailedTransactions,
				rec.Report.TPS,
				rec.Report.Latency.P99Ms,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
}
