package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent operations from the local journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20,
		"Number of records to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if journal == nil {
		return errors.New("journal is disabled (set journal.enabled)")
	}

	records, err := journal.Recent(historyLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(records)
		return nil
	}

	if len(records) == 0 {
		printInfo("No recorded operations")
		return nil
	}

	for _, rec := range records {
		line := rec.Time.Local().Format(time.DateTime) + "  " + string(rec.Op)
		if rec.Name != "" {
			line += "  " + string(rec.Category) + "/" + rec.Name
		}
		if rec.Target != "" {
			line += "  -> " + rec.Target
		}
		if rec.Succeeded() {
			printSuccess("%s", line)
		} else {
			printError("%s  (%s)", line, rec.Error)
		}
	}
	return nil
}
