package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/sharegate/internal/transfer"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the repository folder layout on the share",
	Long: `Init creates the category folders below the configured path. With
--create the path itself is created first when it does not exist.
Running init again on an initialized repository is a no-op.`,
	Example: `  sharegate init
  sharegate init --create`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Probe whether the target is usable",
	Long: `Test runs the readiness probes against the configured path: whether
it exists, whether files can be written to it, whether folders can be
created next to it and whether it already holds a repository.`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

var initCreate bool

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(testCmd)

	initCmd.Flags().BoolVar(&initCreate, "create", false,
		"Create the repository path if it does not exist")
}

func runInit(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, m *transfer.Manager) error {
		if err := m.Init(ctx, initCreate); err != nil {
			return err
		}

		if jsonOutput {
			printJSON(map[string]interface{}{
				"success": true,
				"address": m.RootAddress(),
			})
		} else {
			printSuccess("Initialized repository at %s", m.RootAddress())
		}
		return nil
	})
}

func runTest(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, m *transfer.Manager) error {
		report := m.Probe(ctx)

		if jsonOutput {
			printJSON(map[string]interface{}{
				"address": m.RootAddress(),
				"report":  report,
			})
			return nil
		}

		printInfo("Target %s", m.RootAddress())
		printProbe("exists", report.TargetExists)
		printProbe("writable", report.TargetCanWrite)
		printProbe("parent allows folders", report.TargetCanCreate)
		printProbe("repository present", report.RepoFileExists)
		return nil
	})
}

func printProbe(label string, ok bool) {
	if ok {
		printSuccess("  ✓ %s", label)
	} else {
		printWarning("  ✗ %s", label)
	}
}
