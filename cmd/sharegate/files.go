package main

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/sharegate/internal/models"
	"github.com/TheMichaelB/sharegate/internal/transfer"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-file> <category> [name]",
	Short: "Upload a local file into a category folder",
	Long: `Upload stages the file under a temporary name at the repository root
and renames it into the category folder once it is complete. The remote
name defaults to the base name of the local file.`,
	Example: `  sharegate upload ./multichunk-0a1b multichunk
  sharegate upload ./db.bin database database-laptop-0000000007`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runUpload,
}

var downloadCmd = &cobra.Command{
	Use:   "download <category> <name> <local-file>",
	Short: "Download a remote file",
	Args:  cobra.ExactArgs(3),
	RunE:  runDownload,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <category> <name>",
	Short: "Delete a remote file",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

var moveCmd = &cobra.Command{
	Use:     "move <category> <name> <category> <name>",
	Short:   "Rename a remote file, possibly across categories",
	Example: `  sharegate move generic pending-tx temp temp-pending-tx`,
	Args:    cobra.ExactArgs(4),
	RunE:    runMove,
}

var listCmd = &cobra.Command{
	Use:   "list <category>",
	Short: "List the files of a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var uncheckedNames bool

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(listCmd)

	for _, c := range []*cobra.Command{uploadCmd, downloadCmd, deleteCmd, moveCmd} {
		c.Flags().BoolVar(&uncheckedNames, "unchecked", false,
			"Skip the category naming rules (paths are still checked)")
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	name := filepath.Base(args[0])
	if len(args) == 3 {
		name = args[2]
	}
	rf, err := remoteFile(args[1], name)
	if err != nil {
		return err
	}

	return withManager(cmd, func(ctx context.Context, m *transfer.Manager) error {
		if err := m.Upload(ctx, args[0], rf); err != nil {
			return err
		}
		report("upload", rf, map[string]interface{}{"source": args[0]})
		return nil
	})
}

func runDownload(cmd *cobra.Command, args []string) error {
	rf, err := remoteFile(args[0], args[1])
	if err != nil {
		return err
	}

	return withManager(cmd, func(ctx context.Context, m *transfer.Manager) error {
		if err := m.Download(ctx, rf, args[2]); err != nil {
			return err
		}
		report("download", rf, map[string]interface{}{"dest": args[2]})
		return nil
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	rf, err := remoteFile(args[0], args[1])
	if err != nil {
		return err
	}

	return withManager(cmd, func(ctx context.Context, m *transfer.Manager) error {
		if _, err := m.Delete(ctx, rf); err != nil {
			return err
		}
		report("delete", rf, nil)
		return nil
	})
}

func runMove(cmd *cobra.Command, args []string) error {
	src, err := remoteFile(args[0], args[1])
	if err != nil {
		return err
	}
	dst, err := remoteFile(args[2], args[3])
	if err != nil {
		return err
	}

	return withManager(cmd, func(ctx context.Context, m *transfer.Manager) error {
		if err := m.Move(ctx, src, dst); err != nil {
			return err
		}
		report("move", src, map[string]interface{}{"to": dst.String()})
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	category, err := models.ParseCategory(args[0])
	if err != nil {
		return err
	}

	return withManager(cmd, func(ctx context.Context, m *transfer.Manager) error {
		files, err := m.List(ctx, category)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)

		if jsonOutput {
			printJSON(map[string]interface{}{
				"category": string(category),
				"files":    names,
			})
			return nil
		}

		if len(names) == 0 {
			printInfo("No %s files", category)
			return nil
		}
		for _, name := range names {
			printInfo("%s", name)
		}
		return nil
	})
}

func remoteFile(category, name string) (models.RemoteFile, error) {
	c, err := models.ParseCategory(category)
	if err != nil {
		return models.RemoteFile{}, err
	}
	if uncheckedNames {
		return models.UncheckedRemoteFile(c, name), nil
	}
	return models.NewRemoteFile(c, name)
}

func report(action string, rf models.RemoteFile, extra map[string]interface{}) {
	if jsonOutput {
		out := map[string]interface{}{
			"success":  true,
			"action":   action,
			"category": string(rf.Category()),
			"name":     rf.Name(),
		}
		for k, v := range extra {
			out[k] = v
		}
		printJSON(out)
		return
	}
	printSuccess("%s %s: ok", action, rf)
}
