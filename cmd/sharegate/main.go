package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheMichaelB/sharegate/internal/config"
	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/metrics"
	"github.com/TheMichaelB/sharegate/internal/models"
	"github.com/TheMichaelB/sharegate/internal/state"
	"github.com/TheMichaelB/sharegate/internal/storage"
	"github.com/TheMichaelB/sharegate/internal/transfer"
)

var (
	configFile string
	jsonOutput bool
	logLevel   string

	cfg       *config.Config
	logger    *events.Logger
	collector *metrics.Collector
	journal   state.Store
)

var rootCmd = &cobra.Command{
	Use:   "sharegate",
	Short: "Typed file storage on an SMB share",
	Long: `Sharegate stores repository files on an SMB share, sorting each file
into the folder of its category (multichunks, databases, actions,
transactions, temporary).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"Config file (default: ./sharegate.yaml, ~/.config/sharegate/sharegate.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
}

func main() {
	if err := execute(); err != nil {
		if jsonOutput {
			printJSON(map[string]interface{}{
				"success": false,
				"code":    models.Code(err),
				"error":   err.Error(),
			})
		} else {
			printError("%v", err)
		}
		os.Exit(1)
	}
}

// execute runs the command line and releases the journal and metrics on
// every exit path, including failed commands.
func execute() error {
	err := rootCmd.Execute()
	return errors.Join(err, teardown())
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.NewLoader(configFile).Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return err
	}
	events.SetDefault(logger)

	if !cfg.Log.Color || jsonOutput {
		color.NoColor = true
	}

	collector = metrics.New()

	if cfg.Journal.Enabled {
		journal, err = state.Open(cfg.Journal, logger)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
	}

	return nil
}

func teardown() error {
	var errs []error
	if cfg != nil && collector != nil && cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if journal != nil {
		if err := journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
		journal = nil
	}
	return errors.Join(errs...)
}

// openManager validates the share settings and builds a transfer manager on
// the configured backend. The caller closes the returned share.
func openManager(ctx context.Context) (*transfer.Manager, storage.Share, error) {
	if cfg.Share.Password == "" && cfg.Backend.Type == config.BackendSMB && term.IsTerminal(int(syscall.Stdin)) {
		password, err := promptPassword(fmt.Sprintf("Password for %s@%s: ", cfg.Share.Username, cfg.Share.Hostname))
		if err != nil {
			return nil, nil, fmt.Errorf("read password: %w", err)
		}
		cfg.Share.Password = password
	}

	settings, err := cfg.Settings()
	if err != nil {
		return nil, nil, err
	}

	share, err := storage.Open(ctx, cfg, settings, logger)
	if err != nil {
		return nil, nil, models.NewStorageError(models.ErrConnection, "connect", cfg.Share.Share, err)
	}

	opts := []transfer.Option{transfer.WithMetrics(collector)}
	if journal != nil {
		opts = append(opts, transfer.WithJournal(journal))
	}
	if cfg.Storage.TempDir != "" {
		opts = append(opts, transfer.WithTempDir(cfg.Storage.TempDir))
	}

	return transfer.New(settings, share, logger, opts...), share, nil
}

// withManager runs fn against a connected manager and closes the share.
func withManager(cmd *cobra.Command, fn func(ctx context.Context, m *transfer.Manager) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	m, share, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := share.Close(); cerr != nil {
			logger.WithError(cerr).Warn("Failed to close share")
		}
	}()

	return fn(ctx, m)
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	// Read password without echo
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // New line after password

	if err != nil {
		return "", err
	}

	return string(password), nil
}

func printSuccess(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(os.Stdout, format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(os.Stderr, format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
