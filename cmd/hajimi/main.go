package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/hajimi/internal/app"
	"github.com/MrSnakeDoc/hajimi/internal/config"
	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/importer"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
	"github.com/MrSnakeDoc/hajimi/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var partitionFlag string

// newApp reads the environment and builds the configured backend. The
// caller must defer a.Close().
func newApp(ctx context.Context) (*app.App, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, log, fmt.Errorf("initializing app: %w", err)
	}
	return a, log, nil
}

// openBookmarks starts the backend and selects the --partition.
func openBookmarks(cmd *cobra.Command) (*app.App, app.Bookmarks, error) {
	ctx := cmd.Context()
	a, _, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return nil, nil, err
	}

	b := a.Bookmarks()
	if partitionFlag != "" {
		p, err := domain.ParsePartition(partitionFlag)
		if err != nil {
			_ = a.Close()
			return nil, nil, err
		}
		if p != b.Partition() {
			if err := b.SwitchPartition(ctx, p); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", domain.Notify(err).Message)
			}
		}
	}
	return a, b, nil
}

func printNotification(cmd *cobra.Command, n domain.Notification) {
	if n.Message == "" {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), n.Message)
	if n.Remediation != "" {
		fmt.Fprintln(cmd.OutOrStdout(), n.Remediation)
	}
}

var rootCmd = &cobra.Command{
	Use:          "hajimi",
	Short:        "Bookmark manager with cloud sync",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, log, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warn("shutdown incomplete", logger.Error(err))
			}
			log.Info("HAJIMI stopped cleanly")
			_ = log.Sync()
		}()
		return a.Serve(cmd.Context())
	},
}

var syncCmd = &cobra.Command{
	Use:       "sync [pull|push|both]",
	Short:     "Sync the partition with the remote file",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"pull", "push", "both"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		d, err := domain.ParseDirection(dir)
		if err != nil {
			return err
		}

		a, b, err := openBookmarks(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := b.Sync(cmd.Context(), d)
		printNotification(cmd, n)
		return err
	},
}

var importCmd = &cobra.Command{
	Use:   "import json|html FILE",
	Short: "Import bookmarks from a JSON array or a browser export",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var parse func(io.Reader) ([]domain.ImportItem, error)
		switch args[0] {
		case "json":
			parse = importer.ParseJSON
		case "html":
			parse = importer.ParseHTML
		default:
			return fmt.Errorf("unknown import format %q (want json or html)", args[0])
		}

		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()
		items, err := parse(f)
		if err != nil {
			return err
		}

		a, b, err := openBookmarks(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		added, err := b.Import(cmd.Context(), items)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d bookmarks\n", added, len(items))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export the partition as JSON, to stdout by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, b, err := openBookmarks(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := b.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return importer.Export(cmd.OutOrStdout(), list)
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		if err := importer.Export(f, list); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookmarks to %s\n", len(list), args[0])
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the sync configuration",
}

var configSyncCmd = &cobra.Command{
	Use:   "sync FILE",
	Short: "Store the sync config read from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadSyncConfig(args[0])
		if err != nil {
			return err
		}
		a, b, err := openBookmarks(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := b.SaveSyncConfig(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sync config stored (provider %s)\n", cfg.Provider)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored sync config with the token redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, b, err := openBookmarks(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		cfg, err := b.SyncConfig(cmd.Context())
		if err != nil {
			return err
		}
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No sync config stored.")
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg.Redacted())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hajimi %s (commit=%s, built=%s, go=%s)\n",
			version.Version, version.Commit, version.BuildDate, version.GoVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&partitionFlag, "partition", "p", "", "partition to operate on (private or public)")

	configCmd.AddCommand(configSyncCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
