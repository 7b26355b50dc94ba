package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/vigil/internal/config"
	"github.com/andresmejia3/vigil/internal/store"
	"github.com/spf13/cobra"
)

var (
	// DB is the snapshot store shared by subcommands
	DB store.Store
	// cfg is the environment configuration with flag overrides applied
	cfg config.Config

	dbURL        string
	settingsPath string
	staticDir    string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "vigil",
	Short:   "Face dwell-time watcher with snapshot archive and live event stream",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, &cfg)

		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.Open(cmd.Context(), cfg.DBURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			DB.Close()
		}
	},
}

// applyFlags lets explicitly passed persistent flags win over the environment.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("db") {
		c.DBURL = dbURL
	}
	if flags.Changed("settings") {
		c.Settings = settingsPath
	}
	if flags.Changed("static") {
		c.StaticDir = staticDir
	}
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database URL, sqlite://path or postgres://... (default: $VIGIL_DB, else sqlite://database.db)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Region of interest settings file (default: $VIGIL_SETTINGS, else settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&staticDir, "static", "", "Static directory holding index.html and images/ (default: $VIGIL_STATIC_DIR, else static)")
}
