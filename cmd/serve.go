package cmd

import (
	"fmt"
	"log/slog"

	"github.com/andresmejia3/vigil/internal/config"
	"github.com/andresmejia3/vigil/internal/lifecycle"
	"github.com/andresmejia3/vigil/internal/notifier"
	"github.com/andresmejia3/vigil/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service (camera controls, snapshot archive, live events)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveAddr
		}

		region, err := config.LoadRegion(cfg.Settings)
		if err != nil {
			return err
		}
		if err := ensureStatic(cfg); err != nil {
			return err
		}

		log := slog.Default()
		ctrl := lifecycle.New(newDetectionRun(cfg, region, DB, cameraSource(cfg), nil), log)
		// The worker must release the camera before the process exits
		defer func() {
			if ctrl.Stop() == lifecycle.Stopped {
				log.Info("camera stopped on shutdown")
			}
		}()

		srv := &server.Server{
			Camera:  ctrl,
			Archive: DB,
			Events: notifier.New(DB, notifier.Options{
				Interval:  cfg.PollInterval,
				RetryHint: cfg.RetryHint,
				Logger:    log,
			}),
			StaticDir: cfg.StaticDir,
			Logger:    log,
		}

		if err := server.ListenAndServe(cmd.Context(), cfg.Addr, srv.Routes(), log); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":8000", "Listen address (default: $VIGIL_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
