package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"DailyDigest/internal/app"
	"DailyDigest/internal/config"
	"DailyDigest/internal/logging"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway and the daily scheduler",
	RunE:  runServe,
}

var serveAddr string

func init() {
	serveCommand.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides DAILY_DIGEST_ADDR and the config file)")
	rootCmd.AddCommand(serveCommand)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	return application.Serve(ctx)
}
