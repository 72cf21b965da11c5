package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"DailyDigest/internal/app"
	"DailyDigest/internal/config"
	"DailyDigest/internal/logging"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the daily pipeline once and exit",
	Long:  "Scrapes the sources, caches the articles, generates the report and the poster, and optionally publishes them.",
	RunE:  runOnce,
}

var (
	runDate    string
	runSources []string
	runUseAI   bool
	runPublish bool
)

func init() {
	runCommand.Flags().StringVarP(&runDate, "date", "d", "", "Target date YYYY-MM-DD (defaults to today in the scheduler timezone)")
	runCommand.Flags().StringSliceVarP(&runSources, "sources", "s", nil, "Sources to scrape (defaults to tencent,aibase)")
	runCommand.Flags().BoolVar(&runUseAI, "use-ai", true, "Let the language model design the poster layout")
	runCommand.Flags().BoolVar(&runPublish, "publish", false, "Send the report and poster to the webhook")

	rootCmd.AddCommand(runCommand)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		application.Close(closeCtx)
	}()

	result, err := application.Run(ctx, app.RunRequest{
		Date:    runDate,
		Sources: runSources,
		UseAI:   runUseAI,
		Publish: runPublish,
	})
	if err != nil {
		return fmt.Errorf("daily run failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
