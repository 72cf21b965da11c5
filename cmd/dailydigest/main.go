package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dailydigest",
	Short: "AI news daily digest service",
	Long:  "DailyDigest scrapes AI news sources, summarizes them with DeepSeek, renders a poster and publishes the digest to a Kingsoft Docs group.",
}

func main() {
	_ = godotenv.Load(envFile())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envFile() string {
	if path := os.Getenv("DAILY_DIGEST_ENV_FILE"); path != "" {
		return path
	}
	return ".env"
}
