package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/clevertap"
	cfgpkg "github.com/SurturFTW/clevertap-cart-abandon/internal/config"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/dispatch"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/metrics"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/pipeline"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/source"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

const version = "0.1.0"

func main() {
	logger := newLogger(os.Getenv("CARTSYNC_LOG_LEVEL"), os.Getenv("CARTSYNC_LOG_FORMAT"))
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "cartsync",
		Short: "Cart-abandon delta pipeline CLI",
		Long:  "cartsync computes cart-abandon and most-viewed deltas from S3 exports and pushes consolidated events to CleverTap.",
	}

	jobCmd := &cobra.Command{Use: "job", Short: "Pipeline job operations"}

	jobRunCmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run one pipeline job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")
			days, _ := cmd.Flags().GetInt("days")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			if logLevel != "" || logFormat != "" {
				logger = newLogger(logLevel, logFormat)
				logpkg.RedirectStdLog(logger)
			}

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.FromEnv(); err != nil {
				return err
			}
			if days > 0 {
				cfg.Pipeline.LookbackDays = days
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			s3src, err := source.New(cfg.AWS.Region, logger)
			if err != nil {
				return err
			}
			deps := pipeline.Deps{
				Source:  s3src,
				Logger:  logger,
				Metrics: metrics.New(),
			}
			if !dryRun {
				deps.Uploader = s3src
				if cfg.CleverTap.AccountID != "" && cfg.CleverTap.Passcode != "" {
					var sink dispatch.Sink
					sink, err = clevertap.New(clevertap.Options{
						BaseURL:   cfg.CleverTap.BaseURL,
						AccountID: cfg.CleverTap.AccountID,
						Passcode:  cfg.CleverTap.Passcode,
						Timeout:   cfg.CleverTap.Timeout(),
					}, logger)
					if err != nil {
						return err
					}
					deps.Sink = sink
				}
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return pipeline.NewRunner(deps, cfg, dryRun).Run(ctx, args[0])
		},
	}
	jobRunCmd.Flags().String("config", os.Getenv("CARTSYNC_CONFIG"), "Config file path (.json, .yaml or .yml)")
	jobRunCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	jobRunCmd.Flags().String("log-format", "", "Log format: text|json (default text)")
	jobRunCmd.Flags().Int("days", 0, "Lookback window in days for export selection (overrides config)")
	jobRunCmd.Flags().Bool("dry-run", false, "Compute and log but skip artifact upload and dispatch")
	jobCmd.AddCommand(jobRunCmd)

	jobListCmd := &cobra.Command{
		Use:   "list",
		Short: "List runnable jobs",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range pipeline.Names() {
				fmt.Println(name)
			}
		},
	}
	jobCmd.AddCommand(jobListCmd)
	rootCmd.AddCommand(jobCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("cartsync", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level, format string) logpkg.Logger {
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	var formatter logpkg.Formatter = &logpkg.TextFormatter{}
	if format == "json" {
		formatter = &logpkg.JSONFormatter{}
	}
	return logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(formatter),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
}
