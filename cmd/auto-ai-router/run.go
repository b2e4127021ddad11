package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MiXaiLL76/auto-ai-router/pkg/config"
	"github.com/MiXaiLL76/auto-ai-router/pkg/server"
)

var runFlags struct {
	listenAddress string
	logLevel      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

The gateway listens on the configured address and serves the OpenAI REST
surface, routing each request to an upstream provider credential.

Examples:
  # Start with the default config
  auto-ai-router run

  # Start with a custom config
  auto-ai-router run --config /etc/auto-ai-router/config.yaml

  # Override the listen address
  auto-ai-router run --listen 0.0.0.0:8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	setupLogging(cfg)

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	return srv.Start(context.Background())
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Telemetry.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Telemetry.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without starting the gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		total := 0
		for _, pc := range cfg.Providers {
			total += len(pc.Credentials)
		}
		fmt.Printf("✓ Configuration valid: %d providers, %d credentials, %d models\n",
			len(cfg.Providers), total, len(cfg.Models))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
