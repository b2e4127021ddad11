package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "auto-ai-router",
	Short: "OpenAI-compatible gateway for OpenAI, Anthropic and Vertex AI",
	Long: `auto-ai-router is an OpenAI-compatible HTTP gateway that fronts multiple
upstream AI providers behind a single wire protocol.

It provides:
  - Model-name based routing across OpenAI, Anthropic and Google Vertex AI
  - Credential pooling with round-robin selection and failure-aware bans
  - Bidirectional schema translation, including streamed SSE responses
  - Unified OpenAI-shaped token usage accounting
  - Prometheus metrics and a pool health dashboard`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}
