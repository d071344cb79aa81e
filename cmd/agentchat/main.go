// Package main implements the agentchat CLI, a conversational client for a
// hosted agents service with a documentation-search tool and a local
// per-thread conversation journal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile overrides the default config file location
	configFile string
	// plainMode selects the line-based REPL over the full-screen client
	plainMode bool
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentchat",
	Short: "Chat with a documentation-search agent",
	Long: `agentchat is a conversational client for a hosted agents service.
Each turn runs a short-lived agent with a documentation-search tool
attached, and every exchange is mirrored into a local JSON journal so
conversations can be resumed later.

Required configuration (environment or config file):
  PROJECT_ENDPOINT        base URL of the agents service
  MODEL_DEPLOYMENT_NAME   model deployment used for agents`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/agentchat/config.yaml)")
	rootCmd.Flags().BoolVar(&plainMode, "plain", false, "line-based REPL instead of the full-screen client")
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(searchCmd)
}
