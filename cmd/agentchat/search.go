package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// searchTool overrides the auto-selected tool name
var searchTool string

// toolsCmd inspects the documentation-search server
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools advertised by the documentation-search server",
	Long: `Connect directly to the configured MCP server and list its tools.
Useful for checking connectivity without running an agent.

Examples:
  agentchat tools`,
	RunE: runTools,
}

// searchCmd queries the documentation-search server directly
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Query the documentation-search server directly",
	Long: `Call the server's search tool without going through an agent run.

Examples:
  agentchat search "app service deployment slots"

  # Pick a specific tool
  agentchat search --tool microsoft_docs_search "bicep loops"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchTool, "tool", "", "tool name (default: first tool advertising search)")
}

func runTools(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	client, err := a.docsearchClient()
	if err != nil {
		return err
	}
	tools, err := client.ListTools(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Server %s (%s):\n", client.Label(), a.cfg.MCP.ServerURL)
	for _, tool := range tools {
		fmt.Printf("  %s\n", tool.Name)
		if tool.Description != "" {
			fmt.Printf("    %s\n", tool.Description)
		}
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	client, err := a.docsearchClient()
	if err != nil {
		return err
	}
	text, err := client.Search(cmd.Context(), searchTool, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
