package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// threadsCmd manages saved conversations
var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List saved conversations",
	Long: `List conversations saved in the local journal directory, newest first.

Examples:
  # List saved conversations
  agentchat threads

  # Delete one
  agentchat threads delete thread_abc123`,
	RunE: runThreadsList,
}

var threadsDeleteCmd = &cobra.Command{
	Use:   "delete <thread-id>",
	Short: "Delete a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsDelete,
}

func init() {
	threadsCmd.AddCommand(threadsDeleteCmd)
}

func runThreadsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	threads, err := a.directory.ListThreads(cmd.Context())
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		fmt.Println("No saved conversations.")
		return nil
	}
	for _, info := range threads {
		fmt.Printf("%s  %s  %s\n", info.ThreadID, info.Started(), info.Label)
	}
	return nil
}

func runThreadsDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if err := a.loop.DeleteConversation(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
