package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/agentchat/internal/chat"
	"github.com/fyrsmithlabs/agentchat/internal/journal"
	"github.com/fyrsmithlabs/agentchat/internal/tui"
)

// runChat handles the root command: the full-screen client by default, a
// line-based REPL with --plain.
func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if plainMode {
		return runRepl(ctx, a)
	}
	return tui.Run(a.loop, a.directory)
}

// runRepl drives the conversation over stdin/stdout. One turn at a time:
// read a line, process it to completion, print the reply, repeat.
func runRepl(ctx context.Context, a *app) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sess := &chat.Session{}
	if err := selectThread(ctx, a, sess, scanner); err != nil {
		return err
	}

	fmt.Println(`Type a question, or /new, /threads, /delete, exit.`)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if isQuitCommand(input) {
			return nil
		}

		switch input {
		case "/new":
			a.loop.NewChat(sess)
			fmt.Println("Started a new chat.")
			continue
		case "/threads":
			if err := selectThread(ctx, a, sess, scanner); err != nil {
				return err
			}
			continue
		case "/delete":
			if sess.ThreadID == "" {
				fmt.Println("Nothing to delete.")
				continue
			}
			if err := a.loop.DeleteConversation(ctx, sess.ThreadID); err != nil {
				fmt.Printf("Delete failed: %v\n", err)
				continue
			}
			a.loop.NewChat(sess)
			fmt.Println("Conversation deleted.")
			continue
		}

		sess.ClearLog()
		result, err := a.loop.Turn(ctx, sess, input)
		printLog(sess.Log)
		if err != nil {
			fmt.Printf("Turn failed: %v\n", err)
			continue
		}
		if result.Failed() {
			fmt.Printf("Run failed: %s\n", result.ErrorDetail)
			continue
		}
		if result.Reply != "" {
			fmt.Printf("\n%s\n\n", result.Reply)
		}
	}
}

// isQuitCommand matches the ways a user ends the session. Bare words are
// accepted too, so a request to quit is never posted to the agent as a turn.
func isQuitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit", "q", "/exit", "/quit":
		return true
	}
	return false
}

// selectThread shows the resume menu and points the session at the chosen
// conversation. Selection is by list position; the thread id is what gets
// resumed.
func selectThread(ctx context.Context, a *app, sess *chat.Session, scanner *bufio.Scanner) error {
	threads, err := a.directory.ListThreads(ctx)
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		a.loop.NewChat(sess)
		return nil
	}

	fmt.Println("Saved conversations:")
	fmt.Println("  0) New chat")
	for i, info := range threads {
		fmt.Printf("  %d) %s  %s\n", i+1, info.Started(), info.Label)
	}
	fmt.Print("Select: ")
	if !scanner.Scan() {
		return scanner.Err()
	}
	choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || choice < 0 || choice > len(threads) {
		fmt.Println("Starting a new chat.")
		a.loop.NewChat(sess)
		return nil
	}
	if choice == 0 {
		a.loop.NewChat(sess)
		return nil
	}

	info := threads[choice-1]
	a.loop.Resume(ctx, sess, info.ThreadID)
	sess.SelectedLabel = info.Label
	printTranscript(sess)
	return nil
}

func printTranscript(sess *chat.Session) {
	for _, msg := range sess.Messages {
		if msg.Role == journal.RoleUser {
			fmt.Printf("You: %s\n", msg.Text)
		} else {
			fmt.Printf("Assistant: %s\n", msg.Text)
		}
	}
}

// printLog renders the per-turn activity log to stderr so replies on
// stdout stay pipeable.
func printLog(entries []chat.LogEntry) {
	for _, entry := range entries {
		for _, line := range formatLogEntry(entry) {
			fmt.Fprintln(os.Stderr, line)
		}
	}
}

func formatLogEntry(entry chat.LogEntry) []string {
	switch entry.Kind {
	case chat.LogWarning:
		return []string{"[warn] " + entry.Text}
	case chat.LogError:
		return []string{"[error] " + entry.Text}
	case chat.LogToolCalls:
		lines := []string{"[tools] " + entry.Text}
		for _, call := range entry.Calls {
			lines = append(lines, fmt.Sprintf("[tools]   %s %s (%s)", call.Type, call.Name, call.ID))
		}
		return lines
	default:
		return []string{"[info] " + entry.Text}
	}
}
