package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"tourism-chat/internal/terminal"
	"tourism-chat/internal/usecase"
)

// maxMessageBytes bounds a single pasted line.
const maxMessageBytes = 1 << 20

func newReplCmd(build dispatcherFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Chat interactively",
		Long: `Chat interactively. Each line is sent as one message.

Commands:
  /toggle  close or reopen the chat (replies keep arriving while closed)
  /quit    wait for pending replies and exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			display := terminal.New(cmd.OutOrStdout())
			d, err := build(cmd.Context(), usecase.WithDisplay(display), usecase.WithLogger(slog.Default()))
			if err != nil {
				return err
			}
			defer func() {
				d.Wait()
				display.ScrollToBottom()
			}()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), maxMessageBytes)
			for scanner.Scan() {
				line := scanner.Text()
				switch strings.TrimSpace(line) {
				case "/quit":
					return nil
				case "/toggle":
					if !display.Toggle() {
						fmt.Fprintln(cmd.ErrOrStderr(), "chat closed, /toggle to reopen")
					}
				default:
					d.Submit(cmd.Context(), line)
				}
			}
			return scanner.Err()
		},
	}
}
