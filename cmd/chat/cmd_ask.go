package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"tourism-chat/internal/domain"
	"tourism-chat/internal/terminal"
	"tourism-chat/internal/usecase"
)

// errTurnFailed makes `ask` exit non-zero once the failure has been printed.
var errTurnFailed = errors.New("turn failed")

func newAskCmd(build dispatcherFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message...>",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := build(cmd.Context(), usecase.WithLogger(slog.Default()))
			if err != nil {
				return err
			}
			turn, err := d.Ask(cmd.Context(), strings.Join(args, " "))
			var ucErr *usecase.Error
			if errors.As(err, &ucErr) && ucErr.Code == usecase.ErrorInvalidInput {
				return nil
			}

			display := terminal.New(cmd.OutOrStdout())
			display.Append(domain.Bubble{ID: turn.ID + "-user", Author: domain.AuthorUser, Text: turn.Input})
			display.Append(domain.Bubble{ID: turn.ID + "-bot", Author: domain.AuthorBot}.Settled(turn))
			display.ScrollToBottom()

			if turn.State == domain.StateFailed {
				return errTurnFailed
			}
			return err
		},
	}
}
