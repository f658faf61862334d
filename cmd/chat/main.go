package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tourism-chat/internal/app"
	"tourism-chat/internal/config"
	"tourism-chat/internal/usecase"
)

// dispatcherFactory builds the dispatcher once the command knows its display.
type dispatcherFactory func(ctx context.Context, opts ...usecase.DispatcherOption) (*usecase.Dispatcher, error)

var verbose bool

func newRootCmd(build dispatcherFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "tourism-chat",
		Short: "Chat about tourism in Saudi Arabia from the terminal",
		Long: `Chat about tourism in Saudi Arabia from the terminal.

Messages about other topics are answered locally with a fixed refusal;
everything else is sent to the Gemini API.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newAskCmd(build))
	root.AddCommand(newReplCmd(build))
	return root
}

func buildFromEnvironment(ctx context.Context, opts ...usecase.DispatcherOption) (*usecase.Dispatcher, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	var params app.Params
	if app.NeedsParams(cfg) {
		ps, err := app.NewParamStore(ctx)
		if err != nil {
			return nil, err
		}
		params = ps
	}
	return app.NewDispatcher(ctx, cfg, params, opts...)
}

func main() {
	if err := newRootCmd(buildFromEnvironment).Execute(); err != nil {
		os.Exit(1)
	}
}
