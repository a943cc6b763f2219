package main

import (
	"fmt"
	"strconv"

	"github.com/SaiNageswarS/doqq/memory"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/spf13/cobra"
)

func newChatCmd(configPath *string) *cobra.Command {
	var (
		sessionID int
		fresh     bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the model",
		Long:  "Continues the most recent session, or the one given with --session, in an interactive prompt. Type exit to leave.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.controller.Start(cmd.Context()); err != nil {
				return err
			}

			switch {
			case fresh:
				err = a.controller.Select(a.manager.Count())
			case cmd.Flags().Changed("session"):
				err = a.controller.Select(sessionID)
			}
			if err != nil {
				return err
			}

			a.printer.Transcript(a.controller.Transcript())
			return runREPL(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&sessionID, "session", "s", 0, "session id to continue")
	cmd.Flags().BoolVar(&fresh, "new", false, "start a new session")
	return cmd
}

func newPrimeCmd(configPath *string) *cobra.Command {
	var (
		model   string
		noREPL  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "prime <dir>",
		Short: "Prime a new session with the files of a directory",
		Long:  "Sends every file under dir to the model, then opens an interactive prompt on the primed session unless --no-repl is set.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, cmd.OutOrStdout(), verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.controller.Start(cmd.Context()); err != nil {
				return err
			}

			result, err := a.controller.Prime(cmd.Context(), model, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %d (%s) primed with %d files\n", result.SessionID, result.Name, result.Sent)

			if noREPL {
				return nil
			}
			return runREPL(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model to prime (defaults to the configured or first installed model)")
	cmd.Flags().BoolVar(&noREPL, "no-repl", false, "exit once priming is done")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every file as it is sent")
	return cmd
}

func newSessionsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.manager.LoadSessions(cmd.Context()); err != nil {
				return err
			}
			a.printer.Sessions(a.manager.Recent())
			return nil
		},
	}
}

func newShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the transcript of a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", args[0], err)
			}

			a, err := newApp(*configPath, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.manager.LoadSessions(cmd.Context()); err != nil {
				return err
			}
			if _, ok := a.manager.Conversation(id); !ok {
				return fmt.Errorf("session %d: %w", id, memory.ErrSessionOutOfRange)
			}
			if err := a.controller.Select(id); err != nil {
				return err
			}
			a.printer.Transcript(a.controller.Transcript())
			return nil
		},
	}
}

func newModelsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := async.Await(a.client.ListModels(cmd.Context()))
			if err != nil {
				return err
			}
			a.printer.Models(list.Models, a.cfg.DefaultModel)
			return nil
		},
	}
}
