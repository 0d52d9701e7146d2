package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"chatbot/internal/observability"
	"chatbot/internal/repository"
	"chatbot/internal/tui"
)

func newChatCmd(root *rootOptions) *cobra.Command {
	var (
		noColor bool
		plain   bool
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session in the terminal",
		Long: `Starts a single chat session. On a terminal a full-screen view is used;
when stdin or stdout is redirected the session reads one message per line.

The conversation lives only as long as the process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if noColor {
				lipgloss.SetColorProfile(termenv.Ascii)
				color.NoColor = true
			}

			log := observability.Discard()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				log = observability.New(f, cfg.LogLevel)
			}
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			chat, provider, err := newChatService(ctx, cfg, log, newSSMTokenGetter)
			if err != nil {
				return err
			}
			sess := repository.NewSessions().Create()
			log.InfoContext(ctx, "session started", "session_id", sess.ID)

			if !plain && isTerminal(os.Stdin) && isTerminal(os.Stdout) {
				return tui.Run(ctx, chat, sess, provider, os.Stdin, os.Stdout)
			}
			repl, err := tui.NewREPL(chat, sess, provider, os.Stdin, os.Stdout)
			if err != nil {
				return err
			}
			return repl.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors and styling")
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line interface even on a terminal")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write JSON logs to this file (logs are discarded otherwise)")
	return cmd
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
