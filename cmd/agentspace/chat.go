package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leofalp/agentspace/core/session"
	"github.com/leofalp/agentspace/internal/utils"
	"github.com/leofalp/agentspace/providers/ai"
)

func newChatCmd(a *app) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a conversation with one provider",
		Long: `Reads questions from stdin, one per line, and keeps the conversation
history between them. Type /history to see the latest exchanges, /reset to
start over and /quit to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if provider == "" {
				provider = a.provider.Providers()[0]
			}
			sess := session.New(a.provider, session.WithObserver(a.observer))
			if err := sess.SetMode(ai.ModeConversation); err != nil {
				return err
			}
			if err := sess.SetSelectedModels([]string{provider}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprintf(out, "Chatting with %s. /reset clears the history, /quit exits.\n", provider)
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}

				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/quit", "/exit":
					return nil
				case "/reset":
					// a mode round trip clears the history and keeps the provider
					if err := sess.SetMode(ai.ModeOneLiner); err != nil {
						return err
					}
					if err := sess.SetMode(ai.ModeConversation); err != nil {
						return err
					}
					fmt.Fprintln(out, "History cleared.")
					continue
				case "/history":
					if err := printHistory(ctx, out, sess); err != nil {
						return err
					}
					continue
				}

				if err := a.runTurn(ctx, sess, line, cmd.ErrOrStderr()); err != nil {
					return err
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				state, _ := sess.Snapshot().Response(provider)
				if err := a.renderer.Answer(out, "", state.Document); err != nil {
					return err
				}
			}
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider to talk to (default: the first registered)")
	return cmd
}

// historyShown is how many entries /history prints.
const historyShown = 10

func printHistory(ctx context.Context, out io.Writer, sess *session.Session) error {
	entries, err := sess.RecentHistory(ctx, historyShown)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "History is empty.")
		return nil
	}
	for _, entry := range entries {
		speaker := "you"
		if entry.Role == ai.RoleAssistant {
			speaker = entry.Provider
		}
		fmt.Fprintf(out, "%s: %s\n", speaker, utils.TruncateString(entry.Text(), 200))
	}
	return nil
}
