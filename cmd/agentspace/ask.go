package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leofalp/agentspace/core/session"
	"github.com/leofalp/agentspace/providers/ai"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		providers  []string
		noStream   bool
		multiAgent bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "ask [flags] <question>",
		Short: "Ask the selected providers one question",
		Long: `Sends the question to every selected provider at once and prints each
answer when all of them settled. Progress is shown on stderr while the
answers stream in.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			question := strings.Join(args, " ")
			if len(providers) == 0 {
				providers = a.provider.Providers()[:1]
			}

			switch {
			case multiAgent:
				return a.askMultiAgent(ctx, cmd.OutOrStdout(), question, providers)
			case noStream:
				return a.askSync(ctx, cmd.OutOrStdout(), question, providers)
			}

			sess := session.New(a.provider,
				session.WithObserver(a.observer),
				session.WithMaxConcurrency(a.cfg.MaxConcurrency),
			)
			if err := sess.SetSelectedModels(providers); err != nil {
				return err
			}

			var progress io.Writer = cmd.ErrOrStderr()
			if quiet {
				progress = io.Discard
			}
			if err := a.runTurn(ctx, sess, question, progress); err != nil {
				return err
			}
			return a.renderer.Snapshot(cmd.OutOrStdout(), sess.Snapshot())
		},
	}

	cmd.Flags().StringSliceVarP(&providers, "provider", "p", nil, "provider to ask, repeatable (default: the first registered)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "use the non-streaming endpoint")
	cmd.Flags().BoolVar(&multiAgent, "multi-agent", false, "ask all providers in one backend call")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

// runTurn submits question and prints a progress line every time the turn
// state changes.
func (a *app) runTurn(ctx context.Context, sess *session.Session, question string, progress io.Writer) error {
	updates, unsubscribe := sess.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		last := ""
		for snapshot := range updates {
			if len(snapshot.Responses) == 0 {
				continue
			}
			line := a.renderer.Progress(snapshot)
			if line != last {
				fmt.Fprintf(progress, "\r\033[K%s", line)
				last = line
			}
		}
		if last != "" {
			fmt.Fprintln(progress)
		}
	}()

	err := sess.SubmitTurn(ctx, question)
	unsubscribe()
	<-done
	return err
}

func (a *app) askSync(ctx context.Context, out io.Writer, question string, providers []string) error {
	request := ai.ChatRequest{Message: question, Mode: ai.ModeOneLiner}
	for i, provider := range providers {
		if i > 0 {
			fmt.Fprintln(out)
		}
		answer, err := a.provider.SendMessage(ctx, provider, request)
		if err != nil {
			answer = ai.Failure(err.Error())
		}
		if err := a.renderer.Answer(out, provider, answer); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) askMultiAgent(ctx context.Context, out io.Writer, question string, providers []string) error {
	answers, err := a.backend.SendMultiAgent(ctx, question, providers)
	if err != nil {
		return err
	}
	for i, answer := range answers {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := a.renderer.Answer(out, answer.Provider, answer.Answer); err != nil {
			return err
		}
	}
	return nil
}
