package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leofalp/agentspace/core/bridge"
	"github.com/leofalp/agentspace/core/session"
	"github.com/leofalp/agentspace/providers/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over HTTP and websocket for a UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.Addr
			}

			sess := session.New(a.provider,
				session.WithObserver(a.observer),
				session.WithMaxConcurrency(a.cfg.MaxConcurrency),
			)
			server := bridge.New(sess, bridge.WithObserver(a.observer), bridge.WithBaseContext(ctx))
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.observer.Info(ctx, "Bridge listening",
					observability.String("addr", addr),
					observability.String("backend", a.backend.BaseURL()),
				)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("bridge stopped: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("error shutting down: %w", err)
			}
			// turns were cancelled with ctx
			server.Wait()
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from AGENTSPACE_ADDR or :8080)")
	return cmd
}
