package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newFeedbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <message>",
		Short: "Send feedback to the backend operators",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.backend.SendFeedback(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Thanks, feedback sent.")
			return nil
		},
	}
}
