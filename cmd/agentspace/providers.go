package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProvidersCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the providers and their backend endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors := a.backend.Registry().Descriptors()
			out := cmd.OutOrStdout()

			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]any{"providers": descriptors})
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTREAM\tCHAT\tCUMULATIVE GUARD")
			for _, descriptor := range descriptors {
				chat := descriptor.ChatPath
				if chat == "" {
					chat = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", descriptor.Name, descriptor.StreamPath, chat, descriptor.CumulativeGuard)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	return cmd
}
