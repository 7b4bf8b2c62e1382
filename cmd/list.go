package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/demoqa-e2e/internal/scenario"
)

func newListCmd() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := scenario.Select(scenario.Registry(), nil, tags)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTAGS\tDESCRIPTION")
			for _, s := range scenarios {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, strings.Join(s.Tags, ","), s.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "only list scenarios with any of these tags")
	return cmd
}
