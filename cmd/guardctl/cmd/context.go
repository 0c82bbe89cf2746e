package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Inspect execution contexts",
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every background-agent context and its default policy",
	Long: `Lists the first-class background-agent contexts (spec §3.2) alongside
the human-facing metadata from the background-agent registry: whether the
driver has tool access at all, its recommended default policy, and an
admin-facing note on the blast radius of changing that policy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "CONTEXT\tNAME\tHAS_TOOLS\tDEFAULT_POLICY\tRISK_NOTE")
		for _, a := range policy.ListBackgroundAgents() {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", a.ID, a.Name, a.HasTools, a.DefaultPolicy, a.RiskNote)
		}
		return w.Flush()
	},
}

func init() {
	contextCmd.AddCommand(contextListCmd)
	rootCmd.AddCommand(contextCmd)
}
