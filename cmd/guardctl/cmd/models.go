package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect model risk tiers",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known model with its tier and recommended preset",
	Long: `Lists the model-tier classification table (spec §3.6): every known
model's trust tier, a human-readable tier label, and the preset
apply_preset would recommend for a model in that tier. Unknown models
default to the most cautious tier (tier 3), matching GetModelTier.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tTIER\tLABEL\tRECOMMENDED_PRESET")
		for _, info := range policy.ListModelTiers() {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", info.Model, info.Tier, info.TierLabel, info.Preset)
		}
		return w.Flush()
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	rootCmd.AddCommand(modelsCmd)
}
