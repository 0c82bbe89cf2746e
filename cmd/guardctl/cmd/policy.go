package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentineltrace/guardctl/internal/adapter/outbound/store"
	"github.com/sentineltrace/guardctl/internal/config"
	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

// guardrailsJSONPath and guardrailsYAMLPath are the on-disk locations the
// policy store persists to, matching the names ConfigStore's own
// writeYAMLCompanion documents.
const (
	guardrailsJSONPath = "guardctl-guardrails.json"
	guardrailsYAMLPath = "guardctl-guardrails.yaml"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect or mutate the guardrails policy store",
}

var policyGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current guardrails config as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openConfigStore()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s.Config())
	},
}

var policySetCmd = &cobra.Command{
	Use:   "set [file.json]",
	Short: "Replace the guardrails config wholesale from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var cfg config.GuardrailsConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		s, err := openConfigStore()
		if err != nil {
			return err
		}
		if err := s.SetConfig(cfg); err != nil {
			return fmt.Errorf("apply guardrails config: %w", err)
		}
		fmt.Printf("guardrails config written to %s\n", guardrailsJSONPath)
		return nil
	},
}

var policySetPolicyYAMLCmd = &cobra.Command{
	Use:   "set-policy-yaml [file.yaml]",
	Short: "Ingest a §6.1 PolicySet YAML document, replacing the compiled policy document",
	Long: `Implements set_policy_yaml (spec §4.3): parses file.yaml as a §6.1
PolicySet document (the same shape as the YAML companion file the
store writes next to the JSON config), reverse-compiles it into the guardrails config, persists, and
rebuilds the engine. Use this to hand-edit the YAML companion file and
feed the edit back in, instead of authoring the JSON config directly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		s, err := openConfigStore()
		if err != nil {
			return err
		}
		if err := s.SetPolicyYAML(data); err != nil {
			return fmt.Errorf("apply policy yaml: %w", err)
		}
		fmt.Printf("policy document from %s applied to %s\n", args[0], guardrailsJSONPath)
		return nil
	},
}

var policyApplyPresetCmd = &cobra.Command{
	Use:   "apply-preset [permissive|balanced|restrictive]",
	Short: "Merge a named preset into the guardrails config",
	Long: `Merges a preset's context defaults and per-context tool policies
into the current guardrails config, keeping whichever strategy is more
restrictive on any overlap.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preset := policy.Preset(args[0])
		switch preset {
		case policy.PresetPermissive, policy.PresetBalanced, policy.PresetRestrictive:
		default:
			return fmt.Errorf("unknown preset %q (want permissive, balanced, or restrictive)", args[0])
		}
		s, err := openConfigStore()
		if err != nil {
			return err
		}
		if err := s.ApplyPreset(preset); err != nil {
			return fmt.Errorf("apply preset: %w", err)
		}
		fmt.Printf("applied preset %q to %s\n", preset, guardrailsJSONPath)
		return nil
	},
}

func init() {
	policyCmd.AddCommand(policyGetCmd, policySetCmd, policySetPolicyYAMLCmd, policyApplyPresetCmd)
	rootCmd.AddCommand(policyCmd)
}

// openConfigStore loads the configured guardrails config as the store's
// starting point, then opens the JSON/YAML-backed ConfigStore over it
// (the JSON file, once present, takes precedence).
func openConfigStore() (*store.ConfigStore, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.Default()
	s, err := store.NewConfigStore(guardrailsJSONPath, guardrailsYAMLPath, cfg.Guardrails, logger)
	if err != nil {
		return nil, fmt.Errorf("open guardrails store: %w", err)
	}
	return s, nil
}
