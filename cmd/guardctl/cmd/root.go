// Package cmd provides the guardctl CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentineltrace/guardctl/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "guardctl",
	Short: "guardctl - policy-gated tool execution gateway",
	Long: `guardctl sits in front of an agent runtime's tool-calling loop and
resolves every tool call against a policy document: allow, deny, filter
through a prompt-injection shield, or route to a human (chat/phone) or an
AI reviewer for a verdict.

Quick start:
  1. Create a config file: guardctl.yaml
  2. Run: guardctl serve

Configuration:
  Config is loaded from guardctl.yaml in the current directory,
  $HOME/.guardctl/, or /etc/guardctl/.

  Environment variables override config values with the GUARDCTL_ prefix.
  Example: GUARDCTL_SERVER_HTTP_ADDR=:9090

Commands:
  serve          Start the approval/metrics HTTP server
  policy get     Print the current guardrails config
  policy set     Replace the guardrails config from a file
  policy set-policy-yaml  Ingest a raw PolicySet YAML document
  policy apply-preset  Merge a named preset into the guardrails config
  approve        Resolve a pending chat approval from the command line
  hash-key       Generate an argon2id hash for an approval-API key
  context list   List background-agent contexts and their default policy
  models list    List known models with their risk tier and preset
  version        Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./guardctl.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
