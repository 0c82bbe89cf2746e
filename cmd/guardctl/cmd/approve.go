package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentineltrace/guardctl/internal/config"
)

var (
	approveAPIKey string
	approveAddr   string
)

var approveCmd = &cobra.Command{
	Use:   "approve [tool-call-id]",
	Short: "Approve a pending chat approval on a running guardctl server",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolveApproval(true),
}

var denyCmd = &cobra.Command{
	Use:   "deny [tool-call-id]",
	Short: "Deny a pending chat approval on a running guardctl server",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolveApproval(false),
}

func init() {
	for _, c := range []*cobra.Command{approveCmd, denyCmd} {
		c.Flags().StringVar(&approveAPIKey, "api-key", "", "approval-API bearer token")
		c.Flags().StringVar(&approveAddr, "addr", "", "guardctl server address (default: server.http_addr from config)")
		rootCmd.AddCommand(c)
	}
}

func runResolveApproval(approved bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		toolCallID := args[0]
		addr := approveAddr
		if addr == "" {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			addr = cfg.Server.HTTPAddr
		}
		if approveAPIKey == "" {
			return fmt.Errorf("--api-key is required")
		}

		body, err := json.Marshal(struct {
			Approved bool `json:"approved"`
		}{Approved: approved})
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}

		url := fmt.Sprintf("http://%s/approvals/%s/resolve", addr, toolCallID)
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+approveAPIKey)

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("resolve approval: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %s: %s", resp.Status, respBody)
		}
		fmt.Println(string(respBody))
		return nil
	}
}
