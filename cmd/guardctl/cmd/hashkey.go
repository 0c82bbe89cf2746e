package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sentineltrace/guardctl/internal/domain/auth"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [api-key]",
	Short: "Generate an argon2id hash for an approval-API key",
	Long: `Generate an argon2id PHC-format hash of an API key for use in
config under auth.api_keys[].key_hash.

Example:
  guardctl hash-key "my-secret-api-key"
  # Output: $argon2id$v=19$m=...

Security note: the key will appear in shell history. Consider clearing
history after use, or pipe it in via an environment variable:
  guardctl hash-key "$MY_API_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashKeyArgon2id(args[0])
		if err != nil {
			return fmt.Errorf("hash key: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}
