package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lcrostarosa/lastword/internal/cli/runner"
	"github.com/lcrostarosa/lastword/internal/crypto"
)

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret [secret]",
	Short: "Print an argon2id hash of a cron secret for cron_secret_hash",
	Long: `Hash a cron secret so the configuration does not have to hold it in plain
text. Without an argument the secret is read from the first line of stdin.`,
	Example: `  echo -n "$CRON_SECRET" | lastword hash-secret`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runners.Uninitialized().Wrap(runHashSecret),
}

func init() {
	rootCmd.AddCommand(hashSecretCmd)
}

func runHashSecret(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	var secret string
	if len(args) == 1 {
		secret = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read secret from stdin: %w", err)
		}
		secret = strings.TrimRight(line, "\r\n")
	}
	if secret == "" {
		return fmt.Errorf("secret must not be empty")
	}

	hash, err := crypto.HashSecret(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
