package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lcrostarosa/lastword/internal/cli/runner"
	"github.com/lcrostarosa/lastword/internal/config"
	"github.com/lcrostarosa/lastword/internal/emergency"
	"github.com/lcrostarosa/lastword/internal/logging"
	"github.com/lcrostarosa/lastword/internal/notify"
	"github.com/lcrostarosa/lastword/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration",
	Long: `Write a new configuration file into the config directory.

Secrets that are not given are generated. Farewell and important-information
HTML can be edited in the file afterwards.`,
	Example: `  lastword init --owner-email me@example.com --sender switch@example.com \
    --recipient friend@example.com --recipient sibling@example.com \
    --resend-api-key re_123 --base-url https://switch.example.com

  # Telegram mirror and SQLite state
  lastword init ... --telegram-token 123:abc --telegram-chat 42 --storage sqlite`,
	RunE: runners.Uninitialized().Wrap(runInit),
}

func init() {
	f := initCmd.Flags()
	f.String("owner-email", "", "Where reminders go")
	f.String("sender", "", "From address for all messages")
	f.StringSlice("recipient", nil, "Beneficiary address (can specify multiple)")
	f.String("base-url", "", "Public URL check-in links point to")
	f.Int("inactivity-days", emergency.DefaultInactivityDays, "Days without check-in before the final message")

	f.String("resend-api-key", "", "Resend API key (email provider)")
	f.String("webhook-url", "", "Webhook mirror URL")
	f.String("telegram-token", "", "Telegram bot token for a mirror")
	f.String("telegram-chat", "", "Telegram chat id or @channel")

	f.String("check-in-secret", "", "Check-in link secret (generated when empty)")
	f.String("cron-secret", "", "Secret for the scheduled endpoints (generated when empty)")
	f.String("storage", storage.BackendFile, "State store backend: file, sqlite, postgres, redis, nats, memory")
	f.String("format", "yaml", "Config file format: yaml or json")
	f.Bool("force", false, "Overwrite an existing configuration")

	rootCmd.AddCommand(initCmd)
}

func runInit(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	ownerEmail := flags.String("owner-email")
	sender := flags.String("sender")
	recipients := flags.StringSlice("recipient")
	baseURL := flags.String("base-url")
	days := flags.Int("inactivity-days")
	resendKey := flags.String("resend-api-key")
	webhookURL := flags.String("webhook-url")
	tgToken := flags.String("telegram-token")
	tgChat := flags.String("telegram-chat")
	checkInSecret := flags.String("check-in-secret")
	cronSecret := flags.String("cron-secret")
	backend := flags.String("storage")
	format := flags.String("format")
	force := flags.Bool("force")
	if err := flags.Err(); err != nil {
		return err
	}

	dir := configDir
	if dir == "" {
		dir = config.DefaultConfigDir()
	}
	if config.Exists(dir) && !force {
		return fmt.Errorf("already initialized in %s (use --force to overwrite)", dir)
	}
	if days < 1 {
		return fmt.Errorf("--inactivity-days must be at least 1")
	}

	var err error
	if checkInSecret == "" {
		if checkInSecret, err = generateSecret(); err != nil {
			return err
		}
	}
	if cronSecret == "" {
		if cronSecret, err = generateSecret(); err != nil {
			return err
		}
	}

	newCfg := config.Default()
	newCfg.ConfigDir = dir
	if err := newCfg.UseFormat(formatFile(format)); err != nil {
		return err
	}
	newCfg.CheckInSecret = checkInSecret
	newCfg.CronSecret = cronSecret
	newCfg.PublicBaseURL = baseURL
	newCfg.Sender = sender
	newCfg.Owner = config.OwnerConfig{Email: ownerEmail, ReminderSubject: "Are you still there?"}
	newCfg.Terminal = config.TerminalConfig{Recipients: recipients, Subject: "A message left for you"}
	newCfg.Emergency.WithDeadManSwitch(days)
	newCfg.Storage.Backend = backend

	notifyCfg := newCfg.Emergency.EnsureNotify()
	if resendKey != "" {
		notifyCfg.AddProvider(config.EnvProviderEmail, emergency.Provider{
			Type: emergency.ProviderResend, Enabled: true,
			Settings: map[string]string{notify.SettingAPIKey: resendKey},
		})
	}
	if webhookURL != "" {
		notifyCfg.AddProvider(config.EnvProviderWebhook, emergency.Provider{
			Type: emergency.ProviderWebhook, Enabled: true,
			Settings: map[string]string{notify.SettingURL: webhookURL},
		})
	}
	if tgToken != "" && tgChat != "" {
		notifyCfg.AddProvider(config.EnvProviderTelegram, emergency.Provider{
			Type: emergency.ProviderTelegram, Enabled: true,
			Settings: map[string]string{notify.SettingToken: tgToken, notify.SettingChatID: tgChat},
		})
	}

	if err := newCfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	logging.Info("Configuration saved", logging.String("path", newCfg.Path()))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration written to %s\n", newCfg.Path())
	fmt.Fprintf(out, "Cron secret: %s\n", cronSecret)
	if err := newCfg.Validate(); err != nil {
		fmt.Fprintf(out, "Still missing before the switch can run: %v\n", err)
	}
	fmt.Fprintln(out)
	printHeader(out, "Next steps")
	fmt.Fprintln(out, "  1. Add farewell_html and important_info_html under terminal: in the config")
	fmt.Fprintln(out, "  2. Run: lastword heartbeat   (arms the switch)")
	fmt.Fprintln(out, "  3. Run: lastword serve --schedule daily   (or call 'lastword check' from cron)")
	return nil
}

func formatFile(format string) string {
	if format == "json" {
		return config.JSONFile
	}
	if format == "yaml" || format == "yml" {
		return config.YAMLFile
	}
	return format
}

// generateSecret returns 32 random bytes as hex
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
