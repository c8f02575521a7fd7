package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcrostarosa/lastword/internal/cli/runner"
	"github.com/lcrostarosa/lastword/internal/emergency"
)

// --- Check-in Command ---

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Validate a check-in link and record activity",
	Long: `Validate a check-in link exactly like the HTTP endpoint does and, when it is
valid, mark you as active.`,
	Example: `  lastword checkin --url 'https://switch.example.com/api/keep-alive?secret=...&timestamp=...'
  lastword checkin --secret <secret> --timestamp 1700000000000`,
	RunE: runners.Config().Wrap(runCheckin),
}

// --- Heartbeat Command ---

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Record proof of life (resets the inactivity timer)",
	Long: `Record a check-in from the console without a link. Anyone able to run this
command can already read the check-in secret from the configuration.`,
	RunE: runners.Config().Wrap(runHeartbeat),
}

// --- Link Command ---

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Print a fresh check-in link",
	RunE:  runners.Config().Wrap(runLink),
}

func init() {
	f := checkinCmd.Flags()
	f.String("url", "", "Full check-in link")
	f.String("secret", "", "Link secret")
	f.String("timestamp", "", "Link expiry in epoch milliseconds")
	checkinCmd.MarkFlagsMutuallyExclusive("url", "secret")
	checkinCmd.MarkFlagsMutuallyExclusive("url", "timestamp")

	rootCmd.AddCommand(checkinCmd, heartbeatCmd, linkCmd)
}

func runCheckin(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	rawURL := flags.String("url")
	secret := flags.String("secret")
	expiry := flags.String("timestamp")
	if err := flags.Err(); err != nil {
		return err
	}

	if rawURL != "" {
		var err error
		if secret, expiry, err = emergency.ParseLinkURL(rawURL); err != nil {
			return err
		}
	}

	svc, err := ctx.CheckInService(cmd.Context())
	if err != nil {
		return err
	}

	result := svc.HandleCheckIn(cmd.Context(), secret, expiry)
	if err := PrintJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return &exitError{code: exitFailure, err: fmt.Errorf("check-in %s: %w", result.Outcome, err)}
	}
	return nil
}

func runHeartbeat(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	svc, err := ctx.CheckInService(cmd.Context())
	if err != nil {
		return err
	}
	now, err := svc.Heartbeat(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	sw := ctx.Config.Switch()
	fmt.Fprintf(cmd.OutOrStdout(), "Heartbeat recorded at %s; the final message would go out after %s\n",
		time.UnixMilli(now).UTC().Format(time.RFC3339),
		time.UnixMilli(now+sw.Threshold()).UTC().Format(time.RFC3339))
	return nil
}

func runLink(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	if ctx.Config.CheckInSecret == "" {
		return fmt.Errorf("check_in_secret is not configured")
	}

	link := emergency.MintLink(ctx.Config.CheckInSecret, time.Now(), ctx.Config.Switch().LinkValidity())
	u, err := link.URL(ctx.Config.PublicBaseURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, u)
	fmt.Fprintf(out, "expires %s\n", link.Expiry().UTC().Format(time.RFC3339))
	return nil
}
