package cli

import (
	"github.com/spf13/cobra"

	"github.com/lcrostarosa/lastword/internal/cli/runner"
	"github.com/lcrostarosa/lastword/internal/service"
)

// Exit codes for scheduled runs, so a system cron can alert on them
const (
	exitSuccess = 0
	exitFailure = 1
	exitPartial = 2
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the daily check once (reminder, then final message if overdue)",
	Long: `Run the scheduled check once and print the JSON report.

Meant for a system cron or CI scheduler. The exit code is 0 when every phase
succeeded or was skipped, 2 when some phases failed and 1 when all failed.`,
	Example: `  # crontab entry, every morning at 9
  0 9 * * * lastword check >> /var/log/lastword.log`,
	RunE: runners.Validated().Wrap(runCheck),
}

var reminderCheckCmd = &cobra.Command{
	Use:   "reminder-check",
	Short: "Run only the reminder phase once",
	Long: `Send the check-in reminder without evaluating the final message. Useful
when reminders and the final message run on different schedules.`,
	RunE: runners.Validated().Wrap(runReminderCheck),
}

var inactivityCheckCmd = &cobra.Command{
	Use:   "inactivity-check",
	Short: "Run only the final message phase once",
	RunE:  runners.Validated().Wrap(runInactivityCheck),
}

func init() {
	rootCmd.AddCommand(checkCmd, reminderCheckCmd, inactivityCheckCmd)
}

func runCheck(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	svc, err := ctx.SwitchService(cmd.Context())
	if err != nil {
		return err
	}
	return reportResult(cmd, svc.RunDailyCheck(cmd.Context()))
}

func runReminderCheck(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	svc, err := ctx.SwitchService(cmd.Context())
	if err != nil {
		return err
	}
	return reportResult(cmd, svc.RunReminderCheck(cmd.Context()))
}

func runInactivityCheck(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	svc, err := ctx.SwitchService(cmd.Context())
	if err != nil {
		return err
	}
	return reportResult(cmd, svc.RunInactivityCheck(cmd.Context()))
}

func reportResult(cmd *cobra.Command, report *service.Report) error {
	if err := PrintJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if code := exitCode(report.Outcome); code != exitSuccess {
		return &exitError{code: code}
	}
	return nil
}

func exitCode(o service.Outcome) int {
	switch o {
	case service.OutcomeSuccess:
		return exitSuccess
	case service.OutcomePartial:
		return exitPartial
	default:
		return exitFailure
	}
}
