package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcrostarosa/lastword/internal/cli/runner"
	"github.com/lcrostarosa/lastword/internal/emergency"
	"github.com/lcrostarosa/lastword/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the switch state",
	Long:  `Display the last check-in, the time left before the final message and the state store health.`,
	RunE:  runners.Config().Wrap(runStatus),
}

func init() {
	statusCmd.Flags().Bool("json", false, "Print the status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	asJSON := flags.Bool("json")
	if err := flags.Err(); err != nil {
		return err
	}

	svc, err := ctx.StatusService(cmd.Context())
	if err != nil {
		return err
	}
	status := svc.GetStatus(cmd.Context())

	if asJSON {
		return PrintJSON(cmd.OutOrStdout(), status)
	}
	printStatus(cmd, ctx, status)
	if status.Error != "" {
		return fmt.Errorf("state store: %s", status.Error)
	}
	return nil
}

func printStatus(cmd *cobra.Command, ctx *runner.CommandContext, s *service.SwitchStatus) {
	out := cmd.OutOrStdout()
	printHeader(out, "lastword Status")

	if s.LastActive != nil {
		printField(out, "Last check-in", "%s", s.LastActive.Format(time.RFC3339))
	} else {
		printField(out, "Last check-in", "never (switch not armed)")
	}
	if s.ThresholdSet {
		printField(out, "Threshold", "%d days", s.InactivityDays)
	} else {
		printField(out, "Threshold", "not set (final message disabled)")
	}

	switch s.Decision.State {
	case emergency.StateActive:
		printField(out, "State", "active, %s left", s.RemainingFormatted)
	case emergency.StateInactive:
		printField(out, "State", "OVERDUE by %s", s.Decision.OverdueDuration().Round(time.Minute))
	default:
		printField(out, "State", "not activated")
	}

	printField(out, "Final messages", "%d of %d sent", s.FinalSendCount, s.FinalSendLimit)
	printField(out, "Resets timer", "%t", s.ResetTimerOnSend)

	store := s.Store.Backend
	if s.Store.Degraded {
		store += " (degraded: " + s.Store.Reason + ")"
	}
	printField(out, "State store", "%s", store)
	printField(out, "Providers", "%v", ctx.Config.Emergency.GetNotify().EnabledIDs())
}
