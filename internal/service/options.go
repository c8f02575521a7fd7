// Package service holds the dead man's switch business logic: the scheduled
// check orchestrator and the check-in handler. Transports (HTTP, CLI) call
// into it; it never reads the environment.
package service

import (
	"strings"

	"github.com/lcrostarosa/lastword/internal/emergency"
)

// Options is the switch configuration, built once at startup
type Options struct {
	Switch *emergency.DeadManSwitchConfig

	// CheckInSecret authenticates check-in links
	CheckInSecret string
	// PublicBaseURL is where check-in links point
	PublicBaseURL string
	// Sender overrides the dispatcher's default from address
	Sender string

	OwnerEmail      string
	ReminderSubject string

	Beneficiaries     []string
	TerminalSubject   string
	FarewellHTML      string
	ImportantInfoHTML string
}

// ReminderConfigured reports whether the reminder phase can run
func (o Options) ReminderConfigured() bool {
	return o.OwnerEmail != "" && o.CheckInSecret != "" && o.ReminderSubject != ""
}

// TerminalConfigured reports whether the terminal phase can run. It never
// runs on a default threshold.
func (o Options) TerminalConfigured() bool {
	return o.Switch.HasThreshold() &&
		len(o.recipients()) > 0 &&
		o.TerminalSubject != "" &&
		o.FarewellHTML != "" &&
		o.ImportantInfoHTML != ""
}

func (o Options) recipients() []string {
	out := make([]string, 0, len(o.Beneficiaries))
	for _, r := range o.Beneficiaries {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
