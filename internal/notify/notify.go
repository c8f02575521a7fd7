// Package notify delivers reminder and terminal notifications.
//
// A Dispatcher sends one Message and returns a Receipt. Fanout combines a
// primary dispatcher, whose result decides success, with best-effort mirrors.
package notify

import (
	"context"
	"fmt"

	apperrors "github.com/lcrostarosa/lastword/internal/errors"
)

// Kind distinguishes the two notifications the switch sends
type Kind string

const (
	KindReminder Kind = "reminder" // check-in request to the owner
	KindTerminal Kind = "terminal" // final notification to beneficiaries
)

// Message is a rendered notification
type Message struct {
	Kind    Kind
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string // plain rendering for chat channels
	Link    string // check-in link, reminders only
}

// Receipt identifies a delivered message
type Receipt struct {
	Provider  string `json:"provider"`
	MessageID string `json:"message_id"`
}

// Dispatcher delivers a message over one channel
type Dispatcher interface {
	Name() string
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// Addresser is implemented by dispatchers that know whether they deliver to
// Message.To. Dispatchers without it are assumed to.
type Addresser interface {
	AddressesRecipients() bool
}

// CanAddress reports whether d delivers to the message's recipients
func CanAddress(d Dispatcher) bool {
	if a, ok := d.(Addresser); ok {
		return a.AddressesRecipients()
	}
	return true
}

// DispatcherFunc adapts a function to Dispatcher
type DispatcherFunc func(ctx context.Context, msg Message) (Receipt, error)

func (f DispatcherFunc) Name() string { return "func" }

func (f DispatcherFunc) Send(ctx context.Context, msg Message) (Receipt, error) {
	return f(ctx, msg)
}

func dispatchFailed(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperrors.ErrDispatchFailed, provider, err)
}
