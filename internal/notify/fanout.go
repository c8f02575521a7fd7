package notify

import (
	"context"

	"github.com/lcrostarosa/lastword/internal/logging"
)

// Mirror is a best-effort secondary channel limited to some message kinds
type Mirror struct {
	Dispatcher
	Kinds []Kind // empty means every kind
}

func (m Mirror) accepts(k Kind) bool {
	if len(m.Kinds) == 0 {
		return true
	}
	for _, want := range m.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

// Fanout sends through the primary dispatcher and then copies the message to
// mirrors. Only the primary result decides success.
type Fanout struct {
	primary Dispatcher
	mirrors []Mirror
}

// NewFanout combines a primary dispatcher with mirrors
func NewFanout(primary Dispatcher, mirrors ...Mirror) *Fanout {
	return &Fanout{primary: primary, mirrors: mirrors}
}

func (f *Fanout) Name() string { return f.primary.Name() }

// AddressesRecipients follows the primary, whose result decides success
func (f *Fanout) AddressesRecipients() bool { return CanAddress(f.primary) }

// Mirrors returns the number of configured mirrors
func (f *Fanout) Mirrors() int { return len(f.mirrors) }

func (f *Fanout) Send(ctx context.Context, msg Message) (Receipt, error) {
	receipt, err := f.primary.Send(ctx, msg)
	if err != nil {
		return Receipt{}, err
	}

	for _, m := range f.mirrors {
		if !m.accepts(msg.Kind) {
			continue
		}
		mr, merr := m.Send(ctx, msg)
		if merr != nil {
			logging.Warn("Mirror notification failed",
				logging.String("provider", m.Name()),
				logging.String("kind", string(msg.Kind)),
				logging.Err(merr))
			continue
		}
		logging.Debug("Mirror notification sent",
			logging.String("provider", mr.Provider),
			logging.String("message_id", mr.MessageID))
	}
	return receipt, nil
}
