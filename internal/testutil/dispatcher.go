package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/lcrostarosa/lastword/internal/notify"
)

// RecordingDispatcher captures messages instead of delivering them.
// Kinds listed in Fail are rejected with an error.
type RecordingDispatcher struct {
	Fail map[notify.Kind]error

	mu   sync.Mutex
	sent []notify.Message
}

// NewRecordingDispatcher creates an empty recorder
func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{Fail: map[notify.Kind]error{}}
}

// FailOn makes every message of kind fail with err
func (d *RecordingDispatcher) FailOn(kind notify.Kind, err error) *RecordingDispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Fail[kind] = err
	return d
}

func (d *RecordingDispatcher) Name() string { return "recorder" }

func (d *RecordingDispatcher) Send(_ context.Context, msg notify.Message) (notify.Receipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Fail[msg.Kind]; err != nil {
		return notify.Receipt{}, err
	}
	d.sent = append(d.sent, msg)
	return notify.Receipt{Provider: d.Name(), MessageID: fmt.Sprintf("msg-%d", len(d.sent))}, nil
}

// Sent returns a copy of the delivered messages
func (d *RecordingDispatcher) Sent() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.sent...)
}

// Kinds returns the kind of each delivered message in order
func (d *RecordingDispatcher) Kinds() []notify.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	kinds := make([]notify.Kind, 0, len(d.sent))
	for _, m := range d.sent {
		kinds = append(kinds, m.Kind)
	}
	return kinds
}
