package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendDispatcher sends email through the Resend API
type ResendDispatcher struct {
	client *resend.Client
	from   string
}

// ResendOption configures a ResendDispatcher
type ResendOption func(*ResendDispatcher) error

// WithResendBaseURL points the client at another API root, e.g. a test server
func WithResendBaseURL(raw string) ResendOption {
	return func(d *ResendDispatcher) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid resend base url: %w", err)
		}
		d.client.BaseURL = u
		return nil
	}
}

// NewResendDispatcher creates an email dispatcher. from is used when a
// message carries no sender.
func NewResendDispatcher(apiKey, from string, opts ...ResendOption) (*ResendDispatcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}

	d := &ResendDispatcher{
		client: resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey),
		from:   from,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *ResendDispatcher) Name() string { return "resend" }

func (d *ResendDispatcher) Send(ctx context.Context, msg Message) (Receipt, error) {
	from := msg.From
	if from == "" {
		from = d.from
	}
	if from == "" || len(msg.To) == 0 {
		return Receipt{}, dispatchFailed(d.Name(), fmt.Errorf("sender and recipients are required"))
	}

	sent, err := d.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return Receipt{}, dispatchFailed(d.Name(), err)
	}
	return Receipt{Provider: d.Name(), MessageID: sent.Id}, nil
}
