package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WebhookDispatcher POSTs a JSON rendering of each message to a URL
type WebhookDispatcher struct {
	url    string
	token  string
	client *http.Client
	now    func() time.Time
}

type webhookPayload struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Subject string    `json:"subject"`
	Text    string    `json:"text"`
	Link    string    `json:"link,omitempty"`
	To      []string  `json:"to,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// NewWebhookDispatcher creates a webhook dispatcher. token, when set, is sent
// as a bearer credential.
func NewWebhookDispatcher(url, token string, client *http.Client) (*WebhookDispatcher, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookDispatcher{url: url, token: token, client: client, now: time.Now}, nil
}

func (w *WebhookDispatcher) Name() string { return "webhook" }

func (w *WebhookDispatcher) Send(ctx context.Context, msg Message) (Receipt, error) {
	payload := webhookPayload{
		ID:      uuid.NewString(),
		Kind:    msg.Kind,
		Subject: msg.Subject,
		Text:    msg.Text,
		Link:    msg.Link,
		To:      msg.To,
		SentAt:  w.now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, dispatchFailed(w.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, dispatchFailed(w.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Lastword-Message-Id", payload.ID)
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return Receipt{}, dispatchFailed(w.Name(), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return Receipt{}, dispatchFailed(w.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}
	return Receipt{Provider: w.Name(), MessageID: payload.ID}, nil
}
