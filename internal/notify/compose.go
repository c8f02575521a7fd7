package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"
)

var reminderTmpl = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h1>Daily check-in</h1>
  {{if .Remaining}}<p>Time remaining before your final message is sent: <strong>{{.Remaining}}</strong></p>{{end}}
  <p>Click the link below to confirm you are still around:</p>
  <p style="text-align: center; margin: 30px 0;"><a href="{{.Link}}">Check in</a></p>
  <p>This link is valid until {{.Expires}}.</p>
  <p>If you stop checking in for longer than the configured inactivity period, your designated contacts will receive your final message.</p>
</body>
</html>`))

var terminalTmpl = template.Must(template.New("terminal").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h1>An important message</h1>
  <h2>Farewell letter</h2>
  <div>{{.Farewell}}</div>
  <h2>Important information</h2>
  <div>{{.ImportantInfo}}</div>
  <p><strong>Sent at:</strong> {{.SentAt}}</p>
</body>
</html>`))

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Reminder holds the inputs of a check-in reminder
type Reminder struct {
	From      string
	To        string
	Subject   string
	Link      string
	ExpiresAt time.Time
	Remaining string // empty when unknown or not activated
}

// Terminal holds the inputs of the final notification
type Terminal struct {
	From          string
	To            []string
	Subject       string
	FarewellHTML  string
	ImportantHTML string
	SentAt        time.Time
}

// ComposeReminder renders a reminder message
func ComposeReminder(r Reminder) (Message, error) {
	var buf bytes.Buffer
	err := reminderTmpl.Execute(&buf, map[string]string{
		"Link":      r.Link,
		"Remaining": r.Remaining,
		"Expires":   r.ExpiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render reminder: %w", err)
	}

	text := fmt.Sprintf("%s\n\nCheck in: %s", r.Subject, r.Link)
	if r.Remaining != "" {
		text = fmt.Sprintf("%s\n\nTime remaining: %s\nCheck in: %s", r.Subject, r.Remaining, r.Link)
	}

	return Message{
		Kind:    KindReminder,
		From:    r.From,
		To:      []string{r.To},
		Subject: r.Subject,
		HTML:    buf.String(),
		Text:    text,
		Link:    r.Link,
	}, nil
}

// ComposeTerminal renders the final notification. The farewell and important
// info payloads are operator-supplied HTML and are embedded as is.
func ComposeTerminal(t Terminal) (Message, error) {
	var buf bytes.Buffer
	err := terminalTmpl.Execute(&buf, map[string]any{
		"Farewell":      template.HTML(t.FarewellHTML),
		"ImportantInfo": template.HTML(t.ImportantHTML),
		"SentAt":        t.SentAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render terminal: %w", err)
	}

	return Message{
		Kind:    KindTerminal,
		From:    t.From,
		To:      t.To,
		Subject: t.Subject,
		HTML:    buf.String(),
		Text:    t.Subject + "\n\n" + PlainText(t.FarewellHTML) + "\n\n" + PlainText(t.ImportantHTML),
	}, nil
}

// PlainText strips tags and collapses blank runs
func PlainText(html string) string {
	s := tagPattern.ReplaceAllString(html, "")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
