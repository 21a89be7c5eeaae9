package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateFormat = "2006-01-02 15:04:05"

// Message is one piece of mail. Everything except the Read flag is
// fixed at creation time.
type Message struct {
	ID      string
	From    string
	To      []string
	Subject string
	// Headers is the header block as it arrived on the wire, without
	// the blank separator line. Empty for composed messages.
	Headers string
	Body    string
	Created time.Time
	Read    bool
}

// NewMessage creates a message from a received header block and body,
// assigning a fresh identifier. The subject is read out of the header
// block; the rest of the headers pass through untouched.
func NewMessage(from string, to []string, headers, body string) *Message {
	m := &Message{
		ID:      uuid.NewString(),
		From:    from,
		To:      append([]string(nil), to...),
		Headers: strings.TrimRight(headers, "\r\n"),
		Body:    body,
		Created: time.Now(),
	}
	m.Subject = headerValue(m.Headers, "Subject")
	return m
}

// Compose creates a message from bare fields. Its header block is
// synthesized by Render.
func Compose(from string, to []string, subject, body string) *Message {
	return &Message{
		ID:      uuid.NewString(),
		From:    from,
		To:      append([]string(nil), to...),
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}
}

// Render returns the canonical form of the message: header block,
// blank line, body, with CRLF line endings throughout.
func (m *Message) Render() string {
	var b strings.Builder
	if m.Headers != "" {
		for _, line := range strings.Split(m.Headers, "\n") {
			b.WriteString(strings.TrimRight(line, "\r"))
			b.WriteString("\r\n")
		}
	} else {
		fmt.Fprintf(&b, "From: %s\r\n", m.From)
		fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.To, ", "))
		fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
		fmt.Fprintf(&b, "Date: %s\r\n", m.Created.Format(dateFormat))
	}
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	return b.String()
}

// Size is the byte length of the canonical rendering. It is computed
// on every call so it can never go stale.
func (m *Message) Size() int {
	return len(m.Render())
}

func (m *Message) clone() *Message {
	c := *m
	c.To = append([]string(nil), m.To...)
	return &c
}

// SplitRendering cuts a message text at the first empty line into the
// header block and the body. Without an empty line the whole text
// counts as headers and the body is empty.
func SplitRendering(raw string) (headers, body string) {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, "\r") == "" {
			h := strings.Join(lines[:i], "\n")
			b := strings.Join(lines[i+1:], "\n")
			return strings.TrimRight(h, "\r\n"), b
		}
	}
	return strings.TrimRight(raw, "\r\n"), ""
}

// headerValue extracts the value of the named header from a raw header
// block. The name match is case-insensitive.
func headerValue(headers, name string) string {
	prefix := strings.ToLower(name) + ":"
	for _, line := range strings.Split(headers, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < len(prefix) {
			continue
		}
		if strings.ToLower(line[:len(prefix)]) == prefix {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}
