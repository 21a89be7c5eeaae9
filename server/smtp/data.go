package smtp

import (
	"strings"

	"github.com/mailhive/mailhive/metrics"
	"github.com/mailhive/mailhive/server/store"
)

// data runs the mail-input sub-protocol: it collects the message text,
// assembles a message and attempts delivery to every collected
// recipient independently. Whatever the outcome, the transaction is
// reset afterwards.
func (s *session) data() {
	s.Send(StartMailInput, "Start mail input, terminate with a dot line (.)")

	payload, ok := s.readData()
	if !ok {
		s.quit = true
		return
	}

	headers, body := store.SplitRendering(payload)
	msg := store.NewMessage(s.sender, s.recipients, headers, body)

	var failed []string
	delivered := 0
	for _, rcpt := range s.recipients {
		if err := s.backend.Deliver(rcpt, msg); err != nil {
			s.log.Infof("smtp: delivery of %s to %s failed: %v", msg.ID, rcpt, err)
			metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
			failed = append(failed, rcpt)
			continue
		}
		metrics.DeliveriesTotal.WithLabelValues("ok").Inc()
		delivered++
	}

	if delivered > 0 && s.authed {
		s.recordSent(msg)
	}

	s.clearTxn()
	if len(failed) > 0 {
		// Deliveries that went through stay delivered.
		s.Send(TransactionFailed, "Delivery failed for: %s", strings.Join(failed, ", "))
		return
	}
	s.Send(OK, "OK, message %s accepted", msg.ID)
}

// readData reads lines up to the lone dot terminator, removing the
// transparency dot from lines that start with one. The second return
// is false when the transport failed mid-message.
func (s *session) readData() (string, bool) {
	var b strings.Builder
	for {
		line, err := s.ReadLine()
		if err != nil {
			return "", false
		}
		if line == ".\r\n" || line == ".\n" {
			break
		}
		if len(line) > 0 && line[0] == '.' {
			line = line[1:]
		}
		b.WriteString(line)
	}
	return b.String(), true
}

// recordSent files a copy under the authenticated user's sent folder
// when the message was submitted from one of their own addresses.
func (s *session) recordSent(msg *store.Message) {
	u, err := s.backend.Lookup(s.authUser)
	if err != nil {
		return
	}
	if s.sender != u.Name && !strings.EqualFold(s.sender, u.Address) {
		return
	}
	if err := s.backend.RecordSent(u.Name, msg); err != nil {
		s.log.Infof("smtp: recording sent copy for %s failed: %v", u.Name, err)
	}
}
