// Package smtp implements the submission side of the server: a
// per-connection session that walks the command state machine and
// turns completed transactions into mailbox store deliveries.
package smtp

import (
	"io"
	"strings"

	"github.com/gologme/log"

	"github.com/mailhive/mailhive/server/store"
)

// Backend is the slice of the mailbox store a session needs.
type Backend interface {
	Authenticate(id, secret string) bool
	Lookup(id string) (store.User, error)
	Deliver(rcpt string, msg *store.Message) error
	RecordSent(id string, msg *store.Message) error
}

// Params carries the per-deployment knobs of a session.
type Params struct {
	Hostname        string
	RequireAuth     bool
	MaxAuthAttempts int
}

type state int

const (
	// stateNew: connection greeted, client not identified yet.
	stateNew state = iota
	// stateIdentified: HELO/EHLO seen. The quiescent state every
	// reset or finished transaction returns to.
	stateIdentified
	// stateSender: reverse-path collected.
	stateSender
	// stateRecipients: at least one forward-path collected.
	stateRecipients
)

type session struct {
	*ReadWriter
	backend Backend
	par     Params
	log     *log.Logger

	st        state
	heloHost  string
	authed    bool
	authUser  string
	authFails int
	quit      bool

	sender     string
	recipients []string
}

// Process runs one session over the connection until the client quits
// or the transport fails. Read errors, including idle expiry, end only
// this session.
func Process(conn io.ReadWriter, backend Backend, par Params, logger *log.Logger) {
	s := &session{
		ReadWriter: NewReadWriter(conn),
		backend:    backend,
		par:        par,
		log:        logger,
	}
	s.Send(Ready, "%s ready", par.Hostname)

	for !s.quit {
		line, err := s.ReadLine()
		if err != nil {
			return
		}
		s.log.Debugf("smtp< %s", strings.TrimRight(line, "\r\n"))

		cmd, err := parseCommand(line)
		if err != nil {
			s.Send(SyntaxError, "%s", err.Error())
			continue
		}

		if cmd.Name == "QUIT" {
			s.Send(Closing, "%s closing channel", s.par.Hostname)
			return
		}

		if !processCmd(s, cmd) {
			s.Send(SyntaxError, "Command not recognized")
		}
	}
}

// clearTxn drops the in-progress transaction. A session that has
// identified itself returns to the quiescent state.
func (s *session) clearTxn() {
	s.sender = ""
	s.recipients = nil
	if s.st != stateNew {
		s.st = stateIdentified
	}
}
