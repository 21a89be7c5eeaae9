package pop

import (
	"io"
	"strings"

	"github.com/gologme/log"

	"github.com/mailhive/mailhive/metrics"
	"github.com/mailhive/mailhive/server/store"
)

// Backend is the slice of the mailbox store a session needs.
type Backend interface {
	Lookup(id string) (store.User, error)
	Authenticate(id, secret string) bool
	SnapshotInbox(id string) ([]store.Message, error)
	MarkRead(id, msgID string) error
	MoveToTrash(id, msgID string) error
	SetOnline(id string, online bool)
}

// Params carries the per-deployment knobs of a session.
type Params struct {
	MaxAuthAttempts int
}

type phase int

const (
	// phaseAuthorization: connection greeted, only USER, PASS and
	// QUIT make sense.
	phaseAuthorization phase = iota
	// phaseTransaction: credentials verified, the inbox snapshot is
	// in place.
	phaseTransaction
	// phaseUpdate: QUIT seen after a transaction, nothing left to do.
	phaseUpdate
)

type session struct {
	*ReadWriter
	backend Backend
	par     Params
	log     *log.Logger

	phase     phase
	candidate string
	user      string
	view      *inboxView
	authFails int
	quit      bool
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
	s.OK("POP3 server ready")

	for !s.quit {
		line, err := s.ReadLine()
		if err != nil {
			break
		}
		s.log.Debugf("pop< %s", strings.TrimRight(line, "\r\n"))

		cmd, err := parseCommand(line)
		if err != nil {
			s.Err(err.Error())
			continue
		}

		if cmd.Name == "QUIT" {
			s.close()
			break
		}

		cmdfunc, ok := popFuncs[cmd.Name]
		if !ok {
			s.Err("Unknown command")
			continue
		}
		cmdfunc(s, cmd)
	}

	// A dropped connection leaves the user offline too.
	if s.user != "" {
		s.backend.SetOnline(s.user, false)
	}
}

// close enters the update phase. Deletions have already been applied,
// so the only work left is to release the user.
func (s *session) close() {
	if s.phase == phaseTransaction {
		s.backend.SetOnline(s.user, false)
		s.user = ""
	}
	s.phase = phaseUpdate
	s.OK("Goodbye")
}

// authFailure reports a failed authorization attempt and hangs up when
// the client has exhausted its allowance.
func (s *session) authFailure(comment string) {
	metrics.AuthAttempts.WithLabelValues("pop3", "failed").Inc()
	s.authFails++
	if s.par.MaxAuthAttempts > 0 && s.authFails >= s.par.MaxAuthAttempts {
		s.Err("Too many failed authentication attempts")
		s.quit = true
		return
	}
	s.Err(comment)
}

// checkAuth replies with an error unless the session has completed
// authorization.
func checkAuth(s *session) bool {
	if s.phase != phaseTransaction {
		s.Err("Unauthorized")
		return false
	}
	return true
}
