package pop

import (
	"strconv"
	"strings"

	"github.com/mailhive/mailhive/metrics"
)

type cmdFunc func(s *session, cmd *Command)

var popFuncs = map[string]cmdFunc{
	"USER": cmdUser,
	"PASS": cmdPass,
	"STAT": cmdStat,
	"LIST": cmdList,
	"RETR": cmdRetr,
	"DELE": cmdDele,
	"RSET": cmdRset,
	"TOP":  cmdTop,
	"UIDL": cmdUidl,
	"NOOP": cmdNoop,
}

/*
 * USER <name>
 */
func cmdUser(s *session, cmd *Command) {
	if s.phase != phaseAuthorization {
		s.Err("Session already started")
		return
	}
	if cmd.Arg == "" {
		s.Err("Empty username")
		return
	}
	// An unknown mailbox is reported right away rather than at PASS.
	if _, err := s.backend.Lookup(cmd.Arg); err != nil {
		s.authFailure("No such user")
		return
	}
	s.candidate = cmd.Arg
	s.OK("User accepted")
}

/*
 * PASS <key>
 */
func cmdPass(s *session, cmd *Command) {
	if s.phase != phaseAuthorization {
		s.Err("Session already started")
		return
	}
	if s.candidate == "" {
		s.Err("USER expected first")
		return
	}
	if !s.backend.Authenticate(s.candidate, cmd.Arg) {
		s.authFailure("Authentication failed")
		return
	}

	msgs, err := s.backend.SnapshotInbox(s.candidate)
	if err != nil {
		s.Err(err.Error())
		return
	}

	s.view = newInboxView(msgs)
	s.user = s.candidate
	s.candidate = ""
	s.phase = phaseTransaction
	s.backend.SetOnline(s.user, true)
	metrics.AuthAttempts.WithLabelValues("pop3", "ok").Inc()
	s.OK("Password accepted")
}

/*
 * STAT
 */
func cmdStat(s *session, cmd *Command) {
	if !checkAuth(s) {
		return
	}
	count, size := s.view.stat()
	s.OK("%d %d", count, size)
}

/*
 * LIST [<msg>]
 */
func cmdList(s *session, cmd *Command) {
	if !checkAuth(s) {
		return
	}

	if cmd.Arg == "" {
		s.OK("List follows")
		for _, e := range s.view.entries() {
			s.Send("%d %d", e.num, e.msg.Size())
		}
		s.Send(".")
		return
	}

	e, err := s.view.find(cmd.Arg)
	if err != nil {
		s.Err(err.Error())
		return
	}
	s.OK("%d %d", e.num, e.msg.Size())
}

/*
 * RETR <msg>
 */
func cmdRetr(s *session, cmd *Command) {
	if !checkAuth(s) {
		return
	}
	e, err := s.view.find(cmd.Arg)
	if err != nil {
		s.Err(err.Error())
		return
	}
	s.OK("%d octets", e.msg.Size())
	s.SendData(e.msg.Render())
	if err := s.backend.MarkRead(s.user, e.msg.ID); err != nil {
		s.log.Debugf("mark read %s: %v", e.msg.ID, err)
	}
	metrics.MessagesRetrieved.Inc()
}

/*
 * DELE <msg>
 *
 * The message moves to trash immediately. See the package comment.
 */
func cmdDele(s *session, cmd *Command) {
	if !checkAuth(s) {
		return
	}
	e, err := s.view.find(cmd.Arg)
	if err != nil {
		s.Err(err.Error())
		return
	}
	if err := s.backend.MoveToTrash(s.user, e.msg.ID); err != nil {
		s.Err(err.Error())
		return
	}
	e.deleted = true
	s.OK("message %d deleted", e.num)
}

/*
 * RSET
 *
 * Deletions are already applied, so instead of clearing flags this
 * reloads the live inbox into a fresh snapshot.
 */
func cmdRset(s *session, cmd *Command) {
	if !checkAuth(s) {
		return
	}
	msgs, err := s.backend.SnapshotInbox(s.user)
	if err != nil {
		s.Err(err.Error())
		return
	}
	s.view = newInboxView(msgs)
	s.OK("")
}

/*
 * TOP <msg> <n>
 */
func cmdTop(s *session, cmd *Command) {
	if !checkAuth(s) {
		return
	}

	parts := strings.Fields(cmd.Arg)
	if len(parts) != 2 {
		s.Err("TOP <msg> <n> expected")
		return
	}
	e, err := s.view.find(parts[0])
	if err != nil {
		s.Err(err.Error())
		return
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 {
		s.Err("invalid line count")
		return
	}

	lines := strings.Split(e.msg.Render(), "\r\n")
	size := len(lines)
	i := 0

	// Headers up to and including the blank separator go out whole.
	s.OK("")
	for i < size {
		s.SendDataLine(lines[i])
		if lines[i] == "" {
			break
		}
		i++
	}

	// Then no more than n lines of the body.
	i++
	for i < size && n > 0 {
		s.SendDataLine(lines[i])
		i++
		n--
	}
	s.Send(".")
}

/*
 * UIDL [<msg>]
 */
func cmdUidl(s *session, cmd *Command) {
	if !checkAuth(s) {
		return
	}

	if cmd.Arg == "" {
		s.OK("")
		for _, e := range s.view.entries() {
			s.Send("%d %s", e.num, e.msg.ID)
		}
		s.Send(".")
		return
	}

	e, err := s.view.find(cmd.Arg)
	if err != nil {
		s.Err(err.Error())
		return
	}
	s.OK("%d %s", e.num, e.msg.ID)
}

/*
 * NOOP
 */
func cmdNoop(s *session, cmd *Command) {
	if !checkAuth(s) {
		return
	}
	s.OK("")
}
