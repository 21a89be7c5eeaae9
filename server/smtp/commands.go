package smtp

import (
	"encoding/base64"
	"strings"

	"github.com/mailhive/mailhive/metrics"
	"github.com/mailhive/mailhive/scanner"
)

/*
 * Command functions register
 */
type cmdFunc func(s *session, cmd *Command)

var commands = make(map[string]cmdFunc)
var smtpExts = make(map[string]cmdFunc)

func defineCmd(name string, f cmdFunc) {
	commands[name] = f
}
func smtpExt(name string, f cmdFunc) {
	smtpExts[name] = f
}

/*
 * Call the corresponding function to process a command
 */
func processCmd(s *session, cmd *Command) bool {
	f, ok := commands[cmd.Name]
	if !ok {
		f, ok = smtpExts[cmd.Name]
	}
	if !ok {
		return false
	}
	f(s, cmd)
	return true
}

func init() {

	/*
	 * HELO <host>
	 */
	defineCmd("HELO", func(s *session, cmd *Command) {
		if cmd.Arg == "" {
			s.Send(ParameterSyntaxError, "Argument expected")
			return
		}
		s.identify(cmd.Arg)
		s.Send(OK, "Go ahead, %s", cmd.Arg)
	})

	/*
	 * EHLO <host>
	 */
	defineCmd("EHLO", func(s *session, cmd *Command) {
		if cmd.Arg == "" {
			s.Send(ParameterSyntaxError, "Argument expected")
			return
		}
		s.identify(cmd.Arg)

		// Send greeting and a list of supported extensions
		w := s.BeginBatch(OK)
		w.Send("Hello, %s", cmd.Arg)
		w.Send("AUTH PLAIN")
		for name := range smtpExts {
			if name == "AUTH" {
				continue
			}
			w.Send("%s", name)
		}
		w.End()
	})

	/*
	 * RSET - drop the transaction, keep the identity
	 */
	defineCmd("RSET", func(s *session, cmd *Command) {
		s.clearTxn()
		s.Send(OK, "OK")
	})

	defineCmd("NOOP", func(s *session, cmd *Command) {
		s.Send(OK, "OK")
	})

	/*
	 * MAIL FROM:<path>
	 */
	defineCmd("MAIL", func(s *session, cmd *Command) {
		if s.par.RequireAuth && !s.authed {
			s.Send(AuthRequired, "Authentication required")
			return
		}
		if s.st == stateNew {
			s.Send(BadSequenceOfCommands, "HELO expected")
			return
		}
		if s.st != stateIdentified {
			s.Send(BadSequenceOfCommands, "Nested MAIL command")
			return
		}

		p := scanner.New(cmd.Arg)
		if !p.SkipStri("FROM:") {
			s.Send(ParameterSyntaxError, "The format is: MAIL FROM:<reverse-path>")
			return
		}
		addr, err := parseAddress(p)
		if err != nil {
			s.Send(AddressSyntaxError, "Malformed reverse-path")
			return
		}

		s.sender = addr
		s.st = stateSender
		s.Send(OK, "OK")
	})

	/*
	 * RCPT TO:<path>
	 */
	defineCmd("RCPT", func(s *session, cmd *Command) {
		if s.st != stateSender && s.st != stateRecipients {
			s.Send(BadSequenceOfCommands, "Not in mail mode")
			return
		}

		p := scanner.New(cmd.Arg)
		if !p.SkipStri("TO:") {
			s.Send(ParameterSyntaxError, "The format is: RCPT TO:<forward-path>")
			return
		}
		addr, err := parseAddress(p)
		if err != nil {
			// The list collected so far stays; the client may retry.
			s.Send(AddressSyntaxError, "Malformed forward-path")
			return
		}

		s.recipients = append(s.recipients, addr)
		s.st = stateRecipients
		s.Send(OK, "OK")
	})

	/*
	 * DATA
	 */
	defineCmd("DATA", func(s *session, cmd *Command) {
		if s.st != stateRecipients {
			s.Send(BadSequenceOfCommands, "No recipients specified")
			return
		}
		s.data()
	})

	defineCmd("VRFY", obsolete)

	smtpExt("HELP", func(s *session, cmd *Command) {
		s.Send(214, "Commands: HELO EHLO AUTH MAIL RCPT DATA RSET NOOP HELP QUIT")
	})

	// AUTH PLAIN <base64>
	smtpExt("AUTH", func(s *session, cmd *Command) {
		if s.authed {
			s.Send(BadSequenceOfCommands, "Already authorized")
			return
		}

		parts := strings.SplitN(cmd.Arg, " ", 2)
		if len(parts) != 2 || parts[0] != "PLAIN" {
			s.Send(ParameterNotImplement, "Only PLAIN <...> is supported")
			return
		}

		user, password, serr := plainAuth(parts[1])
		if serr != nil {
			s.Send(serr.code, "%s", serr.message)
			return
		}

		if !s.backend.Authenticate(user, password) {
			metrics.AuthAttempts.WithLabelValues("smtp", "failed").Inc()
			// Deployments without mandatory authentication treat the
			// exchange as a formality and report success either way.
			if !s.par.RequireAuth {
				s.Send(AuthOK, "OK")
				return
			}
			s.authFails++
			if s.par.MaxAuthAttempts > 0 && s.authFails >= s.par.MaxAuthAttempts {
				s.Send(AuthInvalid, "Too many failed authentication attempts")
				s.quit = true
				return
			}
			s.Send(AuthInvalid, "Authentication credentials invalid")
			return
		}

		metrics.AuthAttempts.WithLabelValues("smtp", "ok").Inc()
		s.authed = true
		s.authUser = user
		s.Send(AuthOK, "Authentication succeeded")
	})
}

// identify handles a HELO/EHLO: it moves to the identified state and
// clears any transaction in progress.
func (s *session) identify(host string) {
	s.heloHost = host
	s.sender = ""
	s.recipients = nil
	s.st = stateIdentified
}

type smtpError struct {
	code    int
	message string
}

// plainAuth decodes an AUTH PLAIN argument: base64 of \0user\0pass.
func plainAuth(arg string) (login, pass string, serr *smtpError) {
	data, err := base64.StdEncoding.DecodeString(arg)
	if err != nil {
		return "", "", &smtpError{ParameterSyntaxError, err.Error()}
	}

	parts := strings.Split(string(data), "\x00")
	if len(parts) != 3 {
		return "", "", &smtpError{ParameterSyntaxError, "Could not parse the auth string"}
	}

	return parts[1], parts[2], nil
}

/*
 * Command function for obsolete commands
 */
func obsolete(s *session, cmd *Command) {
	s.Send(CommandNotImplemented, "Obsolete command")
}
