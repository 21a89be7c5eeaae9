// Package server owns the process-level plumbing: config, the TCP
// acceptors with their worker pools, and the shared mailbox store the
// protocol sessions run against.
package server

import (
	"net"
	"sync"
	"time"

	"github.com/gologme/log"
	"go.uber.org/atomic"

	"github.com/mailhive/mailhive/metrics"
	"github.com/mailhive/mailhive/server/pop"
	"github.com/mailhive/mailhive/server/smtp"
	"github.com/mailhive/mailhive/server/store"
)

type Server struct {
	config *Config
	store  *store.Store
	log    *log.Logger

	idleTimeout time.Duration

	smtpLn net.Listener
	popLn  net.Listener
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New builds a server from the config: it opens the mail directory
// and loads every configured user's folders into memory.
func New(config *Config, logger *log.Logger) (*Server, error) {
	st, err := store.New(config.Maildir)
	if err != nil {
		return nil, err
	}
	for _, u := range config.Users {
		if err := st.AddUser(u.Name, u.Address, u.Password, u.Pwhash); err != nil {
			return nil, err
		}
	}
	idle, err := config.GetIdleTimeout()
	if err != nil {
		return nil, err
	}
	return &Server{
		config:      config,
		store:       st,
		log:         logger,
		idleTimeout: idle,
	}, nil
}

// Store exposes the shared mailbox store.
func (s *Server) Store() *store.Store {
	return s.store
}

// Start binds both listeners and spawns the accept loops. It returns
// once the server is accepting connections.
func (s *Server) Start() error {
	smtpLn, err := net.Listen("tcp", s.config.SMTP.Addr)
	if err != nil {
		return err
	}
	popLn, err := net.Listen("tcp", s.config.POP.Addr)
	if err != nil {
		smtpLn.Close()
		return err
	}
	s.smtpLn = smtpLn
	s.popLn = popLn
	s.log.Infof("SMTP: listening on %s", smtpLn.Addr())
	s.log.Infof("POP3: listening on %s", popLn.Addr())

	s.wg.Add(2)
	go s.acceptLoop(smtpLn, "smtp", s.config.SMTP.Workers, s.serveSMTP)
	go s.acceptLoop(popLn, "pop3", s.config.POP.Workers, s.servePOP)
	return nil
}

// SMTPAddr reports the bound submission address.
func (s *Server) SMTPAddr() string {
	return s.smtpLn.Addr().String()
}

// POPAddr reports the bound retrieval address.
func (s *Server) POPAddr() string {
	return s.popLn.Addr().String()
}

// Shutdown closes the listeners and waits for the running sessions
// to finish.
func (s *Server) Shutdown() {
	s.closed.Store(true)
	if s.smtpLn != nil {
		s.smtpLn.Close()
	}
	if s.popLn != nil {
		s.popLn.Close()
	}
	s.wg.Wait()
}

// acceptLoop hands incoming connections to serve, at most workers of
// them at a time.
func (s *Server) acceptLoop(ln net.Listener, proto string, workers int, serve func(net.Conn)) {
	defer s.wg.Done()

	pool := newWorkerPool(workers)
	var sessions sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				break
			}
			s.log.Errorf("%s accept: %v", proto, err)
			continue
		}
		pool.acquire()
		metrics.ConnectionsTotal.WithLabelValues(proto).Inc()
		metrics.ConnectionsCurrent.WithLabelValues(proto).Inc()
		s.log.Debugf("%s: %s connected", proto, conn.RemoteAddr())

		sessions.Add(1)
		go func() {
			defer sessions.Done()
			serve(s.idle(conn))
			conn.Close()
			metrics.ConnectionsCurrent.WithLabelValues(proto).Dec()
			pool.release()
			s.log.Debugf("%s: %s disconnected", proto, conn.RemoteAddr())
		}()
	}
	sessions.Wait()
}

func (s *Server) serveSMTP(conn net.Conn) {
	smtp.Process(conn, s.store, smtp.Params{
		Hostname:        s.config.Hostname,
		RequireAuth:     s.config.SMTP.RequireAuth,
		MaxAuthAttempts: s.config.MaxAuthAttempts,
	}, s.log)
}

func (s *Server) servePOP(conn net.Conn) {
	pop.Process(conn, s.store, pop.Params{
		MaxAuthAttempts: s.config.MaxAuthAttempts,
	}, s.log)
}

// idleConn refreshes the read deadline before every read so a silent
// client is eventually disconnected.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	return c.Conn.Read(p)
}

func (s *Server) idle(conn net.Conn) net.Conn {
	if s.idleTimeout <= 0 {
		return conn
	}
	return &idleConn{conn, s.idleTimeout}
}
