// Package client is a small driver for the server's wire protocols,
// meant for collaborating programs and for exercising a running
// server end to end. Retrieval runs over one POP3 connection held by
// the client; every submission dials a fresh SMTP connection.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Summary describes one inbox entry as reported by LIST.
type Summary struct {
	Number int
	Size   int
}

type Client struct {
	smtpAddr string
	hello    string
	user     string
	secret   string

	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to the retrieval port and remembers the submission
// address for later Submit calls.
func Dial(smtpAddr, popAddr string) (*Client, error) {
	conn, err := net.Dial("tcp", popAddr)
	if err != nil {
		return nil, err
	}
	c := &Client{
		smtpAddr: smtpAddr,
		hello:    "mailhive-client",
		conn:     conn,
		r:        bufio.NewReader(conn),
	}
	if _, err := c.response(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Authenticate logs in over POP3 and keeps the credentials for
// authenticated submissions.
func (c *Client) Authenticate(user, secret string) error {
	if _, err := c.cmd("USER %s", user); err != nil {
		return err
	}
	if _, err := c.cmd("PASS %s", secret); err != nil {
		return err
	}
	c.user = user
	c.secret = secret
	return nil
}

// ListInbox returns the undeleted inbox entries, newest first.
func (c *Client) ListInbox() ([]Summary, error) {
	if _, err := c.cmd("LIST"); err != nil {
		return nil, err
	}
	list := make([]Summary, 0)
	for {
		line, err := c.line()
		if err != nil {
			return nil, err
		}
		if line == "." {
			return list, nil
		}
		var s Summary
		if _, err := fmt.Sscanf(line, "%d %d", &s.Number, &s.Size); err != nil {
			return nil, fmt.Errorf("malformed list entry %q", line)
		}
		list = append(list, s)
	}
}

// Fetch retrieves one message and returns its full rendering with
// the dot-stuffing undone.
func (c *Client) Fetch(number int) (string, error) {
	if _, err := c.cmd("RETR %d", number); err != nil {
		return "", err
	}
	var lines []string
	for {
		line, err := c.line()
		if err != nil {
			return "", err
		}
		if line == "." {
			return strings.Join(lines, "\r\n"), nil
		}
		lines = append(lines, strings.TrimPrefix(line, "."))
	}
}

// Delete moves one message to the trash.
func (c *Client) Delete(number int) error {
	_, err := c.cmd("DELE %d", number)
	return err
}

// Quit ends the retrieval session and closes the connection.
func (c *Client) Quit() error {
	_, err := c.cmd("QUIT")
	c.conn.Close()
	return err
}

func (c *Client) cmd(format string, args ...interface{}) (string, error) {
	if _, err := fmt.Fprintf(c.conn, format+"\r\n", args...); err != nil {
		return "", err
	}
	return c.response()
}

func (c *Client) line() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// response reads a status line and turns -ERR into an error.
func (c *Client) response() (string, error) {
	line, err := c.line()
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(line, "+OK") {
		return strings.TrimPrefix(strings.TrimPrefix(line, "+OK"), " "), nil
	}
	return "", errors.New(strings.TrimPrefix(strings.TrimPrefix(line, "-ERR"), " "))
}
