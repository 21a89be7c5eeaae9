package client

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// Submit delivers a message through the submission port. Each call
// dials its own connection. When the client has authenticated, the
// same credentials are presented over AUTH PLAIN so the server files
// a sent copy. A partial delivery comes back as an error naming the
// failed recipients.
func (c *Client) Submit(from string, rcpts []string, subject, body string) error {
	conn, err := net.Dial("tcp", c.smtpAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	w := newTpClient(conn)
	w.Expect(220)
	w.WriteLine("HELO %s", c.hello)
	w.Expect(250)

	if c.user != "" {
		token := base64.StdEncoding.EncodeToString(
			[]byte("\x00" + c.user + "\x00" + c.secret))
		w.WriteLine("AUTH PLAIN %s", token)
		w.Expect(235)
	}

	w.WriteLine("MAIL FROM:<%s>", from)
	w.Expect(250)
	for _, rcpt := range rcpts {
		w.WriteLine("RCPT TO:<%s>", rcpt)
		w.Expect(250)
	}

	w.WriteLine("DATA")
	w.Expect(354)
	w.WriteLine("From: %s", from)
	w.WriteLine("To: %s", strings.Join(rcpts, ", "))
	w.WriteLine("Subject: %s", subject)
	w.WriteLine("Date: %s", time.Now().Format("2006-01-02 15:04:05"))
	w.WriteLine("")
	for _, line := range strings.Split(strings.TrimRight(body, "\r\n"), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, ".") {
			line = "." + line
		}
		w.WriteLine("%s", line)
	}
	w.WriteLine(".")
	w.Expect(250)

	w.WriteLine("QUIT")
	w.Expect(221)
	return w.Err()
}

// tpClient drives the reply-code side of an SMTP conversation. The
// first failure sticks and turns the remaining calls into no-ops.
type tpClient struct {
	conn io.Writer
	r    *bufio.Reader
	err  error
}

func newTpClient(conn io.ReadWriter) *tpClient {
	return &tpClient{conn: conn, r: bufio.NewReader(conn)}
}

// Expect reads a status reply and checks its code against the
// argument. Continuation lines of a multi-line reply are skipped.
func (w *tpClient) Expect(code int) bool {
	if w.err != nil {
		return false
	}
	for {
		line, err := w.r.ReadString('\n')
		if err != nil {
			w.err = err
			return false
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) >= 4 && line[3] == '-' {
			continue
		}
		if len(line) < 3 {
			w.err = fmt.Errorf("malformed reply %q", line)
			return false
		}
		rcode, err := strconv.Atoi(line[:3])
		if err != nil {
			w.err = fmt.Errorf("malformed reply %q", line)
			return false
		}
		if rcode != code {
			w.err = fmt.Errorf("%d response expected, got %q", code, line)
			return false
		}
		return true
	}
}

// WriteLine sends a free-form line terminated with CRLF. The
// arguments themselves must not contain CRLF.
func (w *tpClient) WriteLine(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	_, err := fmt.Fprintf(w.conn, format+"\r\n", args...)
	if err != nil {
		w.err = err
	}
}

// Err returns the sticky error state.
func (w *tpClient) Err() error {
	return w.err
}
