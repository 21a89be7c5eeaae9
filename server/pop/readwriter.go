package pop

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadWriter frames the POP3 reply format over a connection.
type ReadWriter struct {
	conn io.Writer
	r    *bufio.Reader
}

func NewReadWriter(conn io.ReadWriter) *ReadWriter {
	return &ReadWriter{
		conn: conn,
		r:    bufio.NewReader(conn),
	}
}

func (w *ReadWriter) ReadLine() (string, error) {
	return w.r.ReadString('\n')
}

// OK sends a success response with an optional comment.
func (w *ReadWriter) OK(comment string, args ...interface{}) {
	if comment != "" {
		w.Send("+OK " + fmt.Sprintf(comment, args...))
	} else {
		w.Send("+OK")
	}
}

// Err sends an error response with an optional comment.
func (w *ReadWriter) Err(comment string) {
	if comment != "" {
		w.Send("-ERR " + comment)
	} else {
		w.Send("-ERR")
	}
}

// Send sends a single line.
func (w *ReadWriter) Send(format string, args ...interface{}) error {
	_, err := fmt.Fprintf(w.conn, format+"\r\n", args...)
	return err
}

// SendData sends a multi-line data block followed by the terminating
// dot line.
func (w *ReadWriter) SendData(data string) error {
	for _, line := range strings.Split(data, "\r\n") {
		if err := w.SendDataLine(line); err != nil {
			return err
		}
	}
	return w.Send(".")
}

// SendDataLine sends one line of data, taking care of the
// dot-stuffing.
func (w *ReadWriter) SendDataLine(line string) error {
	if len(line) > 0 && line[0] == '.' {
		line = "." + line
	}
	_, err := w.conn.Write([]byte(line + "\r\n"))
	return err
}
