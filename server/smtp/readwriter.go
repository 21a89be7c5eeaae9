package smtp

import (
	"bufio"
	"fmt"
	"io"
)

const (
	Ready                 = 220
	Closing               = 221
	OK                    = 250
	StartMailInput        = 354
	AuthOK                = 235
	SyntaxError           = 500
	ParameterSyntaxError  = 501
	CommandNotImplemented = 502
	BadSequenceOfCommands = 503
	ParameterNotImplement = 504
	AuthRequired          = 530
	AuthInvalid           = 535
	MailboxUnavailable    = 550
	AddressSyntaxError    = 553
	TransactionFailed     = 554
)

// ReadWriter frames the SMTP reply format over a connection.
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

func (w *ReadWriter) Send(code int, format string, args ...interface{}) {
	fmt.Fprintf(w.conn, "%d %s\r\n", code, fmt.Sprintf(format, args...))
}

func (w *ReadWriter) BeginBatch(code int) *BatchWriter {
	return &BatchWriter{code: code, conn: w.conn}
}

// BatchWriter produces a multi-line reply where every line but the
// last carries the code with a dash.
type BatchWriter struct {
	code     int
	lastLine string
	conn     io.Writer
}

func (w *BatchWriter) Send(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if w.lastLine != "" {
		fmt.Fprintf(w.conn, "%d-%s\r\n", w.code, w.lastLine)
	}
	w.lastLine = line
}

func (w *BatchWriter) End() {
	if w.lastLine == "" {
		return
	}
	fmt.Fprintf(w.conn, "%d %s\r\n", w.code, w.lastLine)
	w.lastLine = ""
}
