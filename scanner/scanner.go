package scanner

import (
	"fmt"
)

// Scanner is a byte-level cursor over a command line.
type Scanner struct {
	str string
	pos int
	len int
	err error
}

func New(s string) *Scanner {
	return &Scanner{s, 0, len(s), nil}
}

func (s *Scanner) More() bool {
	if s.err != nil {
		return false
	}
	return s.pos < s.len
}

// Next returns the current byte without consuming it.
func (s *Scanner) Next() byte {
	if !s.More() {
		return 0
	}
	return s.str[s.pos]
}

// Get consumes and returns the current byte.
func (s *Scanner) Get() byte {
	if !s.More() {
		return 0
	}
	ch := s.str[s.pos]
	s.pos++
	return ch
}

// SkipStri consumes the given string, ignoring case.
func (s *Scanner) SkipStri(str string) bool {
	if s.err != nil {
		return false
	}
	n := len(str)
	for i := 0; i < n; i++ {
		if toUpper(s.Get()) != toUpper(str[i]) {
			s.err = fmt.Errorf("expected '%s'", str)
			return false
		}
	}
	return true
}

// ReadUntil consumes and returns everything up to the given byte,
// leaving the byte itself unconsumed. If the byte is never seen, the
// scanner is drained and an error is set.
func (s *Scanner) ReadUntil(ch byte) string {
	out := ""
	for s.More() {
		if s.Next() == ch {
			return out
		}
		out += string(s.Get())
	}
	if s.err == nil {
		s.err = fmt.Errorf("expected %c", ch)
	}
	return out
}

func (s *Scanner) Rest() string {
	return s.str[s.pos:]
}

func (s *Scanner) Expect(ch byte) bool {
	if s.err != nil {
		return false
	}
	n := s.Get()
	if n != ch {
		s.err = fmt.Errorf("expected %c, got %c", ch, n)
		return false
	}
	return true
}

func (s *Scanner) Err() error {
	return s.err
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c
}
