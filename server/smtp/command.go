package smtp

import (
	"errors"

	"github.com/mailhive/mailhive/scanner"
)

// Command is one client command line.
type Command struct {
	Name string
	Arg  string
}

// parseCommand splits a raw line into an upper-cased command name and
// its argument.
func parseCommand(line string) (*Command, error) {
	var name, arg string

	r := scanner.New(line)

	// Command name: a sequence of ASCII alphabetic characters.
	for isAlpha(r.Next()) {
		name += string(toUpper(r.Get()))
	}
	if name == "" {
		return nil, errors.New("command expected")
	}

	// If a space follows, the rest up to CRLF is the argument.
	if r.Next() == ' ' {
		r.Get()
		for r.More() && r.Next() != '\r' && r.Next() != '\n' {
			arg += string(r.Get())
		}
	}

	return &Command{name, arg}, nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c
}
