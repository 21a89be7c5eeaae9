package smtp

import (
	"errors"
	"strings"

	"github.com/mailhive/mailhive/scanner"
)

// parseAddress reads an angle-bracketed address and returns the text
// between the brackets. Local names without a host part are accepted;
// this server delivers to local mailboxes only.
func parseAddress(p *scanner.Scanner) (string, error) {
	p.Expect('<')
	addr := p.ReadUntil('>')
	p.Expect('>')
	if err := p.Err(); err != nil {
		return "", err
	}
	if addr == "" {
		return "", errors.New("empty address")
	}
	if strings.ContainsAny(addr, " \t<") {
		return "", errors.New("malformed address")
	}
	return addr, nil
}
